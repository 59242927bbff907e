package jsonrpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Standard JSON-RPC 2.0 error codes.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
)

// Error codes reserved by the language server protocol.
const (
	CodeServerNotInitialized = -32002
	CodeUnknownErrorCode     = -32001
	CodeRequestFailed        = -32803
	CodeServerCancelled      = -32802
	CodeContentModified      = -32801
	CodeRequestCancelled     = -32800
)

var (
	// ErrVersionMismatch is matched by errors decoding a "jsonrpc" member other than "2.0".
	ErrVersionMismatch = errors.New("jsonrpc: version mismatch")
	// ErrMethodMismatch is matched by errors decoding a "method" member that does not
	// name the expected method.
	ErrMethodMismatch = errors.New("jsonrpc: method mismatch")
	// ErrResultOrError is returned when a response carries both or neither of
	// "result" and "error".
	ErrResultOrError = errors.New("jsonrpc: response must have exactly one of result or error")
	// ErrMissingField is wrapped when a required envelope member is absent.
	ErrMissingField = errors.New("jsonrpc: missing field")
)

// Error is a JSON-RPC error object. It is also the error returned to callers
// when the peer answered a request with an error response.
type Error struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return e.Message
}

func NewError(code int64, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WithData returns a copy of e carrying data marshaled as the "data" member.
func (e *Error) WithData(data any) (*Error, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	c := *e
	c.Data = raw
	return &c, nil
}

func (e *Error) UnmarshalJSON(data []byte) error {
	var dom struct {
		Code    *int64          `json:"code"`
		Message *string         `json:"message"`
		Data    json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(data, &dom); err != nil {
		return err
	}
	if dom.Code == nil {
		return fmt.Errorf("%w: error.code", ErrMissingField)
	}
	if dom.Message == nil {
		return fmt.Errorf("%w: error.message", ErrMissingField)
	}
	e.Code = *dom.Code
	e.Message = *dom.Message
	e.Data = dom.Data
	if string(e.Data) == "null" {
		e.Data = nil
	}
	return nil
}

func NewParseError(message string) *Error {
	return NewError(CodeParseError, message)
}

func NewInvalidRequestError(message string) *Error {
	return NewError(CodeInvalidRequest, message)
}

func NewMethodNotFoundError(method string) *Error {
	return NewError(CodeMethodNotFound, "method not found: "+method)
}

func NewInvalidParamsError(message string) *Error {
	return NewError(CodeInvalidParams, message)
}

func NewInternalError(message string) *Error {
	return NewError(CodeInternalError, message)
}

// NotInitializedError is returned for requests that arrive, or are attempted,
// before the initialize handshake has completed.
func NotInitializedError() *Error {
	return NewError(CodeServerNotInitialized, "server not initialized")
}

// ErrorFrom converts any error to a JSON-RPC error.
// *Error values preserve their code; other errors become InternalError.
func ErrorFrom(err error) *Error {
	if err == nil {
		return nil
	}
	var rpcErr *Error
	if errors.As(err, &rpcErr) {
		return rpcErr
	}
	return &Error{
		Code:    CodeInternalError,
		Message: err.Error(),
	}
}

// UnknownVariantError reports a string member whose value is not among the
// accepted set. It matches ErrVersionMismatch for "jsonrpc" and
// ErrMethodMismatch for "method".
type UnknownVariantError struct {
	Field    string
	Got      string
	Expected []string
}

func (e *UnknownVariantError) Error() string {
	quoted := make([]string, len(e.Expected))
	for i, s := range e.Expected {
		quoted[i] = fmt.Sprintf("%q", s)
	}
	verb := "expected"
	if len(quoted) > 1 {
		verb = "expected one of"
	}
	return fmt.Sprintf("jsonrpc: unknown variant %q for %s, %s %s", e.Got, e.Field, verb, strings.Join(quoted, ", "))
}

func (e *UnknownVariantError) Unwrap() error {
	switch e.Field {
	case "jsonrpc":
		return ErrVersionMismatch
	case "method":
		return ErrMethodMismatch
	}
	return nil
}
