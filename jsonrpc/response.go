package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// ResponseMessage is a response carrying either a result of type R or an
// error, never both.
type ResponseMessage[R any] struct {
	id     ID
	result R
	err    *Error
}

// Response is a response whose result has not been decoded yet. It is the form
// responses take while being correlated with pending requests.
type Response = ResponseMessage[json.RawMessage]

func NewResponse[R any](id ID, result R) *ResponseMessage[R] {
	return &ResponseMessage[R]{id: id, result: result}
}

func NewErrorResponse[R any](id ID, err *Error) *ResponseMessage[R] {
	if err == nil {
		err = NewInternalError("unknown error")
	}
	return &ResponseMessage[R]{id: id, err: err}
}

func (r *ResponseMessage[R]) ID() ID {
	return r.id
}

// Result returns the success payload, or the *Error the peer responded with.
func (r *ResponseMessage[R]) Result() (R, error) {
	if r.err != nil {
		var zero R
		return zero, r.err
	}
	return r.result, nil
}

// Err returns the error payload, or nil for a successful response.
func (r *ResponseMessage[R]) Err() *Error {
	return r.err
}

// Raw re-encodes the result so the response can travel untyped.
func (r *ResponseMessage[R]) Raw() (*Response, error) {
	if r.err != nil {
		return NewErrorResponse[json.RawMessage](r.id, r.err), nil
	}
	raw, err := json.Marshal(r.result)
	if err != nil {
		return nil, err
	}
	return NewResponse(r.id, json.RawMessage(raw)), nil
}

// ResponseAs decodes an untyped response's result as R.
func ResponseAs[R any](r *Response) (*ResponseMessage[R], error) {
	if r.err != nil {
		return NewErrorResponse[R](r.id, r.err), nil
	}
	out := &ResponseMessage[R]{id: r.id}
	raw := r.result
	if raw == nil {
		raw = json.RawMessage("null")
	}
	if err := json.Unmarshal(raw, &out.result); err != nil {
		return nil, fmt.Errorf("jsonrpc: invalid result: %w", err)
	}
	return out, nil
}

func (r *ResponseMessage[R]) MarshalJSON() ([]byte, error) {
	w := newEnvelopeWriter()
	if err := w.member("id", r.id); err != nil {
		return nil, err
	}
	if r.err != nil {
		if err := w.member("error", r.err); err != nil {
			return nil, err
		}
	} else if err := w.member("result", r.result); err != nil {
		return nil, err
	}
	return w.bytes(), nil
}

func (r *ResponseMessage[R]) UnmarshalJSON(data []byte) error {
	m, err := decodeMembers(data)
	if err != nil {
		return err
	}
	id, err := m.id()
	if err != nil {
		return err
	}
	hasResult, hasError := m.has("result"), m.has("error")
	if hasResult == hasError {
		return ErrResultOrError
	}
	if hasError {
		e := new(Error)
		if err := json.Unmarshal(m["error"], e); err != nil {
			return fmt.Errorf("jsonrpc: invalid error: %w", err)
		}
		var zero R
		r.id, r.result, r.err = id, zero, e
		return nil
	}
	var result R
	if err := json.Unmarshal(m["result"], &result); err != nil {
		return fmt.Errorf("jsonrpc: invalid result: %w", err)
	}
	r.id, r.result, r.err = id, result, nil
	return nil
}
