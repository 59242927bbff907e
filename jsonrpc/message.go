package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// Kind classifies an untyped envelope.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindRequest
	KindNotification
	KindResponse
)

func (k Kind) String() string {
	switch k {
	case KindRequest:
		return "request"
	case KindNotification:
		return "notification"
	case KindResponse:
		return "response"
	}
	return "invalid"
}

// Message is an envelope as read off the transport, before the method is
// known. Exactly one shape is populated: requests have ID and Method,
// notifications have Method only, responses have ID and one of Result or
// Error. A present but null result is kept as the literal null.
type Message struct {
	ID     *ID
	Method string
	Params json.RawMessage
	Result json.RawMessage
	Error  *Error
}

// DecodeMessage decodes and classifies a single envelope.
func DecodeMessage(data []byte) (*Message, error) {
	msg := new(Message)
	if err := json.Unmarshal(data, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

func (msg *Message) Kind() Kind {
	switch {
	case msg.Method != "" && msg.ID != nil:
		return KindRequest
	case msg.Method != "":
		return KindNotification
	case msg.ID != nil && (msg.Result != nil) != (msg.Error != nil):
		return KindResponse
	}
	return KindInvalid
}

// Response converts a response-kind message.
func (msg *Message) Response() (*Response, error) {
	if msg.Kind() != KindResponse {
		return nil, fmt.Errorf("jsonrpc: %s is not a response", msg.Kind())
	}
	if msg.Error != nil {
		return NewErrorResponse[json.RawMessage](*msg.ID, msg.Error), nil
	}
	return NewResponse(*msg.ID, msg.Result), nil
}

func (msg *Message) UnmarshalJSON(data []byte) error {
	m, err := decodeMembers(data)
	if err != nil {
		return err
	}
	var out Message
	if m.has("id") {
		id, err := m.id()
		if err != nil {
			return err
		}
		out.ID = &id
	}
	if m.has("method") {
		method, err := m.method()
		if err != nil {
			return err
		}
		if method == "" {
			return fmt.Errorf("%w: method", ErrMissingField)
		}
		out.Method = method
		if raw, ok := m.optional("params"); ok {
			out.Params = raw
		}
		*msg = out
		return nil
	}
	if out.ID == nil {
		return fmt.Errorf("%w: id", ErrMissingField)
	}
	hasResult, hasError := m.has("result"), m.has("error")
	if hasResult == hasError {
		return ErrResultOrError
	}
	if hasError {
		out.Error = new(Error)
		if err := json.Unmarshal(m["error"], out.Error); err != nil {
			return fmt.Errorf("jsonrpc: invalid error: %w", err)
		}
	} else {
		out.Result = m["result"]
	}
	*msg = out
	return nil
}

func (msg *Message) MarshalJSON() ([]byte, error) {
	w := newEnvelopeWriter()
	if msg.ID != nil {
		if err := w.member("id", msg.ID); err != nil {
			return nil, err
		}
	}
	switch msg.Kind() {
	case KindRequest, KindNotification:
		if err := w.member("method", msg.Method); err != nil {
			return nil, err
		}
		if msg.Params != nil {
			if err := w.member("params", msg.Params); err != nil {
				return nil, err
			}
		}
	case KindResponse:
		if msg.Error != nil {
			if err := w.member("error", msg.Error); err != nil {
				return nil, err
			}
		} else if err := w.member("result", msg.Result); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("jsonrpc: cannot encode %s message", msg.Kind())
	}
	return w.bytes(), nil
}
