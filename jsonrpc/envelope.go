package jsonrpc

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Method describes a protocol method. Descriptors are value types whose zero
// value reports the method name; the parameter and result shapes are supplied
// alongside the descriptor when an envelope type is instantiated:
//
//	type WillRenameFiles struct{}
//
//	func (WillRenameFiles) Name() string { return "workspace/willRenameFiles" }
//
//	type WillRenameFilesRequest = jsonrpc.RequestMessage[WillRenameFiles, RenameFilesParams]
type Method interface {
	Name() string
}

func methodName[M Method]() string {
	var m M
	return m.Name()
}

// Outbound is an envelope headed for the peer, either a request or a
// notification.
type Outbound interface {
	json.Marshaler
	Method() string
}

// members holds the top-level members of a decoded envelope.
type members map[string]json.RawMessage

var errNotObject = errors.New("jsonrpc: envelope must be a JSON object")

// decodeMembers splits data into its members and validates the version tag,
// which is always checked before anything else.
func decodeMembers(data []byte) (members, error) {
	var m members
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	if m == nil {
		return nil, errNotObject
	}
	raw, ok := m["jsonrpc"]
	if !ok {
		return nil, fmt.Errorf("%w: jsonrpc", ErrMissingField)
	}
	var v Version
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return m, nil
}

func (m members) has(key string) bool {
	_, ok := m[key]
	return ok
}

// method decodes the "method" member as a plain string.
func (m members) method() (string, error) {
	raw, ok := m["method"]
	if !ok {
		return "", fmt.Errorf("%w: method", ErrMissingField)
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", fmt.Errorf("jsonrpc: invalid method: %w", err)
	}
	return s, nil
}

func (m members) expectMethod(want string) error {
	got, err := m.method()
	if err != nil {
		return err
	}
	if got != want {
		return &UnknownVariantError{Field: "method", Got: got, Expected: []string{want}}
	}
	return nil
}

func (m members) id() (ID, error) {
	raw, ok := m["id"]
	if !ok {
		return NullID, fmt.Errorf("%w: id", ErrMissingField)
	}
	var id ID
	if err := json.Unmarshal(raw, &id); err != nil {
		return NullID, err
	}
	return id, nil
}

// optional returns the member when it is present and not null.
func (m members) optional(key string) (json.RawMessage, bool) {
	raw, ok := m[key]
	if !ok || string(bytes.TrimSpace(raw)) == "null" {
		return nil, false
	}
	return raw, true
}

func decodeParams[P any](m members) (*P, error) {
	raw, ok := m.optional("params")
	if !ok {
		return nil, nil
	}
	p := new(P)
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("jsonrpc: invalid params: %w", err)
	}
	return p, nil
}

// envelopeWriter emits members in insertion order, starting with the version.
type envelopeWriter struct {
	buf bytes.Buffer
	enc *json.Encoder
}

func newEnvelopeWriter() *envelopeWriter {
	w := &envelopeWriter{}
	w.enc = json.NewEncoder(&w.buf)
	w.enc.SetEscapeHTML(false)
	w.buf.WriteString(`{"jsonrpc":"` + VersionString + `"`)
	return w
}

func (w *envelopeWriter) member(key string, v any) error {
	w.buf.WriteByte(',')
	w.buf.WriteString(`"` + key + `":`)
	if err := w.enc.Encode(v); err != nil {
		return err
	}
	// Encode appends a newline.
	w.buf.Truncate(w.buf.Len() - 1)
	return nil
}

func (w *envelopeWriter) bytes() []byte {
	w.buf.WriteByte('}')
	return w.buf.Bytes()
}
