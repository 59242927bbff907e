package jsonrpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

type idKind uint8

const (
	idNull idKind = iota
	idNumber
	idString
)

// ID identifies a request and correlates its response. It is a number, a
// string, or null.
//
// Null is legal on the wire but reserved by JSON-RPC for responses to
// requests whose id could not be determined, so it never correlates.
//
// ID is comparable and may be used as a map key.
type ID struct {
	kind idKind
	num  int64
	str  string
}

// NullID is the null identifier.
var NullID = ID{}

// NumberID returns a numeric identifier.
func NumberID(n int64) ID {
	return ID{kind: idNumber, num: n}
}

// StringID returns a string identifier.
func StringID(s string) ID {
	return ID{kind: idString, str: s}
}

func (id ID) IsNull() bool {
	return id.kind == idNull
}

// Number returns the numeric value and whether id is a number.
func (id ID) Number() (int64, bool) {
	return id.num, id.kind == idNumber
}

// Text returns the string value and whether id is a string.
func (id ID) Text() (string, bool) {
	return id.str, id.kind == idString
}

// String renders id as it appears on the wire, so that distinct ids always
// have distinct renderings: 1, "1" and null.
func (id ID) String() string {
	switch id.kind {
	case idNumber:
		return strconv.FormatInt(id.num, 10)
	case idString:
		return strconv.Quote(id.str)
	}
	return "null"
}

func (id ID) MarshalJSON() ([]byte, error) {
	switch id.kind {
	case idNumber:
		return strconv.AppendInt(nil, id.num, 10), nil
	case idString:
		return json.Marshal(id.str)
	}
	return []byte("null"), nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return fmt.Errorf("jsonrpc: invalid id: empty")
	}
	switch data[0] {
	case 'n':
		if string(data) != "null" {
			return fmt.Errorf("jsonrpc: invalid id: %s", data)
		}
		*id = NullID
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("jsonrpc: invalid id: %w", err)
		}
		*id = StringID(s)
		return nil
	}
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("jsonrpc: invalid id %s: must be an integer, string or null", data)
	}
	*id = NumberID(n)
	return nil
}
