package jsonrpc

import (
	"encoding/json"
	"fmt"
)

// VersionString is the only protocol version this package speaks.
const VersionString = "2.0"

// Version is the "jsonrpc" member of every envelope. It carries no data; it
// marshals to "2.0" and refuses to unmarshal anything else.
type Version struct{}

func (Version) String() string { return VersionString }

func (Version) MarshalJSON() ([]byte, error) {
	return []byte(`"` + VersionString + `"`), nil
}

func (*Version) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("jsonrpc: invalid version: %w", err)
	}
	if s != VersionString {
		return &UnknownVariantError{Field: "jsonrpc", Got: s, Expected: []string{VersionString}}
	}
	return nil
}
