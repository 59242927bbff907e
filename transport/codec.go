package transport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/fxamacker/cbor/v2"
)

const (
	// ContentTypeJSON is the base protocol default, used when a frame has no
	// Content-Type header.
	ContentTypeJSON = "application/vscode-jsonrpc; charset=utf-8"
	ContentTypeCBOR = "application/cbor"
)

// Codec converts envelope JSON to and from a frame body. Envelopes are
// always built and parsed as JSON; a non-JSON codec transcodes the JSON
// value tree.
type Codec struct {
	name        string
	contentType string
	marshal     func(v any) ([]byte, error)
	unmarshal   func(data []byte, v any) error
}

// JSON passes envelope JSON through unchanged. Its frames carry no
// Content-Type header.
var JSON = &Codec{name: "json"}

// CBOR carries envelopes as CBOR maps.
var CBOR = newCBORCodec()

func newCBORCodec() *Codec {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return &Codec{
		name:        "cbor",
		contentType: ContentTypeCBOR,
		marshal:     em.Marshal,
		unmarshal:   dm.Unmarshal,
	}
}

// CodecByName returns the codec called name ("json" or "cbor").
func CodecByName(name string) (*Codec, error) {
	switch strings.ToLower(name) {
	case "", "json":
		return JSON, nil
	case "cbor":
		return CBOR, nil
	}
	return nil, fmt.Errorf("unknown codec %q", name)
}

// CodecFor returns the codec for a frame's Content-Type header.
func CodecFor(contentType string) (*Codec, error) {
	if contentType == "" {
		return JSON, nil
	}
	mt, _, _ := strings.Cut(contentType, ";")
	switch strings.ToLower(strings.TrimSpace(mt)) {
	case "application/vscode-jsonrpc", "application/json":
		return JSON, nil
	case ContentTypeCBOR:
		return CBOR, nil
	}
	return nil, fmt.Errorf("unsupported Content-Type %q", contentType)
}

func (c *Codec) Name() string {
	return c.name
}

// ContentType is the header value for frames this codec writes.
func (c *Codec) ContentType() string {
	return c.contentType
}

// Encode converts envelope JSON to a frame body.
func (c *Codec) Encode(data []byte) ([]byte, error) {
	if c.marshal == nil {
		return data, nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return c.marshal(fromJSONNumbers(v))
}

// Decode converts a frame body to envelope JSON.
func (c *Codec) Decode(body []byte) ([]byte, error) {
	if c.unmarshal == nil {
		return body, nil
	}
	var v any
	if err := c.unmarshal(body, &v); err != nil {
		return nil, fmt.Errorf("%s: %w", c.name, err)
	}
	return json.Marshal(v)
}

// fromJSONNumbers replaces json.Number leaves with int64 where they are
// integers and float64 otherwise, so request ids survive as CBOR integers.
func fromJSONNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n
		}
		f, _ := t.Float64()
		return f
	case map[string]any:
		for k, e := range t {
			t[k] = fromJSONNumbers(e)
		}
	case []any:
		for i, e := range t {
			t[i] = fromJSONNumbers(e)
		}
	}
	return v
}
