package transport

import (
	"encoding/json"

	"connectrpc.com/connect"
)

// jsonCodec lets connect carry plain Go structs. It takes the "json" name, so
// it replaces the protobuf JSON codec on both clients and handlers.
type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }

func (jsonCodec) Marshal(v any) ([]byte, error) { return json.Marshal(v) }

func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }

// WithJSONCodec is required on every client and handler of this service.
func WithJSONCodec() connect.Option {
	return connect.WithCodec(jsonCodec{})
}
