package v1alpha1

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content-subtype the session service speaks
const CodecName = "json"

func init() {
	encoding.RegisterCodec(Codec{})
}

// Codec marshals session messages as JSON on the gRPC wire
type Codec struct{}

// Marshal implements encoding.Codec
func (Codec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

// Unmarshal implements encoding.Codec
func (Codec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Name implements encoding.Codec
func (Codec) Name() string {
	return CodecName
}
