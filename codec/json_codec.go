package codec

import (
	"encoding/json"
)

// JSONCodec writes envelopes exactly as they appear on the JSON-RPC wire.
type JSONCodec struct{}

func (JSONCodec) Encode(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (JSONCodec) Decode(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (JSONCodec) Type() CodecType {
	return CodecTypeJSON
}
