package codec

import (
	"github.com/fxamacker/cbor/v2"
)

// CBORCodec packs the envelope structure in CBOR. Params, results and error data stay raw JSON
// and travel as byte strings, so the JSON view of a message is identical under both codecs.
type CBORCodec struct {
	enc cbor.EncMode
	dec cbor.DecMode
}

var cborCodec = mustCBOR()

// Envelope keys are matched exactly, as on the JSON path.
func mustCBOR() *CBORCodec {
	c, err := NewCBORCodec(cbor.DecOptions{
		MaxNestedLevels:   32,
		MaxArrayElements:  1 << 16,
		MaxMapPairs:       1 << 12,
		FieldNameMatching: cbor.FieldNameMatchingCaseSensitive,
	})
	if err != nil {
		panic(err)
	}
	return c
}

// NewCBORCodec builds a codec with the given decoding limits for untrusted frames.
func NewCBORCodec(opts cbor.DecOptions) (*CBORCodec, error) {
	enc, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		return nil, err
	}
	dec, err := opts.DecMode()
	if err != nil {
		return nil, err
	}
	return &CBORCodec{enc: enc, dec: dec}, nil
}

func (c *CBORCodec) Encode(v any) ([]byte, error) {
	return c.enc.Marshal(v)
}

func (c *CBORCodec) Decode(data []byte, v any) error {
	return c.dec.Unmarshal(data, v)
}

func (c *CBORCodec) Type() CodecType {
	return CodecTypeCBOR
}
