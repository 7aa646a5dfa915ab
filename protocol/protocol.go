// Package protocol implements the length-prefixed frame used by the TCP transport.
//
// A JSON-RPC envelope has no length of its own on a byte stream, so each envelope is wrapped in
// a frame: a fixed 14-byte header followed by the encoded body. The receiver reads the header,
// then exactly BodyLen bytes.
//
// Frame format:
//
//	0      3  4  5  6         10        14
//	┌──────┬──┬──┬──┬─────────┬─────────┬───────────────┐
//	│magic │v │ct│mt│   seq   │ bodyLen │    body ...    │
//	│ nrp  │01│  │  │ uint32  │ uint32  │ bodyLen bytes  │
//	└──────┴──┴──┴──┴─────────┴─────────┴───────────────┘
//
// seq is transport-level correlation only; the JSON-RPC id inside the body is never touched.
package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"nano-rpc/codec"
)

// Magic bytes "nrp" reject peers that are not speaking this framing (an HTTP client on the
// wrong port, for instance).
const (
	MagicNumber byte = 0x6e // 'n'
	MagicByte2  byte = 0x72 // 'r'
	MagicByte3  byte = 0x70 // 'p'
	Version     byte = 0x01
	HeaderSize  int  = 14 // 3 (magic) + 1 (version) + 1 (codec) + 1 (msgType) + 4 (seq) + 4 (bodyLen)
)

// MaxBodyLen bounds the allocation a peer can force with a single header.
const MaxBodyLen uint32 = 16 << 20

var (
	ErrInvalidMagic = errors.New("protocol: invalid magic number")
	ErrVersion      = errors.New("protocol: unsupported version")
	ErrCodecType    = errors.New("protocol: unsupported codec type")
	ErrMsgType      = errors.New("protocol: unsupported message type")
	ErrBodyTooLarge = errors.New("protocol: body too large")
)

type MsgType byte

const (
	MsgTypeRequest   MsgType = 0 // client → server
	MsgTypeResponse  MsgType = 1 // server → client
	MsgTypeHeartbeat MsgType = 2 // keepalive, no body
)

// Header is the fixed part of a frame.
type Header struct {
	CodecType codec.CodecType
	MsgType   MsgType
	Seq       uint32
	BodyLen   uint32
}

// Encode writes header and body to w in a single Write. BodyLen is taken from len(body).
// Callers sharing w between goroutines must serialize calls.
func Encode(w io.Writer, h *Header, body []byte) error {
	if len(body) > int(MaxBodyLen) {
		return fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, len(body))
	}
	h.BodyLen = uint32(len(body))

	buf := make([]byte, HeaderSize+len(body))
	copy(buf[0:3], []byte{MagicNumber, MagicByte2, MagicByte3})
	buf[3] = Version
	buf[4] = byte(h.CodecType)
	buf[5] = byte(h.MsgType)
	binary.BigEndian.PutUint32(buf[6:10], h.Seq)
	binary.BigEndian.PutUint32(buf[10:14], h.BodyLen)
	copy(buf[HeaderSize:], body)

	_, err := w.Write(buf)
	return err
}

// Decode reads one frame from r, validating every header field before allocating the body.
func Decode(r io.Reader) (*Header, []byte, error) {
	headerBuf := make([]byte, HeaderSize)
	if _, err := io.ReadFull(r, headerBuf); err != nil {
		return nil, nil, err
	}

	if headerBuf[0] != MagicNumber || headerBuf[1] != MagicByte2 || headerBuf[2] != MagicByte3 {
		return nil, nil, fmt.Errorf("%w: %x", ErrInvalidMagic, headerBuf[0:3])
	}
	if headerBuf[3] != Version {
		return nil, nil, fmt.Errorf("%w: %d", ErrVersion, headerBuf[3])
	}
	ct := codec.CodecType(headerBuf[4])
	if ct != codec.CodecTypeJSON && ct != codec.CodecTypeCBOR {
		return nil, nil, fmt.Errorf("%w: %d", ErrCodecType, headerBuf[4])
	}
	msgType := MsgType(headerBuf[5])
	if msgType != MsgTypeRequest && msgType != MsgTypeResponse && msgType != MsgTypeHeartbeat {
		return nil, nil, fmt.Errorf("%w: %d", ErrMsgType, headerBuf[5])
	}

	seq := binary.BigEndian.Uint32(headerBuf[6:10])
	bodyLen := binary.BigEndian.Uint32(headerBuf[10:14])
	if bodyLen > MaxBodyLen {
		return nil, nil, fmt.Errorf("%w: %d bytes", ErrBodyTooLarge, bodyLen)
	}

	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, nil, err
	}

	return &Header{
		CodecType: ct,
		MsgType:   msgType,
		Seq:       seq,
		BodyLen:   bodyLen,
	}, body, nil
}
