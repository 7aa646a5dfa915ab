package message

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

var ErrInvalidID = errors.New("message: id must be a number, string or null")

// ID is the raw JSON text of a request identifier. It is round-tripped verbatim.
// An empty ID means the field was absent, which is distinct from NullID.
type ID []byte

func NumberID(n int64) ID {
	return ID(strconv.AppendInt(nil, n, 10))
}

func StringID(s string) ID {
	b, _ := json.Marshal(s)
	return ID(b)
}

func NullID() ID {
	return ID("null")
}

func (id ID) MarshalJSON() ([]byte, error) {
	if len(id) == 0 {
		return []byte("null"), nil
	}
	return id, nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if err := checkID(data); err != nil {
		return err
	}
	*id = append(ID(nil), data...)
	return nil
}

// Valid reports whether id holds a JSON number, string or null. Codecs other than JSON carry
// the id as opaque bytes and skip UnmarshalJSON, so Request.Validate checks it again.
func (id ID) Valid() bool {
	return checkID(id) == nil
}

func checkID(data []byte) error {
	if len(data) == 0 {
		return ErrInvalidID
	}
	switch c := data[0]; {
	case c == 'n':
		if string(data) != "null" {
			return fmt.Errorf("%w: got %s", ErrInvalidID, data)
		}
	case c == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidID, err)
		}
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidID, err)
		}
	default:
		return fmt.Errorf("%w: got %s", ErrInvalidID, data)
	}
	return nil
}

// Equal compares two ids by their JSON text.
func (id ID) Equal(other ID) bool {
	return bytes.Equal(id, other)
}

func (id ID) String() string {
	if len(id) == 0 {
		return "<none>"
	}
	return string(id)
}
