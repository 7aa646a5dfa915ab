package bind

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// paramCodec maps a parameter struct to positional JSON params: exported fields in declaration
// order, skipping fields tagged `json:"-"`.
type paramCodec struct {
	typ    reflect.Type
	fields []int
	names  []string
}

func newParamCodec(t reflect.Type) paramCodec {
	if t.Kind() != reflect.Struct {
		panic(fmt.Sprintf("bind: params must be a struct, got %s", t))
	}
	c := paramCodec{typ: t}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}
		name := field.Name
		if tag := field.Tag.Get("json"); tag != "" {
			tagName := strings.Split(tag, ",")[0]
			if tagName == "-" {
				continue
			}
			if tagName != "" {
				name = tagName
			}
		}
		c.fields = append(c.fields, i)
		c.names = append(c.names, name)
	}
	return c
}

func (c paramCodec) encode(v reflect.Value) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, len(c.fields))
	for i, idx := range c.fields {
		raw, err := json.Marshal(v.Field(idx).Interface())
		if err != nil {
			return nil, fmt.Errorf("param %s: %w", c.names[i], err)
		}
		out[i] = raw
	}
	return out, nil
}

// decode fills dst, a settable struct value, from raw. The count must match exactly and a null
// is only accepted where the field can hold one.
func (c paramCodec) decode(raw []json.RawMessage, dst reflect.Value) error {
	if len(raw) != len(c.fields) {
		return fmt.Errorf("expected %d params, got %d", len(c.fields), len(raw))
	}
	for i, idx := range c.fields {
		field := dst.Field(idx)
		if string(raw[i]) == "null" && !nullable(field.Kind()) {
			return fmt.Errorf("param %s: null is not a %s", c.names[i], field.Type())
		}
		if err := json.Unmarshal(raw[i], field.Addr().Interface()); err != nil {
			return fmt.Errorf("param %s: %w", c.names[i], err)
		}
	}
	return nil
}

func nullable(k reflect.Kind) bool {
	switch k {
	case reflect.Pointer, reflect.Interface, reflect.Slice, reflect.Map:
		return true
	}
	return false
}

func decodeParams[P any](c paramCodec, raw []json.RawMessage) (P, error) {
	var p P
	err := c.decode(raw, reflect.ValueOf(&p).Elem())
	return p, err
}

func encodeParams[P any](c paramCodec, p P) ([]json.RawMessage, error) {
	return c.encode(reflect.ValueOf(p))
}

// None is the result of a method that returns nothing. It travels as null.
type None struct{}

func (None) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

func (*None) UnmarshalJSON([]byte) error {
	return nil
}
