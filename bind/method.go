package bind

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"nano-rpc/client"
	"nano-rpc/message"
)

// Descriptor describes one method of a protocol: its wire name, its positional parameters and
// what it returns. The same descriptor builds the server handler and the client call.
type Descriptor interface {
	Name() string
	// Params lists parameter names in wire order.
	Params() []string
	Result() reflect.Type
	// AppError is the application error type of a fallible method, nil otherwise.
	AppError() reflect.Type

	bind(fn reflect.Value) (Handler, error)
}

// Coder is implemented by application errors that choose their own wire code. Negative codes
// are reserved and replaced by message.CodeApplication.
type Coder interface {
	RPCCode() int
}

// Method describes a method that always produces a result. P is the parameter struct.
type Method[P, R any] struct {
	name   string
	params paramCodec
}

// NewMethod panics if name is empty or P is not a struct.
func NewMethod[P, R any](name string) Method[P, R] {
	if name == "" {
		panic("bind: empty method name")
	}
	return Method[P, R]{name: name, params: newParamCodec(reflect.TypeFor[P]())}
}

func (m Method[P, R]) Name() string { return m.name }
func (m Method[P, R]) Params() []string { return append([]string(nil), m.params.names...) }
func (m Method[P, R]) Result() reflect.Type { return reflect.TypeFor[R]() }
func (m Method[P, R]) AppError() reflect.Type { return nil }
func (m Method[P, R]) String() string { return signature(m) }

func (m Method[P, R]) bind(fn reflect.Value) (Handler, error) {
	f, ok := fn.Interface().(func(context.Context, P) R)
	if !ok {
		return Handler{}, fmt.Errorf("%s: want func(context.Context, %s) %s, got %s",
			m.name, m.params.typ, m.Result(), fn.Type())
	}
	return m.Handle(f), nil
}

// Handle binds fn as the implementation of m.
func (m Method[P, R]) Handle(fn func(ctx context.Context, params P) R) Handler {
	return Handler{
		name: m.name,
		invoke: func(ctx context.Context, raw []json.RawMessage) (json.RawMessage, *message.Error) {
			p, err := decodeParams[P](m.params, raw)
			if err != nil {
				return nil, message.InvalidParams(err.Error())
			}
			return encodeResult(fn(ctx, p))
		},
	}
}

// Call invokes m through c. Any failure is a *client.ProtocolError; an application error from
// the server is unexpected for a plain method and reported as client.KindServerFail.
func (m Method[P, R]) Call(ctx context.Context, c *client.Client, params P) (R, error) {
	var zero R
	raw, appErr, err := invoke(ctx, c, m.name, m.params, params)
	if err != nil {
		return zero, err
	}
	if appErr != nil {
		return zero, client.Fail(client.KindServerFail, m.name, appErr)
	}
	return decodeResult[R](m.name, raw)
}

// FallibleMethod describes a method whose implementation may fail with the application error E.
// E crosses the wire as the error's data and is handed back to the caller as-is.
type FallibleMethod[P, R any, E error] struct {
	name   string
	params paramCodec
}

// NewFallibleMethod panics if name is empty or P is not a struct.
func NewFallibleMethod[P, R any, E error](name string) FallibleMethod[P, R, E] {
	if name == "" {
		panic("bind: empty method name")
	}
	return FallibleMethod[P, R, E]{name: name, params: newParamCodec(reflect.TypeFor[P]())}
}

func (m FallibleMethod[P, R, E]) Name() string { return m.name }
func (m FallibleMethod[P, R, E]) Params() []string { return append([]string(nil), m.params.names...) }
func (m FallibleMethod[P, R, E]) Result() reflect.Type { return reflect.TypeFor[R]() }
func (m FallibleMethod[P, R, E]) AppError() reflect.Type { return reflect.TypeFor[E]() }
func (m FallibleMethod[P, R, E]) String() string { return signature(m) }

func (m FallibleMethod[P, R, E]) bind(fn reflect.Value) (Handler, error) {
	f, ok := fn.Interface().(func(context.Context, P) (R, error))
	if !ok {
		return Handler{}, fmt.Errorf("%s: want func(context.Context, %s) (%s, error), got %s",
			m.name, m.params.typ, m.Result(), fn.Type())
	}
	return m.Handle(f), nil
}

// Handle binds fn as the implementation of m. An error that errors.As matches E becomes an
// application error; any other error is reported as an internal error.
func (m FallibleMethod[P, R, E]) Handle(fn func(ctx context.Context, params P) (R, error)) Handler {
	return Handler{
		name: m.name,
		invoke: func(ctx context.Context, raw []json.RawMessage) (json.RawMessage, *message.Error) {
			p, err := decodeParams[P](m.params, raw)
			if err != nil {
				return nil, message.InvalidParams(err.Error())
			}
			r, err := fn(ctx, p)
			if err == nil {
				return encodeResult(r)
			}
			var appErr E
			if errors.As(err, &appErr) {
				return nil, applicationError(appErr)
			}
			return nil, message.InternalError(err.Error())
		},
	}
}

// Call invokes m through c. The error is either the server's E, decoded, or a
// *client.ProtocolError.
func (m FallibleMethod[P, R, E]) Call(ctx context.Context, c *client.Client, params P) (R, error) {
	var zero R
	raw, appErr, err := invoke(ctx, c, m.name, m.params, params)
	if err != nil {
		return zero, err
	}
	if appErr != nil {
		e, err := decodeAppError[E](appErr)
		if err != nil {
			return zero, client.Fail(client.KindFailedDecode, m.name, err)
		}
		return zero, e
	}
	return decodeResult[R](m.name, raw)
}

func invoke[P any](ctx context.Context, c *client.Client, method string, pc paramCodec, params P) (json.RawMessage, *message.Error, error) {
	raw, err := encodeParams(pc, params)
	if err != nil {
		return nil, nil, client.Fail(client.KindFailedDecode, method, err)
	}
	return c.Invoke(ctx, method, raw)
}

func encodeResult[R any](r R) (json.RawMessage, *message.Error) {
	out, err := json.Marshal(r)
	if err != nil {
		return nil, message.InternalError("encode result: " + err.Error())
	}
	return out, nil
}

func decodeResult[R any](method string, raw json.RawMessage) (R, error) {
	var r R
	if err := json.Unmarshal(raw, &r); err != nil {
		return r, client.Fail(client.KindFailedDecode, method, err)
	}
	return r, nil
}

func applicationError(err error) *message.Error {
	code := message.CodeApplication
	if c, ok := err.(Coder); ok {
		code = c.RPCCode()
	}
	data, merr := json.Marshal(err)
	if merr != nil {
		data = nil
	}
	return message.Application(code, err.Error(), data)
}

// decodeAppError rebuilds E from the error's data, or from its message when data is absent or
// does not fit E.
func decodeAppError[E error](wire *message.Error) (E, error) {
	var e E
	if len(wire.Data) > 0 {
		if err := json.Unmarshal(wire.Data, &e); err == nil && !isNil(e) {
			return e, nil
		}
		e = *new(E)
	}
	msg, _ := json.Marshal(wire.Message)
	if err := json.Unmarshal(msg, &e); err != nil {
		return e, fmt.Errorf("application error %d: %w", wire.Code, err)
	}
	if isNil(e) {
		return e, fmt.Errorf("application error %d: no value", wire.Code)
	}
	return e, nil
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func signature(d Descriptor) string {
	s := fmt.Sprintf("%s(%v) %s", d.Name(), d.Params(), d.Result())
	if e := d.AppError(); e != nil {
		s += " or " + e.String()
	}
	return s
}
