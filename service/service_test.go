package service

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nano-rpc/codec"
	"nano-rpc/message"
)

// only answers the given method with a fixed result and counts its calls.
func only(method string, result string, calls *atomic.Int32) Service {
	return Func(func(_ context.Context, req *message.Request) *message.Response {
		calls.Add(1)
		if req.Method != method {
			return message.NewErrorResponse(req.ID, message.MethodNotFound(req.Method))
		}
		return message.NewResult(req.ID, json.RawMessage(result))
	})
}

func TestOrFallsBackOnNotFound(t *testing.T) {
	var aCalls, bCalls atomic.Int32
	a := only("add", `"from-a"`, &aCalls)
	b := only("mult", `"from-b"`, &bCalls)
	chained := Or(a, b)

	req := message.NewRequest(message.NumberID(1), "mult")
	direct := b.Respond(context.Background(), req)
	got := chained.Respond(context.Background(), req)
	assert.Equal(t, direct, got)
	assert.JSONEq(t, `"from-b"`, string(got.Result))

	got = chained.Respond(context.Background(), message.NewRequest(message.NumberID(2), "add"))
	assert.JSONEq(t, `"from-a"`, string(got.Result))
}

func TestOrPrefersFirst(t *testing.T) {
	var aCalls, bCalls atomic.Int32
	chained := Or(only("add", `1`, &aCalls), only("add", `2`, &bCalls))

	resp := chained.Respond(context.Background(), message.NewRequest(message.NumberID(1), "add"))
	assert.JSONEq(t, `1`, string(resp.Result))
	assert.Equal(t, int32(0), bCalls.Load())
}

func TestOrKeepsOtherErrors(t *testing.T) {
	failing := Func(func(_ context.Context, req *message.Request) *message.Response {
		return message.NewErrorResponse(req.ID, message.InvalidParams("wrong arity"))
	})
	var calls atomic.Int32
	chained := Or(failing, only("add", `1`, &calls))

	resp := chained.Respond(context.Background(), message.NewRequest(message.NumberID(1), "add"))
	require.NotNil(t, resp.Error)
	assert.Equal(t, message.CodeInvalidParams, resp.Error.Code)
	assert.Equal(t, int32(0), calls.Load())
}

func TestChain(t *testing.T) {
	var calls atomic.Int32
	svc := Chain(only("a", `"a"`, &calls), only("b", `"b"`, &calls), only("c", `"c"`, &calls))

	resp := svc.Respond(context.Background(), message.NewRequest(message.NumberID(1), "c"))
	assert.JSONEq(t, `"c"`, string(resp.Result))

	resp = svc.Respond(context.Background(), message.NewRequest(message.NumberID(2), "d"))
	assert.True(t, IsNotFound(resp))
	assert.Equal(t, "2", resp.ID.String())

	assert.True(t, IsNotFound(Chain().Respond(context.Background(), message.NewRequest(message.NullID(), "x"))))
}

func TestHandle(t *testing.T) {
	var calls atomic.Int32
	svc := only("add", `5`, &calls)
	c := codec.JSONCodec{}

	cases := []struct {
		name string
		body string
		want string
	}{
		{"ok", `{"jsonrpc":"2.0","method":"add","params":[2,3],"id":1}`, `{"jsonrpc":"2.0","result":5,"id":1}`},
		{"not found", `{"jsonrpc":"2.0","method":"sub","params":[],"id":"x"}`,
			`{"jsonrpc":"2.0","error":{"code":-32601,"message":"method not found: sub"},"id":"x"}`},
		{"bad version", `{"jsonrpc":"1.0","method":"add","params":[],"id":7}`, ""},
		{"garbage", `{{{`, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Serve(context.Background(), svc, c, []byte(tc.body))
			require.NoError(t, err)
			if tc.want != "" {
				assert.JSONEq(t, tc.want, string(out))
			}
		})
	}

	resp := Handle(context.Background(), svc, c, []byte(`{"jsonrpc":"1.0","method":"add","id":7}`))
	require.NotNil(t, resp.Error)
	assert.Equal(t, message.CodeInvalidRequest, resp.Error.Code)
	assert.Equal(t, "7", resp.ID.String())

	resp = Handle(context.Background(), svc, c, []byte(`{{{`))
	require.NotNil(t, resp.Error)
	assert.Equal(t, message.CodeParseError, resp.Error.Code)
	assert.Equal(t, "null", resp.ID.String())

	resp = Handle(context.Background(), svc, c, []byte(`{"jsonrpc":"2.0","method":"add"}`))
	require.NotNil(t, resp.Error)
	assert.Equal(t, message.CodeInvalidRequest, resp.Error.Code)
}

func TestHandleNilResponse(t *testing.T) {
	svc := Func(func(context.Context, *message.Request) *message.Response { return nil })
	resp := Handle(context.Background(), svc, codec.JSONCodec{}, []byte(`{"jsonrpc":"2.0","method":"x","id":1}`))
	require.NotNil(t, resp.Error)
	assert.Equal(t, message.CodeInternalError, resp.Error.Code)
}

func TestHandleCBORInvalidID(t *testing.T) {
	var calls atomic.Int32
	svc := only("add", `5`, &calls)
	c, err := codec.GetCodec(codec.CodecTypeCBOR)
	require.NoError(t, err)

	body, err := c.Encode(&message.Request{JSONRPC: message.Version, Method: "add", ID: message.ID("{")})
	require.NoError(t, err)

	resp := Handle(context.Background(), svc, c, body)
	require.NotNil(t, resp.Error)
	assert.Equal(t, message.CodeInvalidRequest, resp.Error.Code)
	assert.Equal(t, "null", resp.ID.String())
	assert.Zero(t, calls.Load())
}

func TestHandleCBORExactMemberNames(t *testing.T) {
	var calls atomic.Int32
	svc := only("add", `5`, &calls)
	c, err := codec.GetCodec(codec.CodecTypeCBOR)
	require.NoError(t, err)

	body, err := c.Encode(map[string]any{
		"JSONRPC": message.Version,
		"METHOD":  "add",
		"id":      []byte("1"),
	})
	require.NoError(t, err)

	resp := Handle(context.Background(), svc, c, body)
	require.NotNil(t, resp.Error)
	assert.Equal(t, message.CodeInvalidRequest, resp.Error.Code)
	assert.Equal(t, "1", resp.ID.String())
	assert.Zero(t, calls.Load())
}
