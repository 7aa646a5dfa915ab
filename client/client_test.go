package client

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nano-rpc/message"
	"nano-rpc/service"
	"nano-rpc/transport"
)

// answer replies to every request with resp, rewritten to carry the request's id.
func answer(resp message.Response) transport.Transport {
	return transport.Func(func(_ context.Context, req *message.Request) (*message.Response, error) {
		r := resp
		r.ID = req.ID
		return &r, nil
	})
}

func TestRandomID(t *testing.T) {
	var s string
	require.NoError(t, json.Unmarshal(RandomID(), &s))
	assert.True(t, strings.HasPrefix(s, "req-"))
	assert.NotEqual(t, string(RandomID()), string(RandomID()))
}

func TestInvokeSuccess(t *testing.T) {
	var seen *message.Request
	tr := transport.Func(func(_ context.Context, req *message.Request) (*message.Response, error) {
		seen = req
		return message.NewResult(req.ID, json.RawMessage("5")), nil
	})
	c := New(tr, WithIDSource(func() message.ID { return message.NumberID(1) }))

	result, appErr, err := c.Invoke(context.Background(), "add", []json.RawMessage{json.RawMessage("2"), json.RawMessage("3")})
	require.NoError(t, err)
	assert.Nil(t, appErr)
	assert.JSONEq(t, "5", string(result))

	body, err := json.Marshal(seen)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","method":"add","params":[2,3],"id":1}`, string(body))
}

func TestInvokeClassification(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name string
		tr   transport.Transport
		kind ErrorKind
		is   error
	}{
		{"transport", transport.Func(func(context.Context, *message.Request) (*message.Response, error) {
			return nil, boom
		}), KindTransport, ErrTransport},
		{"malformed", transport.Func(func(context.Context, *message.Request) (*message.Response, error) {
			return message.DecodeResponse([]byte("garbage"))
		}), KindFailedDecode, ErrFailedDecode},
		{"nil response", transport.Func(func(context.Context, *message.Request) (*message.Response, error) {
			return nil, nil
		}), KindFailedDecode, ErrFailedDecode},
		{"not found", transport.Loopback(service.NotFound), KindNotFound, ErrNotFound},
		{"internal", answer(message.Response{JSONRPC: message.Version, Error: message.InternalError("panic")}),
			KindServerFail, ErrServerFail},
		{"id mismatch", transport.Func(func(context.Context, *message.Request) (*message.Response, error) {
			return message.NewResult(message.StringID("other"), json.RawMessage("1")), nil
		}), KindServerFail, ErrServerFail},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, appErr, err := New(tc.tr).Invoke(context.Background(), "m", nil)
			assert.Nil(t, appErr)

			var perr *ProtocolError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tc.kind, perr.Kind)
			assert.Equal(t, "m", perr.Method)
			assert.ErrorIs(t, err, tc.is)
		})
	}
}

func TestInvokeTransportErrorReachable(t *testing.T) {
	boom := errors.New("connection refused")
	tr := transport.Func(func(context.Context, *message.Request) (*message.Response, error) {
		return nil, boom
	})
	_, _, err := New(tr).Invoke(context.Background(), "m", nil)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "rpc m: transport: connection refused", err.Error())
}

func TestInvokeApplicationError(t *testing.T) {
	tr := answer(message.Response{JSONRPC: message.Version, Error: message.Application(1, "nope", json.RawMessage(`"nope"`))})

	result, appErr, err := New(tr).Invoke(context.Background(), "maybe_fail", nil)
	require.NoError(t, err)
	assert.Nil(t, result)
	require.NotNil(t, appErr)
	assert.Equal(t, message.CodeApplication, appErr.Code)
	assert.JSONEq(t, `"nope"`, string(appErr.Data))
}

func TestInvokeMissingResult(t *testing.T) {
	tr := answer(message.Response{JSONRPC: message.Version})
	result, _, err := New(tr).Invoke(context.Background(), "m", nil)
	require.NoError(t, err)
	assert.Equal(t, "null", string(result))
}

func TestCall(t *testing.T) {
	sum := service.Func(func(_ context.Context, req *message.Request) *message.Response {
		var a, b int
		json.Unmarshal(req.Params[0], &a)
		json.Unmarshal(req.Params[1], &b)
		out, _ := json.Marshal(a + b)
		return message.NewResult(req.ID, out)
	})
	c := New(transport.Loopback(sum))

	var got int
	require.NoError(t, c.Call(context.Background(), "add", &got, 2, 3))
	assert.Equal(t, 5, got)

	var s string
	err := c.Call(context.Background(), "add", &s, 2, 3)
	assert.ErrorIs(t, err, ErrFailedDecode)

	err = c.Call(context.Background(), "add", nil, make(chan int), 1)
	assert.ErrorIs(t, err, ErrFailedDecode)
}

func TestCallApplicationErrorIsServerFail(t *testing.T) {
	tr := answer(message.Response{JSONRPC: message.Version, Error: message.Application(1, "nope", nil)})
	err := New(tr).Call(context.Background(), "m", nil)
	assert.ErrorIs(t, err, ErrServerFail)

	var wire *message.Error
	require.ErrorAs(t, err, &wire)
	assert.Equal(t, "nope", wire.Message)
}

func TestErrorKindString(t *testing.T) {
	assert.Equal(t, "not found", KindNotFound.String())
	assert.Equal(t, "kind(9)", ErrorKind(9).String())
}
