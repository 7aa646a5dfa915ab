// Package client sends requests over a transport and sorts every outcome into a result, an
// application error, or a ProtocolError.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"nano-rpc/message"
	"nano-rpc/transport"
)

// IDSource produces request identifiers. It must be safe for concurrent use.
type IDSource func() message.ID

// RandomID returns string ids of the form "req-<uuid>".
func RandomID() message.ID {
	return message.StringID("req-" + uuid.NewString())
}

// Client is stateless apart from its transport and may be shared between goroutines.
type Client struct {
	transport transport.Transport
	newID     IDSource
}

type Option func(*Client)

func WithIDSource(src IDSource) Option {
	return func(c *Client) {
		c.newID = src
	}
}

func New(t transport.Transport, opts ...Option) *Client {
	c := &Client{transport: t, newID: RandomID}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Transport() transport.Transport {
	return c.transport
}

// Invoke sends one request with already-encoded params.
//
// On success it returns the raw result (JSON null when the server sent none). An error response
// with a non-negative code is returned as appErr for the caller to interpret; every other
// failure is a *ProtocolError:
//
//	transport failure                  KindTransport
//	malformed or missing response      KindFailedDecode
//	method not found                   KindNotFound
//	other negative code, id mismatch   KindServerFail
func (c *Client) Invoke(ctx context.Context, method string, params []json.RawMessage) (result json.RawMessage, appErr *message.Error, err error) {
	req := message.NewRequest(c.newID(), method, params...)

	resp, err := c.transport.Call(ctx, req)
	if err != nil {
		if isDecodeError(err) {
			return nil, nil, Fail(KindFailedDecode, method, err)
		}
		return nil, nil, Fail(KindTransport, method, err)
	}
	if resp == nil {
		return nil, nil, Fail(KindFailedDecode, method, errors.New("no response"))
	}
	if err := resp.Validate(); err != nil {
		return nil, nil, Fail(KindFailedDecode, method, err)
	}

	if resp.Error != nil {
		switch {
		case resp.Error.Code == message.CodeMethodNotFound:
			return nil, nil, Fail(KindNotFound, method, resp.Error)
		case !resp.Error.IsApplication():
			return nil, nil, Fail(KindServerFail, method, resp.Error)
		}
	}
	if !resp.ID.Equal(req.ID) {
		return nil, nil, Fail(KindServerFail, method,
			fmt.Errorf("response id %s does not match request id %s", resp.ID, req.ID))
	}
	if resp.Error != nil {
		return nil, resp.Error, nil
	}

	if len(resp.Result) == 0 {
		return json.RawMessage("null"), nil, nil
	}
	return resp.Result, nil, nil
}

// Call is the untyped form: args are encoded positionally and the result is decoded into
// result, which may be nil to discard it. Application errors are unexpected here and surface
// as KindServerFail.
func (c *Client) Call(ctx context.Context, method string, result any, args ...any) error {
	params := make([]json.RawMessage, len(args))
	for i, arg := range args {
		raw, err := json.Marshal(arg)
		if err != nil {
			return Fail(KindFailedDecode, method, fmt.Errorf("param %d: %w", i, err))
		}
		params[i] = raw
	}

	raw, appErr, err := c.Invoke(ctx, method, params)
	if err != nil {
		return err
	}
	if appErr != nil {
		return Fail(KindServerFail, method, appErr)
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw, result); err != nil {
		return Fail(KindFailedDecode, method, err)
	}
	return nil
}

func isDecodeError(err error) bool {
	return errors.Is(err, message.ErrMalformed) ||
		errors.Is(err, message.ErrVersion) ||
		errors.Is(err, message.ErrAmbiguous)
}
