package transport

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"nano-rpc/codec"
	"nano-rpc/message"
	"nano-rpc/protocol"
)

// Framed multiplexes concurrent calls over a single stream connection.
//
// Every call gets its own frame sequence number and a pending channel; one goroutine (recvLoop)
// reads every response frame and routes it by sequence number to the waiting caller:
//
//	goroutine-1 ──seq=1──┐
//	goroutine-2 ──seq=2──┼──→ one conn ──→ server
//	goroutine-3 ──seq=3──┘
//
//	recvLoop: ←── frame(seq=2) → pending[2] → goroutine-2 wakes up
//
// Responses may arrive in any order. The JSON-RPC id inside each envelope is left untouched.
type Framed struct {
	conn   net.Conn
	codec  codec.Codec
	logger *zap.Logger

	sending sync.Mutex // a frame must be written whole
	seq     uint32     // guarded by sending
	pending sync.Map   // uint32 → chan reply

	done     chan struct{}
	failOnce sync.Once
	err      error // set before done is closed
}

type reply struct {
	resp *message.Response
	err  error
}

type framedOptions struct {
	codec     codec.CodecType
	heartbeat time.Duration
	logger    *zap.Logger
}

type FramedOption func(*framedOptions)

// WithCodec selects the frame body encoding. JSON is the default.
func WithCodec(t codec.CodecType) FramedOption {
	return func(o *framedOptions) {
		o.codec = t
	}
}

// WithHeartbeat sets the keepalive interval; zero disables heartbeats.
func WithHeartbeat(d time.Duration) FramedOption {
	return func(o *framedOptions) {
		o.heartbeat = d
	}
}

func WithLogger(logger *zap.Logger) FramedOption {
	return func(o *framedOptions) {
		o.logger = logger
	}
}

// NewFramed takes ownership of conn and starts its receive loop and, if enabled, heartbeats.
func NewFramed(conn net.Conn, opts ...FramedOption) (*Framed, error) {
	o := framedOptions{
		codec:     codec.CodecTypeJSON,
		heartbeat: 30 * time.Second,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	c, err := codec.GetCodec(o.codec)
	if err != nil {
		return nil, err
	}

	t := &Framed{
		conn:   conn,
		codec:  c,
		logger: o.logger.With(zap.String("remote", conn.RemoteAddr().String())),
		done:   make(chan struct{}),
	}
	go t.recvLoop()
	if o.heartbeat > 0 {
		go t.heartbeatLoop(o.heartbeat)
	}
	return t, nil
}

// DialFramed connects to addr and wraps the connection.
func DialFramed(ctx context.Context, network, addr string, opts ...FramedOption) (*Framed, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, network, addr)
	if err != nil {
		return nil, err
	}
	t, err := NewFramed(conn, opts...)
	if err != nil {
		conn.Close()
		return nil, err
	}
	return t, nil
}

func (t *Framed) Call(ctx context.Context, req *message.Request) (*message.Response, error) {
	body, err := t.codec.Encode(req)
	if err != nil {
		return nil, err
	}

	// buffered so that recvLoop never blocks on a caller that gave up
	ch := make(chan reply, 1)

	t.sending.Lock()
	select {
	case <-t.done:
		t.sending.Unlock()
		return nil, t.err
	default:
	}
	t.seq++
	seq := t.seq
	// registered before writing, the response can come back before Encode returns
	t.pending.Store(seq, ch)
	err = protocol.Encode(t.conn, &protocol.Header{
		CodecType: t.codec.Type(),
		MsgType:   protocol.MsgTypeRequest,
		Seq:       seq,
	}, body)
	t.sending.Unlock()
	if err != nil {
		t.pending.Delete(seq)
		t.fail(err)
		return nil, err
	}

	select {
	case r := <-ch:
		return r.resp, r.err
	case <-t.done:
		select {
		case r := <-ch:
			return r.resp, r.err
		default:
		}
		return nil, t.err
	case <-ctx.Done():
		t.pending.Delete(seq)
		return nil, ctx.Err()
	}
}

// recvLoop is the only reader of the connection: frame boundaries can only be found by
// reading the stream in order.
func (t *Framed) recvLoop() {
	for {
		header, body, err := protocol.Decode(t.conn)
		if err != nil {
			t.fail(err)
			return
		}
		if header.MsgType != protocol.MsgTypeResponse {
			continue
		}

		ch, ok := t.pending.LoadAndDelete(header.Seq)
		if !ok {
			t.logger.Debug("dropping response for abandoned call", zap.Uint32("seq", header.Seq))
			continue
		}
		ch.(chan reply) <- t.decode(header, body)
	}
}

func (t *Framed) decode(header *protocol.Header, body []byte) reply {
	c, err := codec.GetCodec(header.CodecType)
	if err != nil {
		return reply{err: err}
	}
	var resp message.Response
	if err := c.Decode(body, &resp); err != nil {
		return reply{err: fmt.Errorf("%w: %v", message.ErrMalformed, err)}
	}
	if err := resp.Validate(); err != nil {
		return reply{err: err}
	}
	return reply{resp: &resp}
}

// fail tears the connection down once and wakes every pending caller with err.
func (t *Framed) fail(err error) {
	t.failOnce.Do(func() {
		t.err = err
		close(t.done)
		t.conn.Close()
		t.pending.Range(func(key, _ any) bool {
			if ch, ok := t.pending.LoadAndDelete(key); ok {
				ch.(chan reply) <- reply{err: err}
			}
			return true
		})
		if err != ErrClosed {
			t.logger.Debug("connection failed", zap.Error(err))
		}
	})
}

func (t *Framed) heartbeatLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
		}
		t.sending.Lock()
		err := protocol.Encode(t.conn, &protocol.Header{
			CodecType: t.codec.Type(),
			MsgType:   protocol.MsgTypeHeartbeat,
		}, nil)
		t.sending.Unlock()
		if err != nil {
			t.fail(err)
			return
		}
	}
}

// Close fails every pending call with ErrClosed and closes the connection.
func (t *Framed) Close() error {
	t.fail(ErrClosed)
	return nil
}

// Done is closed once the connection is no longer usable.
func (t *Framed) Done() <-chan struct{} {
	return t.done
}

// Err reports why the connection stopped; nil while it is alive.
func (t *Framed) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}
