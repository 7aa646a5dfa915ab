// Package server exposes a service.Service to remote callers.
//
// Server speaks the framed TCP protocol used by transport.Framed; HTTPHandler serves JSON-RPC
// over HTTP POST. Both hand untrusted bytes to service.Serve and so share its parse and
// validation behavior.
//
// Request processing on a framed connection:
//
//	Accept conn → handleConn (one goroutine reads frames)
//	  → for each request: go handleRequest
//	    → codec → middleware chain → service → codec → write response frame
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"nano-rpc/codec"
	"nano-rpc/middleware"
	"nano-rpc/protocol"
	"nano-rpc/registry"
	"nano-rpc/service"
)

var ErrServerClosed = errors.New("server: closed")

// Server accepts framed connections and answers each request with the wrapped service.
type Server struct {
	svc         service.Service
	middlewares []middleware.Middleware
	handler     service.Service // middlewares applied to svc, built once in Serve
	logger      *zap.Logger

	registry      registry.Registry
	serviceName   string
	advertiseAddr string // routable address registered for clients, unlike ":8080"
	ttl           int64

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}

	wg       sync.WaitGroup // in-flight requests
	shutdown atomic.Bool

	// parent of every connection context; Shutdown cancels it once it stops waiting
	ctx    context.Context
	cancel context.CancelFunc
}

type Option func(*Server)

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithRegistry announces the server under serviceName at advertiseAddr while it is serving.
func WithRegistry(reg registry.Registry, serviceName, advertiseAddr string, ttl int64) Option {
	return func(s *Server) {
		s.registry = reg
		s.serviceName = serviceName
		s.advertiseAddr = advertiseAddr
		s.ttl = ttl
	}
}

func NewServer(svc service.Service, opts ...Option) *Server {
	s := &Server{
		svc:    svc,
		logger: zap.NewNop(),
		conns:  make(map[net.Conn]struct{}),
		ttl:    10,
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Use registers a middleware. Middlewares apply in the order added; call Use before Serve.
func (s *Server) Use(mw middleware.Middleware) {
	s.middlewares = append(s.middlewares, mw)
}

// ListenAndServe listens on addr and calls Serve.
func (s *Server) ListenAndServe(network, addr string) error {
	lis, err := net.Listen(network, addr)
	if err != nil {
		return err
	}
	return s.Serve(lis)
}

// Serve accepts connections on lis until Shutdown. It returns nil after a Shutdown and the
// accept error otherwise.
func (s *Server) Serve(lis net.Listener) error {
	if s.shutdown.Load() {
		lis.Close()
		return ErrServerClosed
	}
	s.handler = middleware.Apply(s.svc, s.middlewares...)

	s.mu.Lock()
	s.listener = lis
	s.mu.Unlock()

	if s.registry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := s.registry.Register(ctx, s.serviceName, registry.ServiceInstance{Addr: s.advertiseAddr}, s.ttl)
		cancel()
		if err != nil {
			lis.Close()
			return fmt.Errorf("server: register %s: %w", s.serviceName, err)
		}
	}

	s.logger.Info("serving", zap.String("addr", lis.Addr().String()))
	for {
		conn, err := lis.Accept()
		if err != nil {
			// Shutdown closes the listener, which surfaces here as an accept error
			if s.shutdown.Load() {
				return nil
			}
			return err
		}
		s.track(conn, true)
		go s.handleConn(conn)
	}
}

func (s *Server) track(conn net.Conn, add bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if add {
		s.conns[conn] = struct{}{}
	} else {
		delete(s.conns, conn)
	}
}

// handleConn is the single reader of conn. Requests are answered in parallel; writeMu keeps
// their response frames from interleaving. Their context is cancelled when the read loop ends,
// which is how a handler learns that its caller went away.
func (s *Server) handleConn(conn net.Conn) {
	ctx, cancel := context.WithCancel(s.ctx)
	defer func() {
		cancel()
		s.track(conn, false)
		conn.Close()
	}()
	writeMu := &sync.Mutex{}
	for {
		header, body, err := protocol.Decode(conn)
		if err != nil {
			if !s.shutdown.Load() && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("closing connection", zap.Stringer("remote", conn.RemoteAddr()), zap.Error(err))
			}
			return
		}
		switch header.MsgType {
		case protocol.MsgTypeHeartbeat:
			continue
		case protocol.MsgTypeRequest:
			s.wg.Add(1)
			go s.handleRequest(ctx, header, body, conn, writeMu)
		default:
			s.logger.Debug("unexpected frame", zap.Uint8("type", uint8(header.MsgType)))
		}
	}
}

func (s *Server) handleRequest(ctx context.Context, header *protocol.Header, body []byte, conn net.Conn, writeMu *sync.Mutex) {
	defer s.wg.Done()

	c, err := codec.GetCodec(header.CodecType)
	if err != nil {
		s.logger.Warn("unknown codec", zap.Error(err))
		return
	}
	out, err := service.Serve(ctx, s.handler, c, body)
	if err != nil {
		s.logger.Error("failed to encode response", zap.Error(err))
		return
	}

	writeMu.Lock()
	defer writeMu.Unlock()
	// same seq as the request: the client routes the response by it
	err = protocol.Encode(conn, &protocol.Header{
		CodecType: header.CodecType,
		MsgType:   protocol.MsgTypeResponse,
		Seq:       header.Seq,
	}, out)
	if err != nil {
		s.logger.Debug("failed to write response", zap.Error(err))
	}
}

// Shutdown stops the server gracefully:
//  1. deregister, so clients stop routing here
//  2. close the listener
//  3. wait up to timeout for in-flight requests, then cancel their contexts and close the
//     remaining connections
func (s *Server) Shutdown(timeout time.Duration) error {
	if !s.shutdown.CompareAndSwap(false, true) {
		return ErrServerClosed
	}

	if s.registry != nil {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := s.registry.Deregister(ctx, s.serviceName, s.advertiseAddr); err != nil {
			s.logger.Warn("deregister failed", zap.Error(err))
		}
		cancel()
	}

	s.mu.Lock()
	if s.listener != nil {
		s.listener.Close()
	}
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-time.After(timeout):
		err = fmt.Errorf("server: timeout waiting for in-flight requests")
	}
	s.cancel()

	s.mu.Lock()
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()
	return err
}
