package client

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a call failed before producing a result.
type ErrorKind int

const (
	// KindTransport: the transport could not deliver the request or bring a response back.
	KindTransport ErrorKind = iota
	// KindNotFound: the server does not know the method.
	KindNotFound
	// KindFailedDecode: a request or response could not be encoded or decoded.
	KindFailedDecode
	// KindServerFail: the server answered with an error the caller was not told to expect.
	KindServerFail
)

var (
	ErrTransport    = errors.New("rpc: transport failure")
	ErrNotFound     = errors.New("rpc: method not found")
	ErrFailedDecode = errors.New("rpc: failed to decode")
	ErrServerFail   = errors.New("rpc: server failure")
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindNotFound:
		return "not found"
	case KindFailedDecode:
		return "failed decode"
	case KindServerFail:
		return "server fail"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k ErrorKind) sentinel() error {
	switch k {
	case KindTransport:
		return ErrTransport
	case KindNotFound:
		return ErrNotFound
	case KindFailedDecode:
		return ErrFailedDecode
	case KindServerFail:
		return ErrServerFail
	}
	return nil
}

// ProtocolError is the single error value of a failed call. It never carries an application
// error of a fallible method; those are returned as themselves.
//
// errors.Is matches the kind's sentinel (ErrNotFound, ...). Err holds the cause: the transport's
// own error, the wire *message.Error, or a decoding error.
type ProtocolError struct {
	Kind   ErrorKind
	Method string
	Err    error
}

func (e *ProtocolError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("rpc %s: %s", e.Method, e.Kind)
	}
	return fmt.Sprintf("rpc %s: %s: %v", e.Method, e.Kind, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

func (e *ProtocolError) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// Fail builds a ProtocolError of the given kind.
func Fail(kind ErrorKind, method string, err error) *ProtocolError {
	return &ProtocolError{Kind: kind, Method: method, Err: err}
}
