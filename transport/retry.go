package transport

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"nano-rpc/message"
)

// DefaultBackOff retries up to three times with exponential delays starting at 50ms.
func DefaultBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = time.Second
	b.MaxElapsedTime = 5 * time.Second
	return backoff.WithMaxRetries(b, 3)
}

type retry struct {
	next       Transport
	newBackOff func() backoff.BackOff
}

// Retry repeats calls that fail to deliver. Responses, error responses included, are final.
// Retrying is bounded by newBackOff and by the caller's context; nil means DefaultBackOff.
func Retry(next Transport, newBackOff func() backoff.BackOff) Transport {
	if newBackOff == nil {
		newBackOff = DefaultBackOff
	}
	return retry{next: next, newBackOff: newBackOff}
}

func (r retry) Call(ctx context.Context, req *message.Request) (*message.Response, error) {
	var resp *message.Response
	err := backoff.Retry(func() error {
		var err error
		resp, err = r.next.Call(ctx, req)
		if err != nil && (ctx.Err() != nil || r.permanent(err)) {
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(r.newBackOff(), ctx))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// permanent reports failures that another attempt cannot change: a reply that did not decode,
// a 4xx status, or a transport that has already shut down.
func (r retry) permanent(err error) bool {
	switch {
	case errors.Is(err, message.ErrMalformed),
		errors.Is(err, message.ErrVersion),
		errors.Is(err, message.ErrAmbiguous),
		errors.Is(err, ErrClosed):
		return true
	}
	var status *HTTPStatusError
	if errors.As(err, &status) {
		switch status.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests:
			return false
		}
		return status.StatusCode >= 400 && status.StatusCode < 500
	}
	if d, ok := r.next.(interface{ Done() <-chan struct{} }); ok {
		select {
		case <-d.Done():
			return true
		default:
		}
	}
	return false
}
