package bind

import (
	"context"

	"nano-rpc/service"
)

// Func serves fn as the only method of a service, under name.
func Func[P, R any](name string, fn func(ctx context.Context, params P) R) service.Service {
	return single(NewMethod[P, R](name).Handle(fn))
}

// FallibleFunc is Func for an implementation that can fail with E.
func FallibleFunc[P, R any, E error](name string, fn func(ctx context.Context, params P) (R, error)) service.Service {
	return single(NewFallibleMethod[P, R, E](name).Handle(fn))
}

func single(h Handler) *Dispatcher {
	return &Dispatcher{handlers: map[string]Handler{h.name: h}}
}
