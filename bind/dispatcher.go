package bind

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"nano-rpc/message"
)

// Handler is one method bound to its implementation, built by Method.Handle or
// FallibleMethod.Handle.
type Handler struct {
	name   string
	invoke func(ctx context.Context, params []json.RawMessage) (json.RawMessage, *message.Error)
}

func (h Handler) Name() string {
	return h.name
}

// respond runs the handler. A panicking implementation is answered with an internal error.
func (h Handler) respond(ctx context.Context, req *message.Request) (resp *message.Response) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error("panic in rpc method",
				zap.String("method", h.name),
				zap.Stringer("id", req.ID),
				zap.Any("panic", r),
				zap.StackSkip("stack", 2))
			resp = message.NewErrorResponse(req.ID, message.InternalError(fmt.Sprint(r)))
		}
	}()

	result, rpcErr := h.invoke(ctx, req.Params)
	if rpcErr != nil {
		return message.NewErrorResponse(req.ID, rpcErr)
	}
	return message.NewResult(req.ID, result)
}

// Dispatcher routes requests to handlers by method name. It is a service.Service.
type Dispatcher struct {
	handlers map[string]Handler
}

// NewDispatcher fails on a handler without a name or on two handlers with the same name.
func NewDispatcher(handlers ...Handler) (*Dispatcher, error) {
	d := &Dispatcher{handlers: make(map[string]Handler, len(handlers))}
	for _, h := range handlers {
		if h.name == "" || h.invoke == nil {
			return nil, fmt.Errorf("bind: unbound handler")
		}
		if _, exists := d.handlers[h.name]; exists {
			return nil, fmt.Errorf("bind: duplicate method %q", h.name)
		}
		d.handlers[h.name] = h
	}
	return d, nil
}

func (d *Dispatcher) Respond(ctx context.Context, req *message.Request) *message.Response {
	if err := req.Validate(); err != nil {
		id := req.ID
		if !id.Valid() {
			id = message.NullID()
		}
		return message.NewErrorResponse(id, message.InvalidRequest(err.Error()))
	}
	h, ok := d.handlers[req.Method]
	if !ok {
		return message.NewErrorResponse(req.ID, message.MethodNotFound(req.Method))
	}
	return h.respond(ctx, req)
}

// Methods returns the registered method names, sorted.
func (d *Dispatcher) Methods() []string {
	names := make([]string, 0, len(d.handlers))
	for name := range d.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
