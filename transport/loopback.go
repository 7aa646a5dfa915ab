package transport

import (
	"context"
	"encoding/json"

	"nano-rpc/codec"
	"nano-rpc/message"
	"nano-rpc/service"
)

type loopback struct {
	svc service.Service
}

// Loopback calls svc in-process. The request and the response are serialized on the way, so the
// service sees exactly what a remote listener would hand it.
func Loopback(svc service.Service) Transport {
	return loopback{svc: svc}
}

func (l loopback) Call(ctx context.Context, req *message.Request) (*message.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out, err := service.Serve(ctx, l.svc, codec.JSONCodec{}, body)
	if err != nil {
		return nil, err
	}
	return message.DecodeResponse(out)
}
