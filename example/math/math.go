// Package math is a small demo protocol: two arithmetic methods and one that always fails.
package math

import (
	"context"

	"nano-rpc/bind"
	"nano-rpc/client"
)

// Operands are the positional params of add and mult.
type Operands struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Failure is the application error of maybe_fail.
type Failure string

func (f Failure) Error() string {
	return string(f)
}

var (
	Add       = bind.NewMethod[Operands, float64]("add")
	Mult      = bind.NewMethod[Operands, float64]("mult")
	MaybeFail = bind.NewFallibleMethod[struct{}, float64, Failure]("maybe_fail")

	Protocol = bind.NewProtocol("math", Add, Mult, MaybeFail)
)

// Mather implements the protocol.
type Mather struct{}

func (Mather) Add(_ context.Context, p Operands) float64 {
	return p.X + p.Y
}

func (Mather) Mult(_ context.Context, p Operands) float64 {
	return p.X * p.Y
}

func (Mather) MaybeFail(context.Context, struct{}) (float64, error) {
	return 0, Failure("nope")
}

// NewService returns a dispatcher backed by Mather.
func NewService() *bind.Dispatcher {
	return Protocol.MustImplement(Mather{})
}

// Client is the typed caller of the protocol.
type Client struct {
	c *client.Client
}

func NewClient(c *client.Client) *Client {
	return &Client{c: c}
}

func (m *Client) Add(ctx context.Context, x, y float64) (float64, error) {
	return Add.Call(ctx, m.c, Operands{X: x, Y: y})
}

func (m *Client) Mult(ctx context.Context, x, y float64) (float64, error) {
	return Mult.Call(ctx, m.c, Operands{X: x, Y: y})
}

// MaybeFail returns a Failure when the server reports one, or a *client.ProtocolError.
func (m *Client) MaybeFail(ctx context.Context) (float64, error) {
	return MaybeFail.Call(ctx, m.c, struct{}{})
}
