// Package bind turns a single description of an RPC interface into both a server dispatcher
// and typed client calls.
//
// A method is described once, as a value shared by both sides:
//
//	type AddParams struct{ X, Y int }   // exported fields are the positional params, in order
//
//	var Add = bind.NewMethod[AddParams, int]("add")
//	var MaybeFail = bind.NewFallibleMethod[struct{}, int, Failure]("maybe_fail")
//	var Math = bind.NewProtocol("math", Add, MaybeFail)
//
// Server side, Math.Implement(impl) matches impl's methods by name and signature and returns a
// Dispatcher, which is a service.Service. Client side, Add.Call(ctx, c, AddParams{2, 3}) sends
// {"jsonrpc":"2.0","method":"add","params":[2,3],"id":"req-..."} and decodes the result.
//
// A plain method either returns its result or fails with a *client.ProtocolError. A fallible
// method can additionally fail with its application error type, which is returned to the caller
// as itself and never wrapped.
package bind
