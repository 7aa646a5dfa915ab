// Package message defines the JSON-RPC 2.0 envelopes exchanged between clients and services.
//
// Only the request/response subset is modeled: every request carries an id, params are always
// positional, and batches are not supported.
//
//	request:  {"jsonrpc":"2.0","method":"add","params":[2,3],"id":1}
//	success:  {"jsonrpc":"2.0","result":5,"id":1}
//	failure:  {"jsonrpc":"2.0","error":{"code":-32601,"message":"method not found: sub"},"id":1}
package message

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Version is the only protocol tag accepted on the wire.
const Version = "2.0"

var (
	ErrMalformed   = errors.New("message: malformed envelope")
	ErrVersion     = errors.New("message: unsupported jsonrpc version")
	ErrEmptyMethod = errors.New("message: empty method name")
	ErrMissingID   = errors.New("message: missing request id")
	ErrAmbiguous   = errors.New("message: response carries both result and error")
)

// Request is a single call. Params holds the positional arguments as raw JSON values.
type Request struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      ID                `json:"id"`
}

// NewRequest builds a well-formed request envelope.
func NewRequest(id ID, method string, params ...json.RawMessage) *Request {
	if params == nil {
		params = []json.RawMessage{}
	}
	return &Request{
		JSONRPC: Version,
		Method:  method,
		Params:  params,
		ID:      id,
	}
}

// MarshalJSON always emits params as an array, even when none were set.
func (r Request) MarshalJSON() ([]byte, error) {
	type wire Request
	w := wire(r)
	if w.Params == nil {
		w.Params = []json.RawMessage{}
	}
	return json.Marshal(w)
}

// UnmarshalJSON matches member names exactly. encoding/json would fold "METHOD" onto Method;
// here a key that is not exactly jsonrpc, method, params or id is ignored.
func (r *Request) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return err
	}
	exact := make(map[string]json.RawMessage, len(requestMembers))
	for _, name := range requestMembers {
		if raw, ok := members[name]; ok {
			exact[name] = raw
		}
	}
	data, err := json.Marshal(exact)
	if err != nil {
		return err
	}
	type wire Request
	var w wire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Request(w)
	return nil
}

var requestMembers = [...]string{"jsonrpc", "method", "params", "id"}

// Validate reports whether the request is well-formed: correct tag, non-empty method, an id
// that is a number, string or null.
func (r *Request) Validate() error {
	if r.JSONRPC != Version {
		return fmt.Errorf("%w: %q", ErrVersion, r.JSONRPC)
	}
	if r.Method == "" {
		return ErrEmptyMethod
	}
	if len(r.ID) == 0 {
		return ErrMissingID
	}
	if !r.ID.Valid() {
		return fmt.Errorf("%w: got %q", ErrInvalidID, []byte(r.ID))
	}
	return nil
}

// DecodeRequest parses and validates a JSON request.
//
// When the bytes parse but the envelope is invalid, the partially decoded request is returned
// together with the validation error so that callers can still echo its id.
func DecodeRequest(data []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &req, req.Validate()
}

// Response answers a Request. Exactly one of Result and Error is set.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
	ID      ID              `json:"id"`
}

// NewResult builds a success response. A nil result is sent as JSON null.
func NewResult(id ID, result json.RawMessage) *Response {
	if len(result) == 0 {
		result = json.RawMessage("null")
	}
	return &Response{
		JSONRPC: Version,
		Result:  result,
		ID:      id,
	}
}

// NewErrorResponse builds a failure response.
func NewErrorResponse(id ID, err *Error) *Response {
	return &Response{
		JSONRPC: Version,
		Error:   err,
		ID:      id,
	}
}

// MarshalJSON emits "result":null for success responses without a result.
func (r Response) MarshalJSON() ([]byte, error) {
	type wire Response
	w := wire(r)
	if w.Error == nil && len(w.Result) == 0 {
		w.Result = json.RawMessage("null")
	}
	return json.Marshal(w)
}

// Validate checks the protocol tag and that result and error are not both present.
// A response with neither is read as a null result.
func (r *Response) Validate() error {
	if r.JSONRPC != Version {
		return fmt.Errorf("%w: %q", ErrVersion, r.JSONRPC)
	}
	if r.Error != nil && len(r.Result) > 0 {
		return ErrAmbiguous
	}
	return nil
}

// DecodeResponse parses and validates a JSON response.
func DecodeResponse(data []byte) (*Response, error) {
	var resp Response
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	return &resp, nil
}
