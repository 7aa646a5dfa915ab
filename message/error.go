package message

import (
	"encoding/json"
	"fmt"
)

// Reserved JSON-RPC codes. Application failures use non-negative codes so they never collide
// with the protocol range.
const (
	CodeParseError     = -32700
	CodeInvalidRequest = -32600
	CodeMethodNotFound = -32601
	CodeInvalidParams  = -32602
	CodeInternalError  = -32603
	CodeServerError    = -32000
	CodeApplication    = 1
)

// Error is the error object of a failed response.
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("jsonrpc error %d: %s", e.Code, e.Message)
}

func NewError(code int, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Application builds an application failure. Negative codes are reserved for the protocol and
// are replaced by CodeApplication.
func Application(code int, message string, data json.RawMessage) *Error {
	if code < 0 {
		code = CodeApplication
	}
	return &Error{Code: code, Message: message, Data: data}
}

func MethodNotFound(method string) *Error {
	return NewError(CodeMethodNotFound, "method not found: "+method)
}

func ParseError(detail string) *Error {
	return NewError(CodeParseError, "parse error: "+detail)
}

func InvalidRequest(detail string) *Error {
	return NewError(CodeInvalidRequest, "invalid request: "+detail)
}

func InvalidParams(detail string) *Error {
	return NewError(CodeInvalidParams, "invalid params: "+detail)
}

func InternalError(detail string) *Error {
	return NewError(CodeInternalError, "internal error: "+detail)
}

func ServerError(detail string) *Error {
	return NewError(CodeServerError, detail)
}

// IsApplication reports whether the code lies outside the reserved negative range.
func (e *Error) IsApplication() bool {
	return e.Code >= 0
}
