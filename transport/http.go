package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"nano-rpc/message"
)

// MaxResponseBytes bounds how much of an HTTP response body is read.
const MaxResponseBytes = 16 << 20

// HTTPStatusError is returned when the server answers with anything but 200 OK.
type HTTPStatusError struct {
	StatusCode int
	Status     string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("transport: http status %s", e.Status)
}

// HTTP posts each request as a JSON body to URL.
type HTTP struct {
	URL    string
	Client *http.Client
	Header http.Header // extra headers, sent on every call
}

func NewHTTP(url string) *HTTP {
	return &HTTP{URL: url, Client: http.DefaultClient}
}

func (t *HTTP) Call(ctx context.Context, req *message.Request) (*message.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, t.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range t.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	httpResp, err := client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(httpResp.Body, MaxResponseBytes))
		return nil, &HTTPStatusError{StatusCode: httpResp.StatusCode, Status: httpResp.Status}
	}

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, MaxResponseBytes))
	if err != nil {
		return nil, err
	}
	return message.DecodeResponse(data)
}
