package server

import (
	"bytes"
	"io"
	"mime"
	"net/http"

	"go.uber.org/zap"

	"nano-rpc/codec"
	"nano-rpc/message"
	"nano-rpc/service"
)

// MaxRequestBytes bounds an HTTP request body.
const MaxRequestBytes = 1 << 20

type httpHandler struct {
	svc    service.Service
	logger *zap.Logger
}

// HTTPHandler serves JSON-RPC over HTTP POST. Every well-formed exchange is answered with
// 200 OK, JSON-RPC errors included; batches are answered with an invalid-request error.
func HTTPHandler(svc service.Service, logger *zap.Logger) http.Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return httpHandler{svc: svc, logger: logger}
}

func (h httpHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if ct := r.Header.Get("Content-Type"); ct != "" {
		mt, _, err := mime.ParseMediaType(ct)
		if err != nil || mt != "application/json" {
			http.Error(w, "unsupported media type", http.StatusUnsupportedMediaType)
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	if err != nil {
		http.Error(w, "request too large", http.StatusRequestEntityTooLarge)
		return
	}

	var out []byte
	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		out, err = codec.JSONCodec{}.Encode(message.NewErrorResponse(message.NullID(),
			message.InvalidRequest("batch requests are not supported")))
	} else {
		out, err = service.Serve(r.Context(), h.svc, codec.JSONCodec{}, body)
	}
	if err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		h.logger.Debug("failed to write response", zap.Error(err))
	}
}
