package visit

import (
	"io"
	"net/http"

	"github.com/google/uuid"
)

var _ http.Handler = (*Handler)(nil)

// ServeHTTP answers on any path. The request body is ignored.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := r.Header.Get("X-Request-Id")
	if reqID == "" {
		reqID = uuid.New().String()
	}

	res := h.Handle(r.Context(), Request{Method: r.Method, RequestID: reqID})

	for k, v := range res.Headers {
		w.Header().Set(k, v)
	}
	w.Header().Set("X-Request-Id", reqID)
	w.WriteHeader(res.StatusCode)
	io.WriteString(w, res.Body)
}
