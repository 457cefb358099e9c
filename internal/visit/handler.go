// Package visit turns one request into one atomic counter increment and a CORS-enabled response.
package visit

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tckz/visit-counter/internal/counter"
	"go.uber.org/zap"
)

const (
	HeaderAllowOrigin  = "Access-Control-Allow-Origin"
	HeaderAllowHeaders = "Access-Control-Allow-Headers"
	HeaderAllowMethods = "Access-Control-Allow-Methods"
	HeaderContentType  = "Content-Type"
)

// ErrorBody is sent for every failure. The cause only goes to the log.
const ErrorBody = `{"error": "Internal server error"}`

// Request is the part of an invocation the handler looks at.
type Request struct {
	Method    string
	RequestID string
}

// Response is the envelope returned for every invocation.
type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       string
}

// CORSHeaders returns a fresh copy of the headers attached to every response.
func CORSHeaders() map[string]string {
	return map[string]string{
		HeaderAllowOrigin:  "*",
		HeaderAllowHeaders: "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
		HeaderAllowMethods: "GET,POST,OPTIONS",
		HeaderContentType:  "application/json",
	}
}

// Result is either Success or Failure.
type Result interface {
	isResult()
}

type Success struct {
	Count int64
}

type Failure struct {
	Cause error
}

func (Success) isResult() {}
func (Failure) isResult() {}

type Handler struct {
	counter counter.Counter
	logger  *zap.SugaredLogger
}

func NewHandler(c counter.Counter, logger *zap.SugaredLogger) *Handler {
	return &Handler{counter: c, logger: logger}
}

// Handle never fails: store errors come back as a 500 envelope.
func (h *Handler) Handle(ctx context.Context, req Request) Response {
	if req.Method == http.MethodOptions {
		return Response{StatusCode: http.StatusOK, Headers: CORSHeaders(), Body: ""}
	}

	logger := h.logger.With(zap.String("requestID", req.RequestID), zap.String("method", req.Method))

	switch r := h.increment(ctx).(type) {
	case Success:
		logger.With(zap.Int64("count", r.Count)).Infof("counted")
		return Response{
			StatusCode: http.StatusOK,
			Headers:    CORSHeaders(),
			Body:       fmt.Sprintf(`{"count": %d}`, r.Count),
		}
	case Failure:
		logger.Errorf("*** Up: %v", r.Cause)
	}

	return Response{StatusCode: http.StatusInternalServerError, Headers: CORSHeaders(), Body: ErrorBody}
}

func (h *Handler) increment(ctx context.Context) (res Result) {
	defer func() {
		if p := recover(); p != nil {
			res = Failure{Cause: fmt.Errorf("panic: %v", p)}
		}
	}()

	n, err := h.counter.Up(ctx)
	if err != nil {
		return Failure{Cause: err}
	}
	if n < 1 {
		return Failure{Cause: fmt.Errorf("%w: count=%d", counter.ErrMalformedResponse, n)}
	}
	return Success{Count: n}
}
