package visit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tckz/visit-counter/internal/counter"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var wantHeaders = map[string]string{
	"Access-Control-Allow-Origin":  "*",
	"Access-Control-Allow-Headers": "Content-Type,X-Amz-Date,Authorization,X-Api-Key,X-Amz-Security-Token",
	"Access-Control-Allow-Methods": "GET,POST,OPTIONS",
	"Content-Type":                 "application/json",
}

func newTestHandler(c counter.Counter) (*Handler, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return NewHandler(c, zap.New(core).Sugar()), logs
}

func decodeCount(t *testing.T, body string) int64 {
	t.Helper()
	var b struct {
		Count *int64 `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(body), &b))
	require.NotNil(t, b.Count, "body=%s", body)
	return *b.Count
}

func TestOptions(t *testing.T) {
	c := &counter.LocalCounter{}
	h, _ := newTestHandler(c)

	res := h.Handle(context.Background(), Request{Method: http.MethodOptions})

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Equal(t, "", res.Body)
	assert.Equal(t, wantHeaders, res.Headers)

	n, err := c.Get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(0), n, "OPTIONS must not touch the counter")
}

func TestIncrement(t *testing.T) {
	tests := []struct {
		name   string
		method string
	}{
		{name: "GET", method: http.MethodGet},
		{name: "POST", method: http.MethodPost},
		{name: "DELETE still counts", method: http.MethodDelete},
		{name: "empty method", method: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, _ := newTestHandler(&counter.LocalCounter{})

			res := h.Handle(context.Background(), Request{Method: tt.method})

			assert.Equal(t, http.StatusOK, res.StatusCode)
			assert.Equal(t, wantHeaders, res.Headers)
			assert.Equal(t, `{"count": 1}`, res.Body)
			assert.Equal(t, int64(1), decodeCount(t, res.Body))
		})
	}
}

func TestSequentialCounts(t *testing.T) {
	h, _ := newTestHandler(&counter.LocalCounter{})

	var last int64
	for i := int64(1); i <= 10; i++ {
		method := http.MethodGet
		if i%2 == 0 {
			method = http.MethodPost
		}
		res := h.Handle(context.Background(), Request{Method: method})
		require.Equal(t, http.StatusOK, res.StatusCode)

		got := decodeCount(t, res.Body)
		assert.Equal(t, i, got)
		assert.Equal(t, last+1, got)
		last = got
	}
}

func TestFirstVisitThenPreflight(t *testing.T) {
	h, _ := newTestHandler(&counter.LocalCounter{})
	ctx := context.Background()

	assert.Equal(t, `{"count": 1}`, h.Handle(ctx, Request{Method: http.MethodGet}).Body)

	pre := h.Handle(ctx, Request{Method: http.MethodOptions})
	assert.Equal(t, http.StatusOK, pre.StatusCode)
	assert.Equal(t, "", pre.Body)

	assert.Equal(t, `{"count": 2}`, h.Handle(ctx, Request{Method: http.MethodGet}).Body)
}

func TestFailure(t *testing.T) {
	tests := []struct {
		name    string
		counter counter.Counter
		logged  string
	}{
		{
			name: "store error",
			counter: counter.Func(func(ctx context.Context) (int64, error) {
				return 0, errors.New("DynamoDB error")
			}),
			logged: "DynamoDB error",
		},
		{
			name: "malformed",
			counter: counter.Func(func(ctx context.Context) (int64, error) {
				return 0, counter.ErrMalformedResponse
			}),
			logged: counter.ErrMalformedResponse.Error(),
		},
		{
			name: "non-positive count",
			counter: counter.Func(func(ctx context.Context) (int64, error) {
				return 0, nil
			}),
			logged: "count=0",
		},
		{
			name: "panic",
			counter: counter.Func(func(ctx context.Context) (int64, error) {
				panic("boom")
			}),
			logged: "panic: boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, logs := newTestHandler(tt.counter)

			res := h.Handle(context.Background(), Request{Method: http.MethodGet, RequestID: "req-1"})

			assert.Equal(t, http.StatusInternalServerError, res.StatusCode)
			assert.Equal(t, `{"error": "Internal server error"}`, res.Body)
			assert.Equal(t, wantHeaders, res.Headers)
			assert.NotContains(t, res.Body, tt.logged)

			errLogs := logs.FilterLevelExact(zapcore.ErrorLevel).All()
			require.Len(t, errLogs, 1, "cause is logged exactly once")
			assert.Contains(t, errLogs[0].Message, tt.logged)
			assert.Equal(t, "req-1", errLogs[0].ContextMap()["requestID"])
		})
	}
}

func TestHeadersAreCopies(t *testing.T) {
	h, _ := newTestHandler(&counter.LocalCounter{})

	res := h.Handle(context.Background(), Request{Method: http.MethodOptions})
	res.Headers["Access-Control-Allow-Origin"] = "https://example.com"

	assert.Equal(t, wantHeaders, h.Handle(context.Background(), Request{Method: http.MethodOptions}).Headers)
	assert.Equal(t, wantHeaders, CORSHeaders())
}

func TestSuccessLogsCount(t *testing.T) {
	h, logs := newTestHandler(&counter.LocalCounter{})

	h.Handle(context.Background(), Request{Method: http.MethodPost, RequestID: "abc"})

	entries := logs.FilterMessage("counted").All()
	require.Len(t, entries, 1)
	ctxMap := entries[0].ContextMap()
	assert.Equal(t, int64(1), ctxMap["count"])
	assert.Equal(t, "abc", ctxMap["requestID"])
	assert.Equal(t, http.MethodPost, ctxMap["method"])
}
