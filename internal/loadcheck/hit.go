package loadcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
)

// Hitter sends one visit per Hit and records the returned count.
type Hitter struct {
	client *http.Client
	url    string
	method string
	marker *CountMarker

	non200 int64
}

func NewHitter(client *http.Client, url, method string, marker *CountMarker) *Hitter {
	return &Hitter{client: client, url: url, method: method, marker: marker}
}

func (h *Hitter) Hit(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, h.method, h.url, strings.NewReader("{}"))
	if err != nil {
		return fmt.Errorf("http.NewRequest: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return fmt.Errorf("client.Do: %w", err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("io.ReadAll: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		atomic.AddInt64(&h.non200, 1)
		return fmt.Errorf("status=%d, body=%s", resp.StatusCode, b)
	}

	var body struct {
		Count *int64 `json:"count"`
	}
	if err := json.Unmarshal(b, &body); err != nil {
		return fmt.Errorf("json.Unmarshal: body=%s, %w", b, err)
	}
	if body.Count == nil {
		return fmt.Errorf("no count in body=%s", b)
	}

	if !h.marker.Mark(*body.Count) {
		return fmt.Errorf("count=%d already returned to another hit", *body.Count)
	}
	return nil
}

func (h *Hitter) Non200() int64 {
	return atomic.LoadInt64(&h.non200)
}
