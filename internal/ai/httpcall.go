package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const defaultMaxRetries = 3

// httpCaller posts JSON and retries transport errors, 429 and 5xx answers.
type httpCaller struct {
	name       string
	client     *http.Client
	maxRetries int
	sleep      func(ctx context.Context, d time.Duration) error
}

func newHTTPCaller(name string, maxRetries int, timeout time.Duration) *httpCaller {
	if maxRetries < 0 {
		maxRetries = 0
	}
	client := http.DefaultClient
	if timeout > 0 {
		client = &http.Client{Timeout: timeout}
	}
	return &httpCaller{
		name:       name,
		client:     client,
		maxRetries: maxRetries,
		sleep:      sleepContext,
	}
}

func (h *httpCaller) postJSON(ctx context.Context, endpoint string, headers map[string]string, in interface{}, out interface{}) error {
	data, err := json.Marshal(in)
	if err != nil {
		return err
	}
	var lastErr error
	for attempt := 0; attempt <= h.maxRetries; attempt++ {
		if attempt > 0 {
			if err := h.sleep(ctx, lastDelay(lastErr, attempt-1)); err != nil {
				return err
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		resp, err := h.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
			continue
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			lastErr = &retryableStatusError{
				err:        fmt.Errorf("%s request failed: %s: %s", h.name, resp.Status, strings.TrimSpace(string(body))),
				retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
			}
			continue
		}
		if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
			return fmt.Errorf("%s request failed: %s: %s", h.name, resp.Status, strings.TrimSpace(string(body)))
		}
		if readErr != nil {
			lastErr = readErr
			continue
		}
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("%s decode response: %w", h.name, err)
		}
		return nil
	}
	return lastErr
}

type retryableStatusError struct {
	err        error
	retryAfter time.Duration
}

func (e *retryableStatusError) Error() string {
	return e.err.Error()
}

func lastDelay(err error, attempt int) time.Duration {
	if se, ok := err.(*retryableStatusError); ok && se.retryAfter > 0 {
		return se.retryAfter
	}
	return retryDelay(attempt)
}

// retryDelay is an exponential backoff capped at 5s.
func retryDelay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if attempt > 8 {
		attempt = 8
	}
	d := 200 * time.Millisecond << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func parseRetryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
