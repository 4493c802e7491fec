package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestClient(retries int, base time.Duration) *Client {
	return New(Config{
		Timeout:    2 * time.Second,
		MaxRetries: retries,
		RetryBase:  base,
	})
}

func TestRetryTransientThenSuccess(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
			return
		}
		io.WriteString(w, "ok")
	}))
	defer server.Close()

	base := 20 * time.Millisecond
	c := newTestClient(2, base)

	start := time.Now()
	resp, err := c.Get(context.Background(), server.URL)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "ok" {
		t.Errorf("body = %q, want %q", body, "ok")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
	// Backoff before retries: base, then 2×base.
	if elapsed < 3*base {
		t.Errorf("elapsed = %v, want at least %v of backoff", elapsed, 3*base)
	}
}

func TestNoRetryOnPermanentStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	c := newTestClient(2, time.Second)

	start := time.Now()
	resp, err := c.Get(context.Background(), server.URL)
	elapsed := time.Since(start)

	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
	if got := calls.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1", got)
	}
	if elapsed > 500*time.Millisecond {
		t.Errorf("elapsed = %v, expected no backoff delay", elapsed)
	}
}

func TestRetryExhaustedReturnsLastResponse(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "still broken", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	c := newTestClient(2, time.Millisecond)

	resp, err := c.Get(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestRetryExhaustedTransportError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close() // every attempt now fails in transport

	c := newTestClient(1, time.Millisecond)

	resp, err := c.Get(context.Background(), url)
	if err == nil {
		resp.Body.Close()
		t.Fatal("expected transport error")
	}
	if resp != nil {
		t.Error("expected nil response on transport failure")
	}
}

func TestTimeoutIsRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	c := New(Config{
		Timeout:    50 * time.Millisecond,
		MaxRetries: 2,
		RetryBase:  5 * time.Millisecond,
	})

	resp, err := c.Get(context.Background(), server.URL)
	if err == nil {
		resp.Body.Close()
		t.Fatal("expected timeout error")
	}
	if got := calls.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3", got)
	}
}

func TestJSONDecodesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"greeting":"hello"}`)
	}))
	defer server.Close()

	c := newTestClient(2, time.Millisecond)

	var out map[string]string
	if err := c.JSON(context.Background(), http.MethodGet, server.URL, nil, &out); err != nil {
		t.Fatalf("json: %v", err)
	}
	if out["greeting"] != "hello" {
		t.Errorf("greeting = %q, want %q", out["greeting"], "hello")
	}
}

func TestJSONSendsBodyAndContentType(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("content-type = %q, want application/json", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"q":"villa"}` {
			t.Errorf("body = %q", body)
		}
		io.WriteString(w, `{}`)
	}))
	defer server.Close()

	c := newTestClient(2, time.Millisecond)

	if err := c.JSON(context.Background(), http.MethodPost, server.URL, map[string]string{"q": "villa"}, nil); err != nil {
		t.Fatalf("json: %v", err)
	}
}

func TestJSONStatusErrorCarriesBodyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad input", http.StatusBadRequest)
	}))
	defer server.Close()

	c := newTestClient(2, time.Millisecond)

	err := c.JSON(context.Background(), http.MethodGet, server.URL, nil, nil)
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	var serr *StatusError
	if !errors.As(err, &serr) {
		t.Fatalf("error type = %T, want *StatusError", err)
	}
	if serr.Code != http.StatusBadRequest {
		t.Errorf("code = %d, want 400", serr.Code)
	}
	if serr.Error() != "bad input" {
		t.Errorf("message = %q, want %q", serr.Error(), "bad input")
	}
}

func TestStatusErrorGenericMessage(t *testing.T) {
	serr := &StatusError{Code: 500}
	if serr.Error() != "request failed with status 500" {
		t.Errorf("message = %q", serr.Error())
	}
}
