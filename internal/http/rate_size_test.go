package handlers_test

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"storefront/internal/http/handlers"
)

// forced category refreshes are throttled, plain reads are not
func TestRefreshRateLimit(t *testing.T) {
	app, _ := newApp(t, adminHash(t))

	for i := 0; i < 6; i++ {
		resp := do(t, app, "GET", "/api/v1/categories?refresh=true", nil)
		if i < 5 && resp.StatusCode == http.StatusTooManyRequests {
			t.Fatalf("hit rate limit too early at %d", i)
		}
		if i == 5 && resp.StatusCode != http.StatusTooManyRequests {
			t.Fatalf("expected 429 after limit, got %d", resp.StatusCode)
		}
	}
	for i := 0; i < 10; i++ {
		if resp := do(t, app, "GET", "/api/v1/categories", nil); resp.StatusCode != http.StatusOK {
			t.Fatalf("cached read %d: expected 200, got %d", i, resp.StatusCode)
		}
	}
}

// oversized POST rejected with 413
func TestBodySizeLimit(t *testing.T) {
	app, _ := newApp(t, adminHash(t))

	// Oversized body (>1MiB)
	oversize := bytes.Repeat([]byte("A"), (1<<20)+10)
	req := httptest.NewRequest("POST", "/api/v1/admin/products", bytes.NewReader(oversize))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(handlers.AdminKeyHeader, adminKey)
	resp, err := app.Test(req)
	// Fiber returns an error instead of a response when body too large; treat that as pass
	if err != nil {
		if strings.Contains(err.Error(), "body size exceeds") || strings.Contains(err.Error(), "too large") {
			return
		}
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusRequestEntityTooLarge {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 413 for oversize, got %d body=%s", resp.StatusCode, string(body))
	}
}
