package handlers_test

import (
	"net/http"
	"testing"

	"storefront/internal/http/handlers"
)

// admin routes require the configured key
func TestAdminGuardRequiresKey(t *testing.T) {
	app, _ := newApp(t, adminHash(t))

	// Anonymous -> 403
	if resp := do(t, app, "POST", "/api/v1/admin/reassign", nil); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected forbidden without key, got %d", resp.StatusCode)
	}

	// Wrong key -> 403
	if resp := do(t, app, "POST", "/api/v1/admin/reassign", nil, handlers.AdminKeyHeader, "nope"); resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected forbidden with wrong key, got %d", resp.StatusCode)
	}

	// Admin -> 200
	if resp := do(t, app, "POST", "/api/v1/admin/reassign", nil, handlers.AdminKeyHeader, adminKey); resp.StatusCode != http.StatusOK {
		t.Fatalf("admin expected 200, got %d", resp.StatusCode)
	}
}

// an empty ADMIN_KEY_HASH turns the admin surface off entirely
func TestAdminDisabledWithoutHash(t *testing.T) {
	app, _ := newApp(t, "")
	resp := do(t, app, "POST", "/api/v1/admin/reassign", nil, handlers.AdminKeyHeader, adminKey)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected forbidden when admin is disabled, got %d", resp.StatusCode)
	}
}
