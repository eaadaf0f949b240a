package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/brametal/chapas-backend/pkg/config"
	"github.com/brametal/chapas-backend/pkg/enums"
	"github.com/brametal/chapas-backend/pkg/security"
)

var testArgon = config.PasswordConfig{ArgonMemoryKB: 1024, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

func testKeys(t *testing.T) AccessKeys {
	t.Helper()
	admin, err := security.HashAccessKey("admin-key", testArgon)
	if err != nil {
		t.Fatalf("hash admin key: %v", err)
	}
	super, err := security.HashAccessKey("super-key", testArgon)
	if err != nil {
		t.Fatalf("hash super key: %v", err)
	}
	return AccessKeys{AdminHash: admin, SuperAdminHash: super}
}

func roleEcho(captured *enums.AccessRole) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*captured = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingKey(t *testing.T) {
	var role enums.AccessRole
	handler := Auth(testKeys(t), nil, nil)(roleEcho(&role))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsWrongKey(t *testing.T) {
	var role enums.AccessRole
	handler := Auth(testKeys(t), nil, nil)(roleEcho(&role))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(accessKeyHeader, "guess")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthResolvesRoles(t *testing.T) {
	keys := testKeys(t)
	cases := []struct {
		header string
		value  string
		want   enums.AccessRole
	}{
		{accessKeyHeader, "admin-key", enums.AccessRoleAdmin},
		{accessKeyHeader, "super-key", enums.AccessRoleSuperAdmin},
		{"Authorization", "Bearer super-key", enums.AccessRoleSuperAdmin},
	}
	for _, tc := range cases {
		var role enums.AccessRole
		handler := Auth(keys, nil, nil)(roleEcho(&role))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(tc.header, tc.value)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusOK {
			t.Fatalf("%s: expected 200 got %d", tc.value, resp.Code)
		}
		if role != tc.want {
			t.Fatalf("%s: expected role %s got %s", tc.value, tc.want, role)
		}
	}
}

func TestRequireRole(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mw := RequireRole(nil, enums.AccessRoleAdmin, enums.AccessRoleSuperAdmin)

	for role, want := range map[enums.AccessRole]int{
		enums.AccessRoleAdmin:      http.StatusOK,
		enums.AccessRoleSuperAdmin: http.StatusOK,
		"":                         http.StatusForbidden,
	} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithRole(req.Context(), role))
		resp := httptest.NewRecorder()
		mw(ok).ServeHTTP(resp, req)
		if resp.Code != want {
			t.Fatalf("role %q: expected %d got %d", role, want, resp.Code)
		}
	}

	superOnly := RequireRole(nil, enums.AccessRoleSuperAdmin)
	req := httptest.NewRequest(http.MethodDelete, "/", nil)
	req = req.WithContext(WithRole(req.Context(), enums.AccessRoleAdmin))
	resp := httptest.NewRecorder()
	superOnly(ok).ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("admin must not reach super-admin routes, got %d", resp.Code)
	}
}

func TestAuthBlocksAfterRepeatedFailures(t *testing.T) {
	store := newFakeRateStore()
	limiter := NewAccessFailureLimiter(store, time.Minute, 2)
	var role enums.AccessRole
	handler := Auth(testKeys(t), limiter, nil)(roleEcho(&role))

	send := func(key string) int {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.9:4000"
		req.Header.Set(accessKeyHeader, key)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		return resp.Code
	}

	if code := send("nope"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", code)
	}
	if code := send("admin-key"); code != http.StatusOK {
		t.Fatalf("expected 200 below the limit got %d", code)
	}
	if code := send("nope"); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", code)
	}
	if code := send("admin-key"); code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 once blocked got %d", code)
	}
}
