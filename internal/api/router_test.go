package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/issuetracker/issues-api/internal/api/handler"
	"github.com/issuetracker/issues-api/internal/api/metrics"
	"github.com/issuetracker/issues-api/internal/core/service"
	"github.com/issuetracker/issues-api/internal/infrastructure/config"
	"github.com/issuetracker/issues-api/internal/infrastructure/storage"
	"github.com/issuetracker/issues-api/internal/pkg/markdown"
)

func newTestServer(t *testing.T) *echo.Echo {
	t.Helper()
	ctx := context.Background()
	cfg := &config.Config{Store: config.StoreConfig{
		Driver:      config.DriverSQLite,
		DatabaseURL: filepath.Join(t.TempDir(), "api.db"),
		AutoMigrate: true,
	}}

	store, err := storage.Open(ctx, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close(ctx) })

	sessions := service.NewSessionManager("test-secret", time.Hour)
	return NewRouter(Deps{
		AuthService:  service.NewAuthService(store.Users, sessions, bcrypt.MinCost, metrics.Recorder{}, zerolog.Nop()),
		IssueService: service.NewIssueService(store.Issues, metrics.Recorder{}, zerolog.Nop()),
		Sessions:     sessions,
		Renderer:     markdown.NewRenderer(),
		Pingers:      map[string]handler.Pinger{store.Name: store.Pinger},
		Logger:       zerolog.Nop(),
	})
}

func call(t *testing.T, e *echo.Echo, method, path, token, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	var resp map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &resp)
	return rec, resp
}

func signIn(t *testing.T, e *echo.Echo, name, email string) string {
	t.Helper()
	rec, _ := call(t, e, http.MethodPost, "/auth/register", "",
		fmt.Sprintf(`{"name":%q,"email":%q,"password":"secret1"}`, name, email))
	if rec.Code != http.StatusCreated {
		t.Fatalf("register %s: %d %s", email, rec.Code, rec.Body.String())
	}
	rec, resp := call(t, e, http.MethodPost, "/auth/login", "",
		fmt.Sprintf(`{"email":%q,"password":"secret1"}`, email))
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, rec.Code, rec.Body.String())
	}
	return resp["token"].(string)
}

func TestRouter_IssueLifecycle(t *testing.T) {
	e := newTestServer(t)
	u1 := signIn(t, e, "Alice", "alice@example.com")
	u2 := signIn(t, e, "Bob", "bob@example.com")

	rec, created := call(t, e, http.MethodPost, "/issues", u1, `{"title":"Bug","description":"**broken**"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body.String())
	}
	if created["status"] != "OPEN" {
		t.Fatalf("expected OPEN, got %v", created["status"])
	}
	if html, _ := created["descriptionHtml"].(string); !strings.Contains(html, "<strong>broken</strong>") {
		t.Fatalf("unexpected descriptionHtml %q", html)
	}
	path := fmt.Sprintf("/issues/%v", created["id"])

	if rec, _ := call(t, e, http.MethodGet, path, u1, ""); rec.Code != http.StatusOK {
		t.Fatalf("owner get: %d", rec.Code)
	}

	// Another user sees nothing and cannot touch the issue.
	for _, method := range []string{http.MethodGet, http.MethodPatch, http.MethodDelete} {
		rec, resp := call(t, e, method, path, u2, `{"title":"hijacked"}`)
		if rec.Code != http.StatusNotFound || resp["error"] != "Issue not found" {
			t.Fatalf("%s by non-owner: %d %v", method, rec.Code, resp)
		}
	}
	rec, _ = call(t, e, http.MethodGet, "/issues", u2, "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Fatalf("expected empty list for bob, got %s", rec.Body.String())
	}

	rec, updated := call(t, e, http.MethodPatch, path, u1, `{"title":"","status":"CLOSED"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}
	if updated["title"] != "Bug" || updated["status"] != "CLOSED" {
		t.Fatalf("unexpected update result %v", updated)
	}

	rec, _ = call(t, e, http.MethodGet, "/issues?status=CLOSED&search=bug", u1, "")
	var list []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil || len(list) != 1 {
		t.Fatalf("filtered list: %v %s", err, rec.Body.String())
	}

	rec, resp := call(t, e, http.MethodDelete, path, u1, "")
	if rec.Code != http.StatusOK || resp["success"] != true {
		t.Fatalf("delete: %d %v", rec.Code, resp)
	}
	if rec, _ := call(t, e, http.MethodDelete, path, u1, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", rec.Code)
	}
}

func TestRouter_UpdateRightAfterCreateAdvancesUpdatedAt(t *testing.T) {
	e := newTestServer(t)
	token := signIn(t, e, "Alice", "alice@example.com")

	_, created := call(t, e, http.MethodPost, "/issues", token, `{"title":"Bug","description":"d"}`)
	rec, updated := call(t, e, http.MethodPatch, fmt.Sprintf("/issues/%v", created["id"]), token, `{"status":"CLOSED"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update: %d %s", rec.Code, rec.Body.String())
	}

	createdAt, err := time.Parse(time.RFC3339Nano, updated["createdAt"].(string))
	if err != nil {
		t.Fatalf("createdAt: %v", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, updated["updatedAt"].(string))
	if err != nil {
		t.Fatalf("updatedAt: %v", err)
	}
	if !updatedAt.After(createdAt) {
		t.Fatalf("updatedAt %s should be after createdAt %s", updatedAt, createdAt)
	}
}

func TestRouter_Failures(t *testing.T) {
	e := newTestServer(t)
	token := signIn(t, e, "Alice", "alice@example.com")

	cases := []struct {
		name   string
		method string
		path   string
		token  string
		body   string
		code   int
	}{
		{"no token", http.MethodGet, "/issues", "", "", http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/issues", "nope", "", http.StatusUnauthorized},
		{"non-numeric id", http.MethodGet, "/issues/abc", token, "", http.StatusBadRequest},
		{"missing issue", http.MethodGet, "/issues/999", token, "", http.StatusNotFound},
		{"empty create", http.MethodPost, "/issues", token, `{}`, http.StatusBadRequest},
		{"bad status", http.MethodPatch, "/issues/1", token, `{"status":"DONE"}`, http.StatusBadRequest},
		{"bad filter", http.MethodGet, "/issues?createdOn=yesterday", token, "", http.StatusBadRequest},
		{"wrong password", http.MethodPost, "/auth/login", "", `{"email":"alice@example.com","password":"wrong!"}`, http.StatusUnauthorized},
		{"unknown email", http.MethodPost, "/auth/login", "", `{"email":"who@example.com","password":"secret1"}`, http.StatusUnauthorized},
		{"duplicate register", http.MethodPost, "/auth/register", "", `{"name":"A","email":"ALICE@example.com","password":"secret1"}`, http.StatusConflict},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, _ := call(t, e, tc.method, tc.path, tc.token, tc.body)
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d (%s)", tc.code, rec.Code, rec.Body.String())
			}
		})
	}
}

func TestRouter_Session(t *testing.T) {
	e := newTestServer(t)
	token := signIn(t, e, "Alice", "alice@example.com")

	rec, resp := call(t, e, http.MethodGet, "/auth/session", token, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("session: %d", rec.Code)
	}
	user := resp["user"].(map[string]any)
	if user["email"] != "alice@example.com" {
		t.Fatalf("unexpected session user %v", user)
	}
}

func TestRouter_OperationalEndpoints(t *testing.T) {
	e := newTestServer(t)

	if rec, resp := call(t, e, http.MethodGet, "/health/ready", "", ""); rec.Code != http.StatusOK || resp["status"] != "ok" {
		t.Fatalf("readiness: %d %v", rec.Code, resp)
	}

	// Generate at least one observation before scraping.
	call(t, e, http.MethodGet, "/health", "", "")
	rec, _ := call(t, e, http.MethodGet, "/metrics", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "issues_http_requests_total") {
		t.Fatalf("metrics not exposed: %d", rec.Code)
	}
}
