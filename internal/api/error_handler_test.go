package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/issuetracker/issues-api/internal/core/domain"
	"github.com/issuetracker/issues-api/internal/pkg/validation"
)

func TestHTTPErrorHandler(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"unauthorized", domain.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
		{"invalid id", domain.ErrInvalidIssueID, http.StatusBadRequest, "Invalid issue ID"},
		{"not found", domain.ErrIssueNotFound, http.StatusNotFound, "Issue not found"},
		{"wrapped not found", fmt.Errorf("get issue: %w", domain.ErrIssueNotFound), http.StatusNotFound, "Issue not found"},
		{"bad credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid email or password"},
		{"duplicate user", domain.ErrUserExists, http.StatusConflict, "User already exists"},
		{"echo error", echo.NewHTTPError(http.StatusTooManyRequests, "slow down"), http.StatusTooManyRequests, "slow down"},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, "An unexpected error occurred."},
	}

	handle := NewHTTPErrorHandler(zerolog.Nop())

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodGet, "/issues/1", nil), rec)

			handle(tc.err, c)

			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if body["error"] != tc.msg {
				t.Fatalf("expected %q, got %q", tc.msg, body["error"])
			}
		})
	}
}

func TestHTTPErrorHandler_ValidationErrors(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/issues", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop())(validation.Errors{"title": {"title is required"}}, c)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	var body struct {
		Errors map[string][]string `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if len(body.Errors["title"]) != 1 {
		t.Fatalf("expected title error, got %+v", body.Errors)
	}
}
