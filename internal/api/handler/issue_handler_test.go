package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/issuetracker/issues-api/internal/core/domain"
	"github.com/issuetracker/issues-api/internal/core/ports"
	"github.com/issuetracker/issues-api/internal/pkg/validation"
)

type stubIssueService struct {
	calls int

	createFn func(ownerID int64, input ports.CreateIssueInput) (*domain.Issue, error)
	listFn   func(ownerID int64, filter domain.IssueFilter) ([]*domain.Issue, error)
	getFn    func(ownerID, id int64) (*domain.Issue, error)
	updateFn func(ownerID, id int64, input ports.UpdateIssueInput) (*domain.Issue, error)
	deleteFn func(ownerID, id int64) error
}

func (s *stubIssueService) Create(_ context.Context, ownerID int64, input ports.CreateIssueInput) (*domain.Issue, error) {
	s.calls++
	return s.createFn(ownerID, input)
}

func (s *stubIssueService) List(_ context.Context, ownerID int64, filter domain.IssueFilter) ([]*domain.Issue, error) {
	s.calls++
	return s.listFn(ownerID, filter)
}

func (s *stubIssueService) Get(_ context.Context, ownerID, id int64) (*domain.Issue, error) {
	s.calls++
	return s.getFn(ownerID, id)
}

func (s *stubIssueService) Update(_ context.Context, ownerID, id int64, input ports.UpdateIssueInput) (*domain.Issue, error) {
	s.calls++
	return s.updateFn(ownerID, id, input)
}

func (s *stubIssueService) Delete(_ context.Context, ownerID, id int64) error {
	s.calls++
	return s.deleteFn(ownerID, id)
}

// upperRenderer stands in for the markdown renderer.
type upperRenderer struct{}

func (upperRenderer) Render(src string) string { return "<p>" + src + "</p>" }

func sampleIssue(id, owner int64) *domain.Issue {
	ts := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)
	return &domain.Issue{ID: id, Title: "Bug", Description: "body", Status: domain.StatusOpen, UserID: owner, CreatedAt: ts, UpdatedAt: ts}
}

func authed(c echo.Context, userID int64) echo.Context {
	c.Set(ContextUserID, userID)
	return c
}

func TestIssueHandler_Create(t *testing.T) {
	e := echo.New()
	svc := &stubIssueService{
		createFn: func(ownerID int64, input ports.CreateIssueInput) (*domain.Issue, error) {
			if ownerID != 5 || input.Title != "Bug" || input.Description != "body" {
				t.Fatalf("unexpected call: %d %+v", ownerID, input)
			}
			return sampleIssue(1, ownerID), nil
		},
	}
	h := NewIssueHandler(svc, upperRenderer{})

	c, rec := newJSONContext(e, http.MethodPost, "/issues", `{"title":"Bug","description":"body","userId":99}`)
	if err := h.Create(authed(c, 5)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	var resp issueResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.UserID != 5 {
		t.Fatalf("owner must come from the session, got %d", resp.UserID)
	}
	if resp.DescriptionHTML != "<p>body</p>" || resp.Status != "OPEN" || resp.CreatedAt != "2026-03-10T09:30:00.000000Z" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestIssueHandler_RequiresIdentity(t *testing.T) {
	e := echo.New()
	svc := &stubIssueService{}
	h := NewIssueHandler(svc, upperRenderer{})

	handlers := map[string]echo.HandlerFunc{
		"create": h.Create, "list": h.List, "get": h.Get, "update": h.Update, "delete": h.Delete,
	}
	for name, fn := range handlers {
		t.Run(name, func(t *testing.T) {
			c, _ := newJSONContext(e, http.MethodGet, "/issues/1", `{}`)
			c.SetParamNames("id")
			c.SetParamValues("1")
			if err := fn(c); !errors.Is(err, domain.ErrUnauthorized) {
				t.Fatalf("expected ErrUnauthorized, got %v", err)
			}
		})
	}
	if svc.calls != 0 {
		t.Fatalf("service must not be called without identity, got %d calls", svc.calls)
	}
}

func TestIssueHandler_InvalidID(t *testing.T) {
	e := echo.New()
	svc := &stubIssueService{}
	h := NewIssueHandler(svc, upperRenderer{})

	for _, raw := range []string{"abc", "0", "-1", "1.5"} {
		c, _ := newJSONContext(e, http.MethodGet, "/issues/"+raw, "")
		c.SetParamNames("id")
		c.SetParamValues(raw)
		if err := h.Get(authed(c, 1)); !errors.Is(err, domain.ErrInvalidIssueID) {
			t.Errorf("id %q: expected ErrInvalidIssueID, got %v", raw, err)
		}
	}
	if svc.calls != 0 {
		t.Fatalf("service must not be called for bad ids")
	}
}

func TestIssueHandler_GetNotFound(t *testing.T) {
	e := echo.New()
	svc := &stubIssueService{
		getFn: func(ownerID, id int64) (*domain.Issue, error) { return nil, domain.ErrIssueNotFound },
	}
	h := NewIssueHandler(svc, upperRenderer{})

	c, _ := newJSONContext(e, http.MethodGet, "/issues/3", "")
	c.SetParamNames("id")
	c.SetParamValues("3")
	if err := h.Get(authed(c, 1)); !errors.Is(err, domain.ErrIssueNotFound) {
		t.Fatalf("expected ErrIssueNotFound, got %v", err)
	}
}

func TestIssueHandler_Update_PassesEmptyStrings(t *testing.T) {
	e := echo.New()
	svc := &stubIssueService{
		updateFn: func(ownerID, id int64, input ports.UpdateIssueInput) (*domain.Issue, error) {
			if id != 4 || input.Title != "" || input.Status != "CLOSED" {
				t.Fatalf("unexpected update: %d %+v", id, input)
			}
			issue := sampleIssue(id, ownerID)
			issue.Status = domain.StatusClosed
			return issue, nil
		},
	}
	h := NewIssueHandler(svc, upperRenderer{})

	c, rec := newJSONContext(e, http.MethodPatch, "/issues/4", `{"title":"","status":"CLOSED"}`)
	c.SetParamNames("id")
	c.SetParamValues("4")
	if err := h.Update(authed(c, 1)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if resp := decode(t, rec); resp["status"] != "CLOSED" {
		t.Fatalf("unexpected response: %v", resp)
	}
}

func TestIssueHandler_Delete(t *testing.T) {
	e := echo.New()
	svc := &stubIssueService{
		deleteFn: func(ownerID, id int64) error { return nil },
	}
	h := NewIssueHandler(svc, upperRenderer{})

	c, rec := newJSONContext(e, http.MethodDelete, "/issues/9", "")
	c.SetParamNames("id")
	c.SetParamValues("9")
	if err := h.Delete(authed(c, 1)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if resp := decode(t, rec); resp["success"] != true {
		t.Fatalf("expected success true, got %v", resp)
	}
}

func TestIssueHandler_ListFilters(t *testing.T) {
	e := echo.New()
	var got domain.IssueFilter
	svc := &stubIssueService{
		listFn: func(ownerID int64, filter domain.IssueFilter) ([]*domain.Issue, error) {
			got = filter
			return []*domain.Issue{}, nil
		},
	}
	h := NewIssueHandler(svc, upperRenderer{})

	c, rec := newJSONContext(e, http.MethodGet, "/issues?search=login&status=in_progress&createdOn=2026-03-10", "")
	if err := h.List(authed(c, 1)); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Body.String() != "[]\n" {
		t.Fatalf("empty list must serialise as [], got %q", rec.Body.String())
	}
	if got.Search != "login" || got.Status != domain.StatusInProgress {
		t.Fatalf("unexpected filter: %+v", got)
	}
	if !got.CreatedOn.Equal(time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)) || !got.UpdatedOn.IsZero() {
		t.Fatalf("unexpected dates: %+v", got)
	}
}

func TestIssueHandler_ListBadFilters(t *testing.T) {
	e := echo.New()
	svc := &stubIssueService{}
	h := NewIssueHandler(svc, upperRenderer{})

	c, _ := newJSONContext(e, http.MethodGet, "/issues?status=DONE&updatedOn=10/03/2026", "")
	err := h.List(authed(c, 1))

	var verr validation.Errors
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation.Errors, got %v", err)
	}
	if len(verr["status"]) == 0 || len(verr["updatedOn"]) == 0 {
		t.Fatalf("expected status and updatedOn errors, got %v", verr)
	}
	if svc.calls != 0 {
		t.Fatalf("service must not be called for invalid filters")
	}
}
