package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/issuetracker/issues-api/internal/core/domain"
	"github.com/issuetracker/issues-api/internal/core/ports"
	"github.com/issuetracker/issues-api/internal/pkg/validation"
)

type IssueService struct {
	repo     ports.IssueRepository
	validate *validation.Validator
	metrics  ports.Metrics
	logger   zerolog.Logger
}

// NewIssueService wires the store and the counters. A nil m records nothing.
func NewIssueService(repo ports.IssueRepository, m ports.Metrics, logger zerolog.Logger) *IssueService {
	if m == nil {
		m = nopMetrics{}
	}
	return &IssueService{repo: repo, validate: validation.New(), metrics: m, logger: logger}
}

// Create opens a new issue for ownerID. The status always starts as OPEN.
func (s *IssueService) Create(ctx context.Context, ownerID int64, input ports.CreateIssueInput) (*domain.Issue, error) {
	if ownerID <= 0 {
		return nil, domain.ErrUnauthorized
	}
	// Titles are single-line labels and get trimmed. Descriptions are markdown,
	// where leading indentation and trailing spaces carry meaning, so they are
	// stored byte for byte.
	input.Title = strings.TrimSpace(input.Title)
	if err := s.validate.Validate(&input); err != nil {
		s.observe("create", err)
		return nil, err
	}

	now := time.Now().UTC()
	issue := &domain.Issue{
		Title:       input.Title,
		Description: input.Description,
		Status:      domain.StatusOpen,
		UserID:      ownerID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.Create(ctx, issue); err != nil {
		s.observe("create", err)
		return nil, fmt.Errorf("create issue: %w", err)
	}

	s.logger.Info().Int64("issue_id", issue.ID).Int64("user_id", ownerID).Msg("issue created")
	s.observe("create", nil)
	return issue, nil
}

// List returns the caller's issues in id order, narrowed by filter.
func (s *IssueService) List(ctx context.Context, ownerID int64, filter domain.IssueFilter) ([]*domain.Issue, error) {
	if ownerID <= 0 {
		return nil, domain.ErrUnauthorized
	}
	issues, err := s.repo.ListByOwner(ctx, ownerID)
	if err != nil {
		s.observe("list", err)
		return nil, fmt.Errorf("list issues: %w", err)
	}
	s.observe("list", nil)
	return filter.Apply(issues), nil
}

func (s *IssueService) Get(ctx context.Context, ownerID, id int64) (*domain.Issue, error) {
	if ownerID <= 0 {
		return nil, domain.ErrUnauthorized
	}
	issue, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		s.observe("get", err)
		if errors.Is(err, domain.ErrIssueNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get issue %d: %w", id, err)
	}
	s.observe("get", nil)
	return issue, nil
}

// Update applies the non-empty fields of input. An input with nothing set
// returns the current record without writing.
func (s *IssueService) Update(ctx context.Context, ownerID, id int64, input ports.UpdateIssueInput) (*domain.Issue, error) {
	if ownerID <= 0 {
		return nil, domain.ErrUnauthorized
	}
	if err := s.validate.Validate(&input); err != nil {
		s.observe("update", err)
		return nil, err
	}

	current, err := s.repo.FindByID(ctx, id, ownerID)
	if err != nil {
		s.observe("update", err)
		if errors.Is(err, domain.ErrIssueNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update issue %d: %w", id, err)
	}

	patch := patchFromInput(input)
	if patch.Empty() {
		s.observe("update", nil)
		return current, nil
	}

	updated, err := s.repo.Update(ctx, id, ownerID, patch)
	if err != nil {
		s.observe("update", err)
		if errors.Is(err, domain.ErrIssueNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("update issue %d: %w", id, err)
	}

	if updated.Status != current.Status {
		s.metrics.IssueStatusTransition(current.Status, updated.Status)
		s.logger.Info().
			Int64("issue_id", id).
			Str("from", string(current.Status)).
			Str("to", string(updated.Status)).
			Msg("issue status changed")
	}
	s.observe("update", nil)
	return updated, nil
}

func (s *IssueService) Delete(ctx context.Context, ownerID, id int64) error {
	if ownerID <= 0 {
		return domain.ErrUnauthorized
	}
	if err := s.repo.Delete(ctx, id, ownerID); err != nil {
		s.observe("delete", err)
		if errors.Is(err, domain.ErrIssueNotFound) {
			return err
		}
		return fmt.Errorf("delete issue %d: %w", id, err)
	}
	s.logger.Info().Int64("issue_id", id).Int64("user_id", ownerID).Msg("issue deleted")
	s.observe("delete", nil)
	return nil
}

// patchFromInput treats "" the same as an omitted field.
func patchFromInput(input ports.UpdateIssueInput) domain.IssuePatch {
	var patch domain.IssuePatch
	if title := strings.TrimSpace(input.Title); title != "" {
		patch.Title = &title
	}
	if input.Description != "" {
		desc := input.Description
		patch.Description = &desc
	}
	if input.Status != "" {
		status := domain.IssueStatus(input.Status)
		patch.Status = &status
	}
	return patch
}

func (s *IssueService) observe(operation string, err error) {
	result := "ok"
	var verr validation.Errors
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrIssueNotFound):
		result = "not_found"
	case errors.As(err, &verr):
		result = "invalid"
	default:
		result = "error"
	}
	s.metrics.IssueOperation(operation, result)
}
