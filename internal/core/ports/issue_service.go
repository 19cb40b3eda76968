package ports

import (
	"context"

	"github.com/issuetracker/issues-api/internal/core/domain"
)

// CreateIssueInput carries the fields needed to open an issue.
type CreateIssueInput struct {
	Title       string `validate:"required,max=255"`
	Description string `validate:"required"`
}

// UpdateIssueInput is a partial update. An empty string means "leave the
// field as it is", whether the client omitted it or sent "".
type UpdateIssueInput struct {
	Title       string `validate:"omitempty,max=255"`
	Description string
	Status      string `validate:"omitempty,oneof=OPEN IN_PROGRESS CLOSED"`
}

// IssueService defines the owner-scoped use cases for issues. ownerID is the
// authenticated caller; it is never taken from the request body.
type IssueService interface {
	Create(ctx context.Context, ownerID int64, input CreateIssueInput) (*domain.Issue, error)
	List(ctx context.Context, ownerID int64, filter domain.IssueFilter) ([]*domain.Issue, error)
	Get(ctx context.Context, ownerID, id int64) (*domain.Issue, error)
	Update(ctx context.Context, ownerID, id int64, input UpdateIssueInput) (*domain.Issue, error)
	Delete(ctx context.Context, ownerID, id int64) error
}
