package ports

import (
	"context"

	"github.com/issuetracker/issues-api/internal/core/domain"
)

// IssueRepository defines persistence operations for issues.
// Every targeted call is filtered by id AND ownerID; a row owned by someone
// else is reported as domain.ErrIssueNotFound, exactly like a missing row.
type IssueRepository interface {
	// Create inserts the issue and fills in its ID.
	Create(ctx context.Context, issue *domain.Issue) error
	ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Issue, error)
	FindByID(ctx context.Context, id, ownerID int64) (*domain.Issue, error)
	// Update writes the set fields of patch and refreshes updated_at.
	Update(ctx context.Context, id, ownerID int64, patch domain.IssuePatch) (*domain.Issue, error)
	Delete(ctx context.Context, id, ownerID int64) error
}
