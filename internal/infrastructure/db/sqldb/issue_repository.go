package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/issuetracker/issues-api/internal/core/domain"
)

const issueColumns = `id, title, description, status, user_id, created_at, updated_at`

type IssueRepository struct {
	db  *DB
	now func() time.Time
}

func NewIssueRepository(db *DB) *IssueRepository {
	return &IssueRepository{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIssue(row rowScanner) (*domain.Issue, error) {
	var (
		i      domain.Issue
		status string
	)
	if err := row.Scan(&i.ID, &i.Title, &i.Description, &status, &i.UserID, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return nil, err
	}
	i.Status = domain.IssueStatus(status)
	i.CreatedAt = i.CreatedAt.UTC()
	i.UpdatedAt = i.UpdatedAt.UTC()
	return &i, nil
}

// Create inserts the issue with fresh timestamps and fills in its ID.
func (r *IssueRepository) Create(ctx context.Context, issue *domain.Issue) error {
	now := timestamp(r.now())
	if issue.Status == "" {
		issue.Status = domain.StatusOpen
	}

	id, err := r.db.insert(ctx, r.db.conn,
		`INSERT INTO issues (title, description, status, user_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		issue.Title, issue.Description, string(issue.Status), issue.UserID, now, now,
	)
	if err != nil {
		return fmt.Errorf("insert issue: %w", err)
	}

	issue.ID = id
	issue.CreatedAt = now
	issue.UpdatedAt = now
	return nil
}

// ListByOwner returns every issue owned by ownerID in id order.
func (r *IssueRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*domain.Issue, error) {
	rows, err := r.db.conn.QueryContext(ctx,
		r.db.rebind(`SELECT `+issueColumns+` FROM issues WHERE user_id = ? ORDER BY id`),
		ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	defer rows.Close()

	issues := make([]*domain.Issue, 0)
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("scan issue: %w", err)
		}
		issues = append(issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list issues: %w", err)
	}
	return issues, nil
}

func (r *IssueRepository) FindByID(ctx context.Context, id, ownerID int64) (*domain.Issue, error) {
	return r.findByID(ctx, r.db.conn, id, ownerID)
}

func (r *IssueRepository) findByID(ctx context.Context, q querier, id, ownerID int64) (*domain.Issue, error) {
	issue, err := scanIssue(q.QueryRowContext(ctx,
		r.db.rebind(`SELECT `+issueColumns+` FROM issues WHERE id = ? AND user_id = ?`),
		id, ownerID,
	))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrIssueNotFound
		}
		return nil, fmt.Errorf("find issue: %w", err)
	}
	return issue, nil
}

// Update writes the set fields of patch plus updated_at and reads the row
// back inside the same transaction.
func (r *IssueRepository) Update(ctx context.Context, id, ownerID int64, patch domain.IssuePatch) (*domain.Issue, error) {
	sets := make([]string, 0, 4)
	args := make([]any, 0, 6)
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, string(*patch.Status))
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, timestamp(r.now()), id, ownerID)

	tx, err := r.db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("update issue: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		r.db.rebind(`UPDATE issues SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`),
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("update issue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update issue: %w", err)
	}
	if n == 0 {
		return nil, domain.ErrIssueNotFound
	}

	issue, err := r.findByID(ctx, tx, id, ownerID)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("update issue: %w", err)
	}
	return issue, nil
}

func (r *IssueRepository) Delete(ctx context.Context, id, ownerID int64) error {
	res, err := r.db.conn.ExecContext(ctx,
		r.db.rebind(`DELETE FROM issues WHERE id = ? AND user_id = ?`),
		id, ownerID,
	)
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete issue: %w", err)
	}
	if n == 0 {
		return domain.ErrIssueNotFound
	}
	return nil
}
