package domain

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// IssueStatus represents the workflow state of an issue.
type IssueStatus string

const (
	StatusOpen       IssueStatus = "OPEN"
	StatusInProgress IssueStatus = "IN_PROGRESS"
	StatusClosed     IssueStatus = "CLOSED"
)

var ErrIssueNotFound = errors.New("issue not found")
var ErrInvalidIssueID = errors.New("invalid issue id")

// Statuses lists every accepted status in display order.
var Statuses = []IssueStatus{StatusOpen, StatusInProgress, StatusClosed}

// Valid reports whether s is one of the enumerated statuses.
// Any status may move to any other; there is no transition table.
func (s IssueStatus) Valid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// Issue is owned by exactly one user. UserID never changes after creation.
type Issue struct {
	ID          int64       `json:"id" bson:"_id"`
	Title       string      `json:"title" bson:"title"`
	Description string      `json:"description" bson:"description"`
	Status      IssueStatus `json:"status" bson:"status"`
	UserID      int64       `json:"userId" bson:"user_id"`
	CreatedAt   time.Time   `json:"createdAt" bson:"created_at"`
	UpdatedAt   time.Time   `json:"updatedAt" bson:"updated_at"`
}

// IssuePatch carries the fields an update will overwrite. Nil means untouched.
type IssuePatch struct {
	Title       *string
	Description *string
	Status      *IssueStatus
}

// Empty reports whether the patch would not change anything.
func (p IssuePatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.Status == nil
}

// Apply copies the set fields of p onto issue.
func (p IssuePatch) Apply(issue *Issue) {
	if p.Title != nil {
		issue.Title = *p.Title
	}
	if p.Description != nil {
		issue.Description = *p.Description
	}
	if p.Status != nil {
		issue.Status = *p.Status
	}
}

// ParseIssueID parses a path segment into an issue identifier.
// Only positive base-10 integers are accepted.
func ParseIssueID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, ErrInvalidIssueID
	}
	return id, nil
}
