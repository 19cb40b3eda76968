package handler

import (
	"time"

	"github.com/issuetracker/issues-api/internal/core/domain"
	"github.com/issuetracker/issues-api/internal/core/ports"
)

// timestampLayout is ISO 8601 at the microsecond precision the SQL stores
// keep, so an update right after a create still shows a later updatedAt.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// DescriptionRenderer turns a markdown description into safe HTML.
type DescriptionRenderer interface {
	Render(src string) string
}

// --- Request → Service input ---

func toCreateIssueInput(req createIssueRequest) ports.CreateIssueInput {
	return ports.CreateIssueInput{
		Title:       req.Title,
		Description: req.Description,
	}
}

func toUpdateIssueInput(req updateIssueRequest) ports.UpdateIssueInput {
	return ports.UpdateIssueInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	}
}

// --- Domain → Response ---

func toIssueResponse(issue *domain.Issue, r DescriptionRenderer) issueResponse {
	return issueResponse{
		ID:              issue.ID,
		Title:           issue.Title,
		Description:     issue.Description,
		DescriptionHTML: r.Render(issue.Description),
		Status:          string(issue.Status),
		UserID:          issue.UserID,
		CreatedAt:       formatTime(issue.CreatedAt),
		UpdatedAt:       formatTime(issue.UpdatedAt),
	}
}

func toIssueResponses(issues []*domain.Issue, r DescriptionRenderer) []issueResponse {
	out := make([]issueResponse, 0, len(issues))
	for _, issue := range issues {
		out = append(out, toIssueResponse(issue, r))
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timestampLayout)
}
