package ports

import "github.com/issuetracker/issues-api/internal/core/domain"

// Metrics receives the business counters of the core services. The
// Prometheus implementation lives with the HTTP layer.
type Metrics interface {
	LoginAttempt(accepted bool)
	// IssueOperation result is one of "ok", "not_found", "invalid" or "error".
	IssueOperation(operation, result string)
	IssueStatusTransition(from, to domain.IssueStatus)
}
