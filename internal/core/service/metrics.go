package service

import "github.com/issuetracker/issues-api/internal/core/domain"

type nopMetrics struct{}

func (nopMetrics) LoginAttempt(bool) {}

func (nopMetrics) IssueOperation(string, string) {}

func (nopMetrics) IssueStatusTransition(domain.IssueStatus, domain.IssueStatus) {}
