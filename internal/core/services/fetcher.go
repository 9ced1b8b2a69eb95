package services

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driven"
)

var (
	orderByPattern       = regexp.MustCompile(`(?i)\border\s+by\b`)
	projectClausePattern = regexp.MustCompile(`(?i)\bproject\s*[=!]\s*`)
	issueKeyPattern      = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9]+)-\d+$`)
)

// BuildJQL composes the search query for a sync scope. A custom filter is
// used verbatim for global scope; for project scope it is conjoined with a
// project clause unless it already carries one. Queries without explicit
// ordering get ORDER BY key DESC so paging stays deterministic.
func BuildJQL(projectKey, customJQL string) (string, error) {
	trimmed := strings.TrimSpace(customJQL)
	if trimmed != "" {
		if projectKey == "" || projectClausePattern.MatchString(trimmed) {
			return ensureOrderBy(trimmed), nil
		}
		base := fmt.Sprintf("project = %q AND (%s)", projectKey, trimmed)
		return ensureOrderBy(base), nil
	}
	if projectKey == "" {
		return "", domain.ErrProjectKeyRequired
	}
	return fmt.Sprintf("project = %q ORDER BY key DESC", projectKey), nil
}

func ensureOrderBy(jql string) string {
	if orderByPattern.MatchString(jql) {
		return jql
	}
	return jql + " ORDER BY key DESC"
}

// IssueFetcher resolves sync scopes into JQL and pages issues out of the
// tracker.
type IssueFetcher struct {
	tracker driven.TrackerAPI
	logger  *slog.Logger
}

// NewIssueFetcher creates a new IssueFetcher.
func NewIssueFetcher(tracker driven.TrackerAPI, logger *slog.Logger) *IssueFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &IssueFetcher{tracker: tracker, logger: logger}
}

// FetchRequest describes one page or count of a sync scope.
type FetchRequest struct {
	StartAt    int
	MaxResults int
	ProjectID  string
	ProjectKey string
	IssueKey   string
	Fields     []string
	JQLQuery   string
}

// ProjectKeyFor resolves a project key from an issue key or a project ID.
// Issue keys are parsed locally; a project ID costs one tracker call.
func (f *IssueFetcher) ProjectKeyFor(ctx context.Context, projectID, issueKey string) (string, error) {
	if issueKey != "" {
		m := issueKeyPattern.FindStringSubmatch(issueKey)
		if m == nil {
			return "", fmt.Errorf("invalid issue key format: %s: %w", issueKey, domain.ErrInvalidInput)
		}
		return m[1], nil
	}
	if projectID == "" {
		return "", domain.ErrProjectKeyRequired
	}
	project, err := f.tracker.GetProject(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("failed to fetch project %s: %w", projectID, err)
	}
	if project.Key == "" {
		return "", fmt.Errorf("no project key found for ID %s: %w", projectID, domain.ErrNotFound)
	}
	return project.Key, nil
}

func (f *IssueFetcher) resolveJQL(ctx context.Context, req FetchRequest) (string, error) {
	key := req.ProjectKey
	if key == "" && (req.ProjectID != "" || req.IssueKey != "") {
		resolved, err := f.ProjectKeyFor(ctx, req.ProjectID, req.IssueKey)
		if err != nil {
			return "", err
		}
		key = resolved
	}
	return BuildJQL(key, req.JQLQuery)
}

// Fetch returns one page of issues for the scope.
func (f *IssueFetcher) Fetch(ctx context.Context, req FetchRequest) (*domain.SearchResult, error) {
	jql, err := f.resolveJQL(ctx, req)
	if err != nil {
		return nil, err
	}
	fields := req.Fields
	if len(fields) == 0 {
		fields = []string{"key"}
	}
	result, err := f.tracker.SearchIssues(ctx, jql, req.StartAt, req.MaxResults, fields)
	if err != nil {
		return nil, fmt.Errorf("issue search failed: %w", err)
	}
	return result, nil
}

// Count returns the approximate number of issues in the scope.
func (f *IssueFetcher) Count(ctx context.Context, req FetchRequest) (int, error) {
	jql, err := f.resolveJQL(ctx, req)
	if err != nil {
		return 0, err
	}
	count, err := f.tracker.CountIssues(ctx, jql)
	if err != nil {
		return 0, fmt.Errorf("issue count failed: %w", err)
	}
	return count, nil
}
