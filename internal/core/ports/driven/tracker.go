package driven

import (
	"context"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
)

// TrackerAPI is the issue tracker's REST surface as the sync engine uses it.
// Implementations translate these calls into Jira REST v3 requests.
type TrackerAPI interface {
	// SearchIssues runs a JQL search and returns one page of issues.
	// fields is the projection; pass at least "key".
	SearchIssues(ctx context.Context, jql string, startAt, maxResults int, fields []string) (*domain.SearchResult, error)

	// CountIssues returns the approximate number of issues matching the JQL.
	CountIssues(ctx context.Context, jql string) (int, error)

	// GetIssue fetches a single issue by ID or key with its core fields.
	GetIssue(ctx context.Context, issueIDOrKey string) (*domain.Issue, error)

	// GetComments returns all comments on an issue, oldest first.
	GetComments(ctx context.Context, issueIDOrKey string) ([]domain.Comment, error)

	// GetChangelog returns the issue's changelog entries.
	GetChangelog(ctx context.Context, issueIDOrKey string) ([]domain.ChangeHistory, error)

	// GetUser fetches a user by account ID.
	GetUser(ctx context.Context, accountID string) (*domain.User, error)

	// GetProject fetches a project by ID or key.
	GetProject(ctx context.Context, projectIDOrKey string) (*domain.ProjectRef, error)

	// GetRoles lists all role definitions on the site.
	GetRoles(ctx context.Context) ([]domain.Role, error)

	// GetProjectRoleActorIDs returns the account IDs of the user actors
	// holding the given role in the project.
	GetProjectRoleActorIDs(ctx context.Context, projectID, roleID string) ([]string, error)

	// SearchFields looks up custom fields matching a query string.
	SearchFields(ctx context.Context, query string) ([]domain.FieldDescriptor, error)

	// UpdateIssueFields writes field values onto an issue in one request,
	// bypassing screen and edit restrictions and without notifying watchers.
	UpdateIssueFields(ctx context.Context, issueKey string, fields map[string]any) error
}
