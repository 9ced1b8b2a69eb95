package mocks

import (
	"context"
	"sync"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
)

// MockTrackerAPI is a mock implementation of TrackerAPI for testing.
// Searches window over the Issues slice in order; Total is its length.
type MockTrackerAPI struct {
	mu sync.Mutex

	Issues     []domain.Issue
	Comments   map[string][]domain.Comment
	Changelogs map[string][]domain.ChangeHistory
	Users      map[string]*domain.User
	Projects   map[string]*domain.ProjectRef
	Roles      []domain.Role
	RoleActors map[string][]string
	Fields     []domain.FieldDescriptor

	// Error injection
	SearchErr error
	CountErr  error
	UpdateErr error
	FieldsErr error

	// Recorded calls
	SearchJQLs []string
	CountJQLs  []string
	Updates    map[string][]map[string]any
}

// NewMockTrackerAPI creates a new MockTrackerAPI
func NewMockTrackerAPI() *MockTrackerAPI {
	return &MockTrackerAPI{
		Comments:   make(map[string][]domain.Comment),
		Changelogs: make(map[string][]domain.ChangeHistory),
		Users:      make(map[string]*domain.User),
		Projects:   make(map[string]*domain.ProjectRef),
		RoleActors: make(map[string][]string),
		Updates:    make(map[string][]map[string]any),
	}
}

func (m *MockTrackerAPI) SearchIssues(ctx context.Context, jql string, startAt, maxResults int, fields []string) (*domain.SearchResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SearchJQLs = append(m.SearchJQLs, jql)
	if m.SearchErr != nil {
		return nil, m.SearchErr
	}
	total := len(m.Issues)
	if startAt > total {
		startAt = total
	}
	end := startAt + maxResults
	if end > total {
		end = total
	}
	page := append([]domain.Issue(nil), m.Issues[startAt:end]...)
	return &domain.SearchResult{Issues: page, StartAt: startAt, Total: total}, nil
}

func (m *MockTrackerAPI) CountIssues(ctx context.Context, jql string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.CountJQLs = append(m.CountJQLs, jql)
	if m.CountErr != nil {
		return 0, m.CountErr
	}
	return len(m.Issues), nil
}

func (m *MockTrackerAPI) GetIssue(ctx context.Context, issueIDOrKey string) (*domain.Issue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.Issues {
		if m.Issues[i].ID == issueIDOrKey || m.Issues[i].Key == issueIDOrKey {
			copied := m.Issues[i]
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *MockTrackerAPI) GetComments(ctx context.Context, issueIDOrKey string) ([]domain.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Comment(nil), m.Comments[issueIDOrKey]...), nil
}

func (m *MockTrackerAPI) GetChangelog(ctx context.Context, issueIDOrKey string) ([]domain.ChangeHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ChangeHistory(nil), m.Changelogs[issueIDOrKey]...), nil
}

func (m *MockTrackerAPI) GetUser(ctx context.Context, accountID string) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.Users[accountID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return u, nil
}

func (m *MockTrackerAPI) GetProject(ctx context.Context, projectIDOrKey string) (*domain.ProjectRef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Projects[projectIDOrKey]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (m *MockTrackerAPI) GetRoles(ctx context.Context) ([]domain.Role, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Role(nil), m.Roles...), nil
}

func (m *MockTrackerAPI) GetProjectRoleActorIDs(ctx context.Context, projectID, roleID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.RoleActors[projectID+":"+roleID]...), nil
}

func (m *MockTrackerAPI) SearchFields(ctx context.Context, query string) ([]domain.FieldDescriptor, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FieldsErr != nil {
		return nil, m.FieldsErr
	}
	return append([]domain.FieldDescriptor(nil), m.Fields...), nil
}

func (m *MockTrackerAPI) UpdateIssueFields(ctx context.Context, issueKey string, fields map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	copied := make(map[string]any, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	m.Updates[issueKey] = append(m.Updates[issueKey], copied)
	return nil
}

// Helper methods for testing

// UpdateCount returns the total number of recorded issue updates.
func (m *MockTrackerAPI) UpdateCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, updates := range m.Updates {
		n += len(updates)
	}
	return n
}
