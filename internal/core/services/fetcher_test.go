package services

import (
	"context"
	"errors"
	"testing"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driven/mocks"
)

func TestBuildJQL(t *testing.T) {
	tests := []struct {
		name       string
		projectKey string
		customJQL  string
		want       string
		wantErr    error
	}{
		{
			name:       "default project query",
			projectKey: "DEMO",
			want:       `project = "DEMO" ORDER BY key DESC`,
		},
		{
			name:       "project scope with filter lacking project clause",
			projectKey: "DEMO",
			customJQL:  "status = Done",
			want:       `project = "DEMO" AND (status = Done) ORDER BY key DESC`,
		},
		{
			name:       "project scope with filter carrying project clause",
			projectKey: "DEMO",
			customJQL:  `project = OTHER AND status = Done`,
			want:       `project = OTHER AND status = Done ORDER BY key DESC`,
		},
		{
			name:      "global scope uses filter verbatim",
			customJQL: "labels = backlog ORDER BY created ASC",
			want:      "labels = backlog ORDER BY created ASC",
		},
		{
			name:      "global scope appends ordering when absent",
			customJQL: "labels = backlog",
			want:      "labels = backlog ORDER BY key DESC",
		},
		{
			name:       "existing order by is case insensitive",
			projectKey: "DEMO",
			customJQL:  "status = Done order by created",
			want:       `project = "DEMO" AND (status = Done order by created)`,
		},
		{
			name:    "no scope at all",
			wantErr: domain.ErrProjectKeyRequired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildJQL(tt.projectKey, tt.customJQL)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("expected error %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProjectKeyFor(t *testing.T) {
	tracker := mocks.NewMockTrackerAPI()
	tracker.Projects["10001"] = &domain.ProjectRef{ID: "10001", Key: "DEMO"}
	fetcher := NewIssueFetcher(tracker, nil)
	ctx := context.Background()

	key, err := fetcher.ProjectKeyFor(ctx, "", "DEMO-42")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "DEMO" {
		t.Errorf("got %q, want DEMO", key)
	}

	if _, err := fetcher.ProjectKeyFor(ctx, "", "not-an-issue-key!"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("expected invalid input error, got %v", err)
	}

	key, err = fetcher.ProjectKeyFor(ctx, "10001", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if key != "DEMO" {
		t.Errorf("got %q, want DEMO", key)
	}

	if _, err := fetcher.ProjectKeyFor(ctx, "", ""); !errors.Is(err, domain.ErrProjectKeyRequired) {
		t.Errorf("expected project key required error, got %v", err)
	}
}

func TestFetchPagesAndCounts(t *testing.T) {
	tracker := mocks.NewMockTrackerAPI()
	for _, key := range []string{"DEMO-3", "DEMO-2", "DEMO-1"} {
		tracker.Issues = append(tracker.Issues, domain.Issue{ID: key, Key: key})
	}
	fetcher := NewIssueFetcher(tracker, nil)
	ctx := context.Background()

	page, err := fetcher.Fetch(ctx, FetchRequest{StartAt: 1, MaxResults: 2, ProjectKey: "DEMO"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(page.Issues) != 2 || page.Issues[0].Key != "DEMO-2" {
		t.Errorf("unexpected page: %+v", page.Issues)
	}
	if tracker.SearchJQLs[0] != `project = "DEMO" ORDER BY key DESC` {
		t.Errorf("unexpected jql: %q", tracker.SearchJQLs[0])
	}

	count, err := fetcher.Count(ctx, FetchRequest{ProjectKey: "DEMO"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 3 {
		t.Errorf("got count %d, want 3", count)
	}
}
