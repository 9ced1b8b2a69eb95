package services

import (
	"context"
	"errors"
	"testing"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driven/mocks"
)

func newEventFixture() (*FieldEventService, *mocks.MockTrackerAPI) {
	tracker := mocks.NewMockTrackerAPI()
	tracker.Fields = []domain.FieldDescriptor{
		{ID: "customfield_11", Key: "flowzira-comment-count-custom-field", Name: "Flowzira Comment Count"},
		{ID: "customfield_12", Key: "flowzira-last-comment-custom-field", Name: "Flowzira Last Comment"},
	}
	cache := mocks.NewMockCache()
	calculator := NewFieldCalculator(tracker, cache, nil)
	settings := NewSettingsManager(mocks.NewMockSettingsStore(), cache, tracker, nil)
	return NewFieldEventService(calculator, settings, nil), tracker
}

func TestHandleCommentEventWritesEveryField(t *testing.T) {
	service, tracker := newEventFixture()
	tracker.Issues = []domain.Issue{{
		ID:  "10100",
		Key: "DEMO-1",
		Fields: domain.IssueFields{
			Project: &domain.ProjectRef{ID: "10001", Key: "DEMO"},
		},
	}}
	tracker.Comments["10100"] = []domain.Comment{{
		ID:      "c1",
		Author:  &domain.User{AccountID: "a1", DisplayName: "Alice"},
		Body:    "hello",
		Created: "2026-01-01T10:00:00.000+0000",
	}}

	if err := service.HandleCommentEvent(context.Background(), "DEMO-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updates := tracker.Updates["DEMO-1"]
	if len(updates) != 2 {
		t.Fatalf("got %d updates, want one per catalog field", len(updates))
	}
	merged := map[string]any{}
	for _, update := range updates {
		for k, v := range update {
			merged[k] = v
		}
	}
	if merged["customfield_11"] != 1 {
		t.Errorf("got comment count %v, want 1", merged["customfield_11"])
	}
	if merged["customfield_12"] != "Alice: hello" {
		t.Errorf("got last comment %v", merged["customfield_12"])
	}
}

func TestHandleCommentEventRequiresIssue(t *testing.T) {
	service, _ := newEventFixture()

	if err := service.HandleCommentEvent(context.Background(), ""); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("got %v, want ErrInvalidInput", err)
	}

	err := service.HandleCommentEvent(context.Background(), "DEMO-404")
	if err == nil {
		t.Error("expected error for unknown issue")
	}
}
