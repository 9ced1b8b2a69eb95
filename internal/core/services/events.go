package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driven"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driving"
)

// Verify interface compliance
var _ driving.FieldEvents = (*FieldEventService)(nil)

// FieldEventService recalculates every Flowzira field on a single issue in
// response to comment activity.
type FieldEventService struct {
	tracker    driven.TrackerAPI
	calculator *FieldCalculator
	settings   *SettingsManager
	logger     *slog.Logger
}

// NewFieldEventService creates a new FieldEventService.
func NewFieldEventService(calculator *FieldCalculator, settings *SettingsManager, logger *slog.Logger) *FieldEventService {
	if logger == nil {
		logger = slog.Default()
	}
	return &FieldEventService{
		tracker:    calculator.tracker,
		calculator: calculator,
		settings:   settings,
		logger:     logger,
	}
}

// HandleCommentEvent recomputes and writes every calculated field on the
// issue, one update per field.
func (s *FieldEventService) HandleCommentEvent(ctx context.Context, issueIDOrKey string) error {
	if issueIDOrKey == "" {
		return domain.ErrInvalidInput
	}
	issue, err := s.tracker.GetIssue(ctx, issueIDOrKey)
	if err != nil {
		return fmt.Errorf("failed to fetch issue %s: %w", issueIDOrKey, err)
	}

	projectID := ""
	if issue.Fields.Project != nil {
		projectID = issue.Fields.Project.ID
	}
	settings, err := s.settings.GetSettings(ctx, projectID)
	if err != nil {
		return err
	}
	flat := settings.Flatten()

	catalog, err := s.calculator.FlowziraFields(ctx, false)
	if err != nil {
		return err
	}
	for _, field := range catalog {
		if _, err := s.calculator.CalculateFieldValue(ctx, issue, field, true, flat, 0); err != nil {
			return err
		}
	}
	s.logger.Info("recalculated fields after comment event", "issue", issue.Key, "fields", len(catalog))
	return nil
}
