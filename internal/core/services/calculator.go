package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driven"
)

const (
	fieldCatalogCacheKey = "flowzira_custom_fields"
	fieldCatalogTTL      = time.Hour
	fieldSearchQuery     = "flowzira"
)

// FieldCalculator resolves live custom fields onto the static registry and
// computes their values. Values can be returned for batching or written
// straight back onto the issue.
type FieldCalculator struct {
	tracker  driven.TrackerAPI
	cache    driven.Cache
	comments *CommentCalculators
	jsm      *JSMCalculators
	logger   *slog.Logger
}

// NewFieldCalculator creates a new FieldCalculator.
func NewFieldCalculator(tracker driven.TrackerAPI, cache driven.Cache, logger *slog.Logger) *FieldCalculator {
	if logger == nil {
		logger = slog.Default()
	}
	return &FieldCalculator{
		tracker:  tracker,
		cache:    cache,
		comments: NewCommentCalculators(tracker, logger),
		jsm:      NewJSMCalculators(tracker, cache, logger),
		logger:   logger,
	}
}

// FlowziraFields returns the live Flowzira custom field descriptors,
// served from cache for up to an hour unless forceRefresh is set.
func (c *FieldCalculator) FlowziraFields(ctx context.Context, forceRefresh bool) ([]domain.FieldDescriptor, error) {
	if !forceRefresh {
		if cached, err := c.cache.Get(ctx, fieldCatalogCacheKey); err == nil {
			var fields []domain.FieldDescriptor
			if err := json.Unmarshal([]byte(cached), &fields); err == nil {
				return fields, nil
			}
		} else if !errors.Is(err, domain.ErrNotFound) {
			c.logger.Warn("field catalog cache read failed", "error", err)
		}
	}
	fields, err := c.tracker.SearchFields(ctx, fieldSearchQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch custom fields: %w", err)
	}
	if data, err := json.Marshal(fields); err == nil {
		if err := c.cache.Set(ctx, fieldCatalogCacheKey, string(data), fieldCatalogTTL); err != nil {
			c.logger.Warn("field catalog cache write failed", "error", err)
		}
	}
	return fields, nil
}

// CalculateFieldValue computes the value of one custom field for one issue.
// Fields that do not resolve to a registry entry with a bound calculator
// return nil without error. When updateIssue is set the value is written
// back in its own update call; throttle adds a pause after the tracker
// round trip for rate-limit-sensitive callers.
func (c *FieldCalculator) CalculateFieldValue(ctx context.Context, issue *domain.Issue, field domain.FieldDescriptor, updateIssue bool, settings *domain.FlatAppSettings, throttle time.Duration) (any, error) {
	info, ok := domain.ResolveFieldInfo(field)
	if !ok || info.Calculator == "" {
		return nil, nil
	}

	value, err := c.dispatch(ctx, issue, info, settings)
	if err != nil {
		return nil, err
	}

	if updateIssue {
		if err := c.tracker.UpdateIssueFields(ctx, issue.Key, map[string]any{field.ID: value}); err != nil {
			return nil, fmt.Errorf("failed to update issue %s: %w", issue.Key, err)
		}
	}
	if throttle > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(throttle):
		}
	}
	return value, nil
}

func (c *FieldCalculator) dispatch(ctx context.Context, issue *domain.Issue, info domain.FieldInfo, settings *domain.FlatAppSettings) (any, error) {
	switch info.Calculator {
	case domain.CalcLastComment:
		return c.comments.LastComment(ctx, issue)
	case domain.CalcFirstComment:
		return c.comments.FirstComment(ctx, issue)
	case domain.CalcCommentCount:
		return c.comments.CommentCount(ctx, issue)
	case domain.CalcInternalCommentCount:
		return c.comments.InternalCommentCount(ctx, issue)
	case domain.CalcLastCommentDate:
		return c.comments.LastCommentDate(ctx, issue)
	case domain.CalcFirstCommentDate:
		return c.comments.FirstCommentDate(ctx, issue)
	case domain.CalcLastAssigneeCommentDate:
		return c.comments.LastAssigneeCommentDate(ctx, issue)
	case domain.CalcLastCommenter:
		return c.comments.LastCommenter(ctx, issue)
	case domain.CalcFirstCommenter:
		return c.comments.FirstCommenter(ctx, issue)
	case domain.CalcIsLastCommenterAssignee:
		return c.comments.IsLastCommenterAssignee(ctx, issue)
	case domain.CalcIsLastCommenterReporter:
		return c.comments.IsLastCommenterReporter(ctx, issue)
	case domain.CalcIsLastCommenterCreator:
		return c.comments.IsLastCommenterCreator(ctx, issue)
	case domain.CalcPublicCommentCount:
		return c.jsm.PublicCommentCount(ctx, issue, settings)
	case domain.CalcAgentReplyCount:
		return c.jsm.AgentReplyCount(ctx, issue, settings)
	case domain.CalcCustomerReplyCount:
		return c.jsm.CustomerReplyCount(ctx, issue, settings)
	case domain.CalcIsLastCommenterCustomer:
		return c.jsm.IsLastCommenterCustomer(ctx, issue, settings)
	case domain.CalcIsLastCommentInternal:
		return c.jsm.IsLastCommentInternal(ctx, issue, settings)
	case domain.CalcIsLastCommentAgentResponse:
		return c.jsm.IsLastCommentAgentResponse(ctx, issue, settings)
	case domain.CalcLastAgentResponseDate:
		return c.jsm.LastAgentResponseDate(ctx, issue, settings)
	case domain.CalcLastCustomerCommentDate:
		return c.jsm.LastCustomerCommentDate(ctx, issue, settings)
	default:
		return nil, nil
	}
}
