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
	roleIDCachePrefix   = "serviceDeskTeamRoleId:"
	agentIDsCachePrefix = "projectAgentAccountIds:"
	agentRosterSoftTTL  = 12 * time.Hour
	agentRosterCacheTTL = time.Hour
)

// JSMCalculators computes the service-management comment field values.
// Unlike the plain comment family, every calculator here absorbs tracker
// failures into a neutral value so one JSM hiccup cannot fail a whole batch.
type JSMCalculators struct {
	tracker driven.TrackerAPI
	cache   driven.Cache
	logger  *slog.Logger
}

// NewJSMCalculators creates a new JSMCalculators.
func NewJSMCalculators(tracker driven.TrackerAPI, cache driven.Cache, logger *slog.Logger) *JSMCalculators {
	if logger == nil {
		logger = slog.Default()
	}
	return &JSMCalculators{tracker: tracker, cache: cache, logger: logger}
}

// jsmComments fetches the issue's comments filtered to the visibility
// setting. Fetch failures yield an empty list.
func (j *JSMCalculators) jsmComments(ctx context.Context, issue *domain.Issue, visibility domain.Visibility) []domain.Comment {
	comments, err := j.tracker.GetComments(ctx, issue.ID)
	if err != nil {
		j.logger.Error("failed to fetch comments", "issue", issue.Key, "error", err)
		return nil
	}
	return domain.FilterCommentsByVisibility(comments, visibility)
}

func (j *JSMCalculators) projectIDFor(ctx context.Context, issue *domain.Issue) string {
	if issue.Fields.Project != nil && issue.Fields.Project.ID != "" {
		return issue.Fields.Project.ID
	}
	full, err := j.tracker.GetIssue(ctx, issue.ID)
	if err != nil {
		j.logger.Error("failed to resolve project for issue", "issue", issue.Key, "error", err)
		return ""
	}
	if full.Fields.Project == nil {
		return ""
	}
	return full.Fields.Project.ID
}

type cachedRoleID struct {
	ID string `json:"id"`
	TS int64  `json:"ts"`
}

type cachedAgentIDs struct {
	IDs []string `json:"ids"`
	TS  int64    `json:"ts"`
}

func (j *JSMCalculators) serviceDeskTeamRoleID(ctx context.Context) string {
	cacheKey := roleIDCachePrefix + domain.ServiceDeskTeamRoleName
	if raw, err := j.cache.Get(ctx, cacheKey); err == nil {
		var cached cachedRoleID
		if json.Unmarshal([]byte(raw), &cached) == nil &&
			time.Since(time.UnixMilli(cached.TS)) < agentRosterSoftTTL {
			return cached.ID
		}
	} else if !errors.Is(err, domain.ErrNotFound) {
		j.logger.Warn("role cache read failed", "error", err)
	}

	roles, err := j.tracker.GetRoles(ctx)
	if err != nil {
		j.logger.Error("failed to fetch roles", "error", err)
		return ""
	}
	for _, role := range roles {
		if role.Name != domain.ServiceDeskTeamRoleName {
			continue
		}
		if data, err := json.Marshal(cachedRoleID{ID: role.ID, TS: domain.NowMillis()}); err == nil {
			if err := j.cache.Set(ctx, cacheKey, string(data), agentRosterCacheTTL); err != nil {
				j.logger.Warn("role cache write failed", "error", err)
			}
		}
		return role.ID
	}
	j.logger.Error("service desk team role not found", "role", domain.ServiceDeskTeamRoleName)
	return ""
}

// projectAgentAccountIDs returns the account IDs holding the agent role in
// the project, cached per project.
func (j *JSMCalculators) projectAgentAccountIDs(ctx context.Context, projectID string) []string {
	if projectID == "" {
		return nil
	}
	cacheKey := fmt.Sprintf("%s%s::%s", agentIDsCachePrefix, projectID, domain.ServiceDeskTeamRoleName)
	if raw, err := j.cache.Get(ctx, cacheKey); err == nil {
		var cached cachedAgentIDs
		if json.Unmarshal([]byte(raw), &cached) == nil &&
			time.Since(time.UnixMilli(cached.TS)) < agentRosterSoftTTL {
			return cached.IDs
		}
	}

	roleID := j.serviceDeskTeamRoleID(ctx)
	if roleID == "" {
		return nil
	}
	ids, err := j.tracker.GetProjectRoleActorIDs(ctx, projectID, roleID)
	if err != nil {
		j.logger.Error("failed to fetch role actors", "project_id", projectID, "error", err)
		return nil
	}
	if data, err := json.Marshal(cachedAgentIDs{IDs: ids, TS: domain.NowMillis()}); err == nil {
		if err := j.cache.Set(ctx, cacheKey, string(data), agentRosterCacheTTL); err != nil {
			j.logger.Warn("agent roster cache write failed", "error", err)
		}
	}
	return ids
}

func isAgent(comment domain.Comment, agentIDs []string) bool {
	if comment.Author == nil {
		return false
	}
	for _, id := range agentIDs {
		if id == comment.Author.AccountID {
			return true
		}
	}
	return false
}

// PublicCommentCount counts the customer-visible comments.
func (j *JSMCalculators) PublicCommentCount(ctx context.Context, issue *domain.Issue, settings *domain.FlatAppSettings) (any, error) {
	return len(j.jsmComments(ctx, issue, domain.VisibilityPublic)), nil
}

// AgentReplyCount counts comments authored by project agents, under the
// configured visibility.
func (j *JSMCalculators) AgentReplyCount(ctx context.Context, issue *domain.Issue, settings *domain.FlatAppSettings) (any, error) {
	projectID := j.projectIDFor(ctx, issue)
	agentIDs := j.projectAgentAccountIDs(ctx, projectID)
	comments := j.jsmComments(ctx, issue, settings.VisibilityFor("agentReplyCount"))
	count := 0
	for _, comment := range comments {
		if isAgent(comment, agentIDs) {
			count++
		}
	}
	return count, nil
}

// CustomerReplyCount counts comments authored by users in the Customer role.
func (j *JSMCalculators) CustomerReplyCount(ctx context.Context, issue *domain.Issue, settings *domain.FlatAppSettings) (any, error) {
	comments := j.jsmComments(ctx, issue, domain.VisibilityAll)
	count := 0
	for _, comment := range comments {
		if comment.Author.IsCustomer() {
			count++
		}
	}
	return count, nil
}

// IsLastCommenterCustomer reports whether the newest comment came from a
// Customer-role user, as "True"/"False".
func (j *JSMCalculators) IsLastCommenterCustomer(ctx context.Context, issue *domain.Issue, settings *domain.FlatAppSettings) (any, error) {
	comments := j.jsmComments(ctx, issue, domain.VisibilityAll)
	if len(comments) == 0 {
		return "False", nil
	}
	if comments[len(comments)-1].Author.IsCustomer() {
		return "True", nil
	}
	return "False", nil
}

// IsLastCommentInternal reports whether the newest comment is internal,
// judged by the service desk public flag. Comments without the flag count
// as internal.
func (j *JSMCalculators) IsLastCommentInternal(ctx context.Context, issue *domain.Issue, settings *domain.FlatAppSettings) (any, error) {
	comments := j.jsmComments(ctx, issue, domain.VisibilityAll)
	if len(comments) == 0 {
		return "False", nil
	}
	last := comments[len(comments)-1]
	internal := true
	if last.JSDPublic != nil {
		internal = !*last.JSDPublic
	}
	if internal {
		return "True", nil
	}
	return "False", nil
}

// IsLastCommentAgentResponse reports whether the newest comment, under the
// configured visibility, came from a project agent.
func (j *JSMCalculators) IsLastCommentAgentResponse(ctx context.Context, issue *domain.Issue, settings *domain.FlatAppSettings) (any, error) {
	projectID := j.projectIDFor(ctx, issue)
	agentIDs := j.projectAgentAccountIDs(ctx, projectID)
	comments := j.jsmComments(ctx, issue, settings.VisibilityFor("lastCommentAgentResponse"))
	if len(comments) == 0 {
		return "False", nil
	}
	if isAgent(comments[len(comments)-1], agentIDs) {
		return "True", nil
	}
	return "False", nil
}

// LastAgentResponseDate returns the creation timestamp of the newest agent
// comment under the configured visibility, or nil when there is none.
func (j *JSMCalculators) LastAgentResponseDate(ctx context.Context, issue *domain.Issue, settings *domain.FlatAppSettings) (any, error) {
	projectID := j.projectIDFor(ctx, issue)
	agentIDs := j.projectAgentAccountIDs(ctx, projectID)
	comments := j.jsmComments(ctx, issue, settings.VisibilityFor("lastAgentResponseDate"))
	for i := len(comments) - 1; i >= 0; i-- {
		if isAgent(comments[i], agentIDs) {
			return comments[i].Created, nil
		}
	}
	return nil, nil
}

// LastCustomerCommentDate returns the creation timestamp of the newest
// Customer-role comment, or nil when there is none.
func (j *JSMCalculators) LastCustomerCommentDate(ctx context.Context, issue *domain.Issue, settings *domain.FlatAppSettings) (any, error) {
	comments := j.jsmComments(ctx, issue, domain.VisibilityAll)
	for i := len(comments) - 1; i >= 0; i-- {
		if comments[i].Author.IsCustomer() {
			return comments[i].Created, nil
		}
	}
	return nil, nil
}
