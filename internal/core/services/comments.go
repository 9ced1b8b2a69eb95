package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driven"
)

// CommentCalculators computes the plain comment-derived field values.
// These work on any issue type. Issues without comments yield nil for
// text, date and identity fields and zero for counts; errors from the
// tracker propagate to the caller.
type CommentCalculators struct {
	tracker driven.TrackerAPI
	logger  *slog.Logger
}

// NewCommentCalculators creates a new CommentCalculators.
func NewCommentCalculators(tracker driven.TrackerAPI, logger *slog.Logger) *CommentCalculators {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommentCalculators{tracker: tracker, logger: logger}
}

func (c *CommentCalculators) comments(ctx context.Context, issue *domain.Issue) ([]domain.Comment, error) {
	comments, err := c.tracker.GetComments(ctx, issue.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch comments for issue %s: %w", issue.Key, err)
	}
	return comments, nil
}

// LastComment returns "author: body" for the newest comment.
func (c *CommentCalculators) LastComment(ctx context.Context, issue *domain.Issue) (any, error) {
	comments, err := c.comments(ctx, issue)
	if err != nil || len(comments) == 0 {
		return nil, err
	}
	last := comments[len(comments)-1]
	name := ""
	if last.Author != nil {
		name = last.Author.DisplayName
	}
	return fmt.Sprintf("%s: %s", name, last.Body), nil
}

// FirstComment returns the body of the oldest comment.
func (c *CommentCalculators) FirstComment(ctx context.Context, issue *domain.Issue) (any, error) {
	comments, err := c.comments(ctx, issue)
	if err != nil || len(comments) == 0 {
		return nil, err
	}
	return comments[0].Body, nil
}

// LastCommenter returns the display name of the newest comment's author.
func (c *CommentCalculators) LastCommenter(ctx context.Context, issue *domain.Issue) (any, error) {
	comments, err := c.comments(ctx, issue)
	if err != nil || len(comments) == 0 {
		return nil, err
	}
	if author := comments[len(comments)-1].Author; author != nil {
		return author.DisplayName, nil
	}
	return nil, nil
}

// FirstCommenter returns the display name of the oldest comment's author.
func (c *CommentCalculators) FirstCommenter(ctx context.Context, issue *domain.Issue) (any, error) {
	comments, err := c.comments(ctx, issue)
	if err != nil || len(comments) == 0 {
		return nil, err
	}
	if author := comments[0].Author; author != nil {
		return author.DisplayName, nil
	}
	return nil, nil
}

// CommentCount returns the total number of comments.
func (c *CommentCalculators) CommentCount(ctx context.Context, issue *domain.Issue) (any, error) {
	comments, err := c.comments(ctx, issue)
	if err != nil {
		return nil, err
	}
	return len(comments), nil
}

// InternalCommentCount returns the number of comments flagged internal.
func (c *CommentCalculators) InternalCommentCount(ctx context.Context, issue *domain.Issue) (any, error) {
	comments, err := c.comments(ctx, issue)
	if err != nil {
		return nil, err
	}
	count := 0
	for _, comment := range comments {
		if comment.Internal {
			count++
		}
	}
	return count, nil
}

// LastCommentDate returns the creation timestamp of the newest comment.
func (c *CommentCalculators) LastCommentDate(ctx context.Context, issue *domain.Issue) (any, error) {
	comments, err := c.comments(ctx, issue)
	if err != nil || len(comments) == 0 {
		return nil, err
	}
	return comments[len(comments)-1].Created, nil
}

// FirstCommentDate returns the creation timestamp of the oldest comment.
func (c *CommentCalculators) FirstCommentDate(ctx context.Context, issue *domain.Issue) (any, error) {
	comments, err := c.comments(ctx, issue)
	if err != nil || len(comments) == 0 {
		return nil, err
	}
	return comments[0].Created, nil
}

// LastAssigneeCommentDate returns the creation timestamp of the newest
// comment left by the issue's previous assignee, found in the changelog.
func (c *CommentCalculators) LastAssigneeCommentDate(ctx context.Context, issue *domain.Issue) (any, error) {
	comments, err := c.comments(ctx, issue)
	if err != nil || len(comments) == 0 {
		return nil, err
	}
	previous, err := c.previousAssignee(ctx, issue)
	if err != nil {
		return nil, err
	}
	if previous == nil {
		return nil, nil
	}
	for i := len(comments) - 1; i >= 0; i-- {
		author := comments[i].Author
		if author != nil && author.DisplayName == previous.DisplayName {
			return comments[i].Created, nil
		}
	}
	return nil, nil
}

func (c *CommentCalculators) previousAssignee(ctx context.Context, issue *domain.Issue) (*domain.User, error) {
	histories, err := c.tracker.GetChangelog(ctx, issue.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch changelog for issue %s: %w", issue.Key, err)
	}
	for _, history := range histories {
		for _, item := range history.Items {
			if item.Field != "assignee" || item.FromString == "" {
				continue
			}
			user, err := c.tracker.GetUser(ctx, item.From)
			if err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return nil, nil
				}
				return nil, fmt.Errorf("failed to fetch user %s: %w", item.From, err)
			}
			return user, nil
		}
	}
	return nil, nil
}

// IsLastCommenterAssignee reports whether the newest comment came from the
// current assignee, as "True"/"False". Unassigned issues yield nil.
func (c *CommentCalculators) IsLastCommenterAssignee(ctx context.Context, issue *domain.Issue) (any, error) {
	return c.lastCommenterMatches(ctx, issue, func(fields domain.IssueFields) *domain.User {
		return fields.Assignee
	})
}

// IsLastCommenterReporter reports whether the newest comment came from the
// reporter, as "True"/"False". A missing reporter yields nil.
func (c *CommentCalculators) IsLastCommenterReporter(ctx context.Context, issue *domain.Issue) (any, error) {
	return c.lastCommenterMatches(ctx, issue, func(fields domain.IssueFields) *domain.User {
		return fields.Reporter
	})
}

// IsLastCommenterCreator reports whether the newest comment came from the
// creator, as "True"/"False". A missing creator yields nil.
func (c *CommentCalculators) IsLastCommenterCreator(ctx context.Context, issue *domain.Issue) (any, error) {
	return c.lastCommenterMatches(ctx, issue, func(fields domain.IssueFields) *domain.User {
		return fields.Creator
	})
}

func (c *CommentCalculators) lastCommenterMatches(ctx context.Context, issue *domain.Issue, pick func(domain.IssueFields) *domain.User) (any, error) {
	comments, err := c.comments(ctx, issue)
	if err != nil || len(comments) == 0 {
		return nil, err
	}
	full, err := c.tracker.GetIssue(ctx, issue.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch issue %s: %w", issue.Key, err)
	}
	person := pick(full.Fields)
	if person == nil {
		return nil, nil
	}
	author := comments[len(comments)-1].Author
	if author != nil && author.DisplayName == person.DisplayName {
		return "True", nil
	}
	return "False", nil
}
