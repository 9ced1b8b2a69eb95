// Package jira implements the TrackerAPI port against the Jira REST v3 API.
package jira

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
	"github.com/flowzira/flowzira-sync/internal/core/ports/driven"
)

// Client talks to a Jira Cloud site with basic auth.
type Client struct {
	baseURL    string
	email      string
	token      string
	httpClient *http.Client
}

var _ driven.TrackerAPI = (*Client)(nil)

// NewClient creates a new Client for the given site.
func NewClient(baseURL, email, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		email:   email,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}) ([]byte, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	auth := base64.StdEncoding.EncodeToString([]byte(c.email + ":" + c.token))
	req.Header.Set("Authorization", "Basic "+auth)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("API error %d: %s: %w", resp.StatusCode, string(respBody), domain.ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	return respBody, nil
}

func (c *Client) SearchIssues(ctx context.Context, jql string, startAt, maxResults int, fields []string) (*domain.SearchResult, error) {
	params := url.Values{
		"jql":        {jql},
		"startAt":    {strconv.Itoa(startAt)},
		"maxResults": {strconv.Itoa(maxResults)},
		"fields":     {strings.Join(fields, ",")},
	}
	data, err := c.do(ctx, "GET", "/rest/api/3/search/jql?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var resp searchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse search: %w", err)
	}
	result := &domain.SearchResult{StartAt: resp.StartAt, Total: resp.Total}
	for _, issue := range resp.Issues {
		result.Issues = append(result.Issues, issue.toDomain())
	}
	return result, nil
}

func (c *Client) CountIssues(ctx context.Context, jql string) (int, error) {
	data, err := c.do(ctx, "POST", "/rest/api/3/search/approximate-count", map[string]string{"jql": jql})
	if err != nil {
		return 0, err
	}
	var resp countResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return resp.Count, nil
}

func (c *Client) GetIssue(ctx context.Context, issueIDOrKey string) (*domain.Issue, error) {
	data, err := c.do(ctx, "GET", "/rest/api/3/issue/"+url.PathEscape(issueIDOrKey), nil)
	if err != nil {
		return nil, err
	}
	var issue wireIssue
	if err := json.Unmarshal(data, &issue); err != nil {
		return nil, fmt.Errorf("parse issue: %w", err)
	}
	result := issue.toDomain()
	return &result, nil
}

func (c *Client) GetComments(ctx context.Context, issueIDOrKey string) ([]domain.Comment, error) {
	data, err := c.do(ctx, "GET", "/rest/api/3/issue/"+url.PathEscape(issueIDOrKey)+"/comment", nil)
	if err != nil {
		return nil, err
	}
	var page commentPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("parse comments: %w", err)
	}
	comments := make([]domain.Comment, 0, len(page.Comments))
	for _, comment := range page.Comments {
		comments = append(comments, comment.toDomain())
	}
	return comments, nil
}

func (c *Client) GetChangelog(ctx context.Context, issueIDOrKey string) ([]domain.ChangeHistory, error) {
	data, err := c.do(ctx, "GET", "/rest/api/3/issue/"+url.PathEscape(issueIDOrKey)+"/changelog", nil)
	if err != nil {
		return nil, err
	}
	var page changelogPage
	if err := json.Unmarshal(data, &page); err != nil {
		return nil, fmt.Errorf("parse changelog: %w", err)
	}
	histories := make([]domain.ChangeHistory, 0, len(page.Values))
	for _, value := range page.Values {
		history := domain.ChangeHistory{Created: value.Created}
		for _, item := range value.Items {
			history.Items = append(history.Items, domain.ChangeItem{
				Field:      item.Field,
				From:       item.From,
				FromString: item.FromString,
				To:         item.To,
				ToString:   item.ToString,
			})
		}
		histories = append(histories, history)
	}
	return histories, nil
}

func (c *Client) GetUser(ctx context.Context, accountID string) (*domain.User, error) {
	params := url.Values{"accountId": {accountID}}
	data, err := c.do(ctx, "GET", "/rest/api/3/user?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var user wireUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("parse user: %w", err)
	}
	return user.toDomain(), nil
}

func (c *Client) GetProject(ctx context.Context, projectIDOrKey string) (*domain.ProjectRef, error) {
	data, err := c.do(ctx, "GET", "/rest/api/3/project/"+url.PathEscape(projectIDOrKey), nil)
	if err != nil {
		return nil, err
	}
	var project wireProject
	if err := json.Unmarshal(data, &project); err != nil {
		return nil, fmt.Errorf("parse project: %w", err)
	}
	return &domain.ProjectRef{ID: project.ID, Key: project.Key}, nil
}

func (c *Client) GetRoles(ctx context.Context) ([]domain.Role, error) {
	data, err := c.do(ctx, "GET", "/rest/api/3/role", nil)
	if err != nil {
		return nil, err
	}
	var wire []struct {
		ID   json.Number `json:"id"`
		Name string      `json:"name"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("parse roles: %w", err)
	}
	roles := make([]domain.Role, 0, len(wire))
	for _, role := range wire {
		roles = append(roles, domain.Role{ID: role.ID.String(), Name: role.Name})
	}
	return roles, nil
}

func (c *Client) GetProjectRoleActorIDs(ctx context.Context, projectID, roleID string) ([]string, error) {
	path := "/rest/api/3/project/" + url.PathEscape(projectID) + "/role/" + url.PathEscape(roleID)
	data, err := c.do(ctx, "GET", path, nil)
	if err != nil {
		return nil, err
	}
	var resp roleActorsResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse role actors: %w", err)
	}
	var ids []string
	for _, actor := range resp.Actors {
		if actor.Type == "atlassian-user-role-actor" && actor.ActorUser != nil && actor.ActorUser.AccountID != "" {
			ids = append(ids, actor.ActorUser.AccountID)
		}
	}
	return ids, nil
}

func (c *Client) SearchFields(ctx context.Context, query string) ([]domain.FieldDescriptor, error) {
	params := url.Values{"type": {"custom"}, "query": {query}}
	data, err := c.do(ctx, "GET", "/rest/api/3/field/search?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	var resp fieldSearchResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("parse field search: %w", err)
	}
	return resp.Values, nil
}

func (c *Client) UpdateIssueFields(ctx context.Context, issueKey string, fields map[string]any) error {
	path := "/rest/api/3/issue/" + url.PathEscape(issueKey) +
		"?overrideEditableFlag=true&overrideScreenSecurity=true&notifyUsers=false"
	_, err := c.do(ctx, "PUT", path, map[string]any{"fields": fields})
	return err
}
