package jira

import (
	"encoding/json"
	"strings"

	"github.com/flowzira/flowzira-sync/internal/core/domain"
)

type wireUser struct {
	AccountID   string `json:"accountId"`
	DisplayName string `json:"displayName"`
	Roles       *struct {
		Items []struct {
			Name string `json:"name"`
		} `json:"items"`
	} `json:"roles,omitempty"`
}

func (u *wireUser) toDomain() *domain.User {
	if u == nil {
		return nil
	}
	user := &domain.User{
		AccountID:   u.AccountID,
		DisplayName: u.DisplayName,
	}
	if u.Roles != nil {
		for _, role := range u.Roles.Items {
			user.RoleNames = append(user.RoleNames, role.Name)
		}
	}
	return user
}

// adfNode is the fragment of the Atlassian document format we care about:
// enough structure to pull plain text out of comment bodies.
type adfNode struct {
	Type    string    `json:"type,omitempty"`
	Text    string    `json:"text,omitempty"`
	Content []adfNode `json:"content,omitempty"`
}

func (n adfNode) plainText() string {
	if n.Text != "" {
		return n.Text
	}
	var parts []string
	for _, child := range n.Content {
		if text := child.plainText(); text != "" {
			parts = append(parts, text)
		}
	}
	return strings.Join(parts, "\n")
}

type wireComment struct {
	ID         string    `json:"id"`
	Author     *wireUser `json:"author"`
	Body       adfNode   `json:"body"`
	Created    string    `json:"created"`
	Internal   bool      `json:"internal"`
	JSDPublic  *bool     `json:"jsdPublic,omitempty"`
	Visibility *struct {
		Type  string `json:"type"`
		Value string `json:"value"`
	} `json:"visibility,omitempty"`
}

func (c wireComment) toDomain() domain.Comment {
	comment := domain.Comment{
		ID:        c.ID,
		Author:    c.Author.toDomain(),
		Body:      c.Body.plainText(),
		Created:   c.Created,
		Internal:  c.Internal,
		JSDPublic: c.JSDPublic,
	}
	if c.Visibility != nil {
		comment.Visibility = &domain.CommentVisibility{Type: c.Visibility.Type, Value: c.Visibility.Value}
	}
	return comment
}

type commentPage struct {
	Comments []wireComment `json:"comments"`
}

type wireProject struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}

// wireIssueFields keeps the typed people fields and the raw entries for
// every custom field the projection returned.
type wireIssueFields struct {
	Assignee *wireUser
	Reporter *wireUser
	Creator  *wireUser
	Project  *wireProject
	Custom   map[string]any
}

func (f *wireIssueFields) UnmarshalJSON(data []byte) error {
	var known struct {
		Assignee *wireUser    `json:"assignee"`
		Reporter *wireUser    `json:"reporter"`
		Creator  *wireUser    `json:"creator"`
		Project  *wireProject `json:"project"`
	}
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	f.Assignee = known.Assignee
	f.Reporter = known.Reporter
	f.Creator = known.Creator
	f.Project = known.Project
	f.Custom = make(map[string]any)
	for key, value := range raw {
		if !strings.HasPrefix(key, "customfield_") {
			continue
		}
		var decoded any
		if err := json.Unmarshal(value, &decoded); err != nil {
			continue
		}
		f.Custom[key] = decoded
	}
	return nil
}

type wireIssue struct {
	ID     string          `json:"id"`
	Key    string          `json:"key"`
	Fields wireIssueFields `json:"fields"`
}

func (i wireIssue) toDomain() domain.Issue {
	issue := domain.Issue{
		ID:  i.ID,
		Key: i.Key,
		Fields: domain.IssueFields{
			Assignee: i.Fields.Assignee.toDomain(),
			Reporter: i.Fields.Reporter.toDomain(),
			Creator:  i.Fields.Creator.toDomain(),
			Custom:   i.Fields.Custom,
		},
	}
	if i.Fields.Project != nil {
		issue.Fields.Project = &domain.ProjectRef{ID: i.Fields.Project.ID, Key: i.Fields.Project.Key}
	}
	return issue
}

type searchResponse struct {
	Issues  []wireIssue `json:"issues"`
	StartAt int         `json:"startAt"`
	Total   int         `json:"total"`
}

type countResponse struct {
	Count int `json:"count"`
}

type changelogPage struct {
	Values []struct {
		Created string `json:"created"`
		Items   []struct {
			Field      string `json:"field"`
			From       string `json:"from"`
			FromString string `json:"fromString"`
			To         string `json:"to"`
			ToString   string `json:"toString"`
		} `json:"items"`
	} `json:"values"`
}

type roleActorsResponse struct {
	Actors []struct {
		Type      string `json:"type"`
		ActorUser *struct {
			AccountID string `json:"accountId"`
		} `json:"actorUser"`
	} `json:"actors"`
}

type fieldSearchResponse struct {
	Values []domain.FieldDescriptor `json:"values"`
}
