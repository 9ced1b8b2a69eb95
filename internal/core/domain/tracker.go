package domain

// User is a tracker account as seen on issues and comments.
type User struct {
	AccountID   string   `json:"accountId,omitempty"`
	DisplayName string   `json:"displayName,omitempty"`
	RoleNames   []string `json:"roleNames,omitempty"`
}

// IsCustomer reports whether the user carries the service desk Customer role.
func (u *User) IsCustomer() bool {
	if u == nil {
		return false
	}
	for _, name := range u.RoleNames {
		if name == "Customer" {
			return true
		}
	}
	return false
}

// CommentVisibility is the role/group restriction on a comment, if any.
type CommentVisibility struct {
	Type  string `json:"type,omitempty"`
	Value string `json:"value,omitempty"`
}

// Comment is one issue comment. Created carries the tracker's timestamp
// verbatim; calculated date fields pass it through unchanged.
type Comment struct {
	ID         string             `json:"id"`
	Author     *User              `json:"author,omitempty"`
	Body       string             `json:"body,omitempty"`
	Created    string             `json:"created,omitempty"`
	Internal   bool               `json:"internal,omitempty"`
	JSDPublic  *bool              `json:"jsdPublic,omitempty"`
	Visibility *CommentVisibility `json:"visibility,omitempty"`
}

// IsCustomerVisible reports whether a service desk customer can see the
// comment. A comment is customer-visible only when restricted to the
// customers role.
func (c Comment) IsCustomerVisible() bool {
	return c.Visibility != nil && c.Visibility.Type == "role" && c.Visibility.Value == "customers"
}

// FilterCommentsByVisibility keeps the comments matching the visibility
// setting. VisibilityAll passes everything through untouched.
func FilterCommentsByVisibility(comments []Comment, visibility Visibility) []Comment {
	switch visibility {
	case VisibilityPublic:
		out := make([]Comment, 0, len(comments))
		for _, c := range comments {
			if c.IsCustomerVisible() {
				out = append(out, c)
			}
		}
		return out
	case VisibilityInternal:
		out := make([]Comment, 0, len(comments))
		for _, c := range comments {
			if !c.IsCustomerVisible() {
				out = append(out, c)
			}
		}
		return out
	default:
		return comments
	}
}

// ProjectRef identifies the project an issue belongs to.
type ProjectRef struct {
	ID  string `json:"id,omitempty"`
	Key string `json:"key,omitempty"`
}

// IssueFields is the subset of issue fields the calculators read, plus the
// raw presence map for the requested custom fields.
type IssueFields struct {
	Assignee *User       `json:"assignee,omitempty"`
	Reporter *User       `json:"reporter,omitempty"`
	Creator  *User       `json:"creator,omitempty"`
	Project  *ProjectRef `json:"project,omitempty"`

	// Custom maps field ID to the returned value for every custom field the
	// search projection asked for and the issue's screens carry. A nil value
	// with a present key still means the field exists on the issue.
	Custom map[string]any `json:"-"`
}

// Issue is one tracker issue.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Fields IssueFields `json:"fields"`
}

// HasField reports whether the custom field is present on the issue.
func (i *Issue) HasField(fieldID string) bool {
	_, ok := i.Fields.Custom[fieldID]
	return ok
}

// SearchResult is one page of an issue search.
type SearchResult struct {
	Issues  []Issue `json:"issues"`
	StartAt int     `json:"startAt"`
	Total   int     `json:"total"`
}

// ChangeItem is one field transition inside a changelog entry.
type ChangeItem struct {
	Field      string `json:"field"`
	From       string `json:"from,omitempty"`
	FromString string `json:"fromString,omitempty"`
	To         string `json:"to,omitempty"`
	ToString   string `json:"toString,omitempty"`
}

// ChangeHistory is one changelog entry on an issue.
type ChangeHistory struct {
	Created string       `json:"created,omitempty"`
	Items   []ChangeItem `json:"items"`
}

// Role is a project role definition.
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ServiceDeskTeamRoleName is the project role whose actors count as agents.
const ServiceDeskTeamRoleName = "Service Desk Team"
