package domain

import (
	"regexp"
	"strings"
)

// FieldCategory groups calculated fields by the shape of their value.
type FieldCategory string

const (
	CategoryContent  FieldCategory = "content"
	CategoryCount    FieldCategory = "count"
	CategoryDate     FieldCategory = "date"
	CategoryIdentity FieldCategory = "identity"
	CategoryBoolean  FieldCategory = "boolean"
)

// CalculatorID names one of the bound calculation functions. The empty ID
// marks a field that is declared but not yet implemented; such fields are
// silently skipped, never errors.
type CalculatorID string

const (
	CalcLastComment                 CalculatorID = "last-comment"
	CalcFirstComment                CalculatorID = "first-comment"
	CalcCommentCount                CalculatorID = "comment-count"
	CalcInternalCommentCount        CalculatorID = "internal-comment-count"
	CalcPublicCommentCount          CalculatorID = "public-comment-count"
	CalcAgentReplyCount             CalculatorID = "agent-reply-count"
	CalcCustomerReplyCount          CalculatorID = "customer-reply-count"
	CalcLastCommentDate             CalculatorID = "last-comment-date"
	CalcFirstCommentDate            CalculatorID = "first-comment-date"
	CalcLastAssigneeCommentDate     CalculatorID = "last-assignee-comment-date"
	CalcLastAgentResponseDate       CalculatorID = "last-agent-response-date"
	CalcLastCustomerCommentDate     CalculatorID = "last-customer-comment-date"
	CalcLastCommenter               CalculatorID = "last-commenter"
	CalcFirstCommenter              CalculatorID = "first-commenter"
	CalcIsLastCommenterAssignee     CalculatorID = "is-last-commenter-assignee"
	CalcIsLastCommenterReporter     CalculatorID = "is-last-commenter-reporter"
	CalcIsLastCommenterCreator      CalculatorID = "is-last-commenter-creator"
	CalcIsLastCommenterCustomer     CalculatorID = "is-last-commenter-customer"
	CalcIsLastCommentInternal       CalculatorID = "is-last-comment-internal"
	CalcIsLastCommentAgentResponse  CalculatorID = "is-last-comment-agent-response"
)

// FieldInfo is one registry entry: the static metadata for a calculated field.
type FieldInfo struct {
	Key        string
	Name       string
	Type       string
	Category   FieldCategory
	IsJSM      bool
	Calculator CalculatorID
}

// FieldDescriptor is a custom field as returned by the tracker's field
// search: the live field ID plus whatever identifying metadata it carries.
type FieldDescriptor struct {
	ID     string       `json:"id"`
	Key    string       `json:"key,omitempty"`
	Name   string       `json:"name,omitempty"`
	Schema *FieldSchema `json:"schema,omitempty"`
}

// FieldSchema is the schema block of a field search result.
type FieldSchema struct {
	Type   string `json:"type,omitempty"`
	Custom string `json:"custom,omitempty"`
}

// fieldRegistry is the static catalog of Flowzira calculated fields, keyed
// by the stable field key.
var fieldRegistry = []FieldInfo{
	// Comment content fields
	{Key: "flowzira-last-comment-custom-field", Name: "Flowzira Last Comment", Type: "string", Category: CategoryContent, Calculator: CalcLastComment},
	{Key: "flowzira-first-comment-custom-field", Name: "Flowzira First Comment", Type: "string", Category: CategoryContent, Calculator: CalcFirstComment},

	// Comment count fields
	{Key: "flowzira-comment-count-custom-field", Name: "Flowzira Comment Count", Type: "number", Category: CategoryCount, Calculator: CalcCommentCount},
	{Key: "flowzira-internal-comment-count-custom-field", Name: "Flowzira Internal Comment Count", Type: "number", Category: CategoryCount, Calculator: CalcInternalCommentCount},
	{Key: "flowzira-public-comment-count", Name: "Flowzira Public Comment Count", Type: "number", Category: CategoryCount, IsJSM: true, Calculator: CalcPublicCommentCount},
	{Key: "flowzira-agent-reply-count", Name: "Flowzira Agent Reply Count", Type: "number", Category: CategoryCount, IsJSM: true, Calculator: CalcAgentReplyCount},
	{Key: "flowzira-customer-reply-count", Name: "Flowzira Customer Reply Count", Type: "number", Category: CategoryCount, IsJSM: true, Calculator: CalcCustomerReplyCount},

	// Date fields
	{Key: "flowzira-last-comment-date-custom-field", Name: "Flowzira Last Comment Date", Type: "datetime", Category: CategoryDate, Calculator: CalcLastCommentDate},
	{Key: "flowzira-first-comment-date-custom-field", Name: "Flowzira First Comment Date", Type: "datetime", Category: CategoryDate, Calculator: CalcFirstCommentDate},
	{Key: "flowzira-last-assignee-comment-date-custom-field", Name: "Flowzira Last Assignee Comment Date", Type: "datetime", Category: CategoryDate, Calculator: CalcLastAssigneeCommentDate},
	{Key: "flowzira-last-agent-response-date", Name: "Flowzira Last Agent Response Date", Type: "date", Category: CategoryDate, IsJSM: true, Calculator: CalcLastAgentResponseDate},
	{Key: "flowzira-last-customer-comment-date", Name: "Flowzira Last Customer Comment Date", Type: "date", Category: CategoryDate, IsJSM: true, Calculator: CalcLastCustomerCommentDate},

	// Commenter identity fields
	{Key: "flowzira-last-commenter-name-custom-field", Name: "Flowzira Last Commenter", Type: "string", Category: CategoryIdentity, Calculator: CalcLastCommenter},
	{Key: "flowzira-first-commenter-name-custom-field", Name: "Flowzira First Commenter", Type: "string", Category: CategoryIdentity, Calculator: CalcFirstCommenter},

	// Boolean-like fields (represented as strings)
	{Key: "flowzira-last-commenter-is-assignee-custom-field", Name: "Flowzira Last Commenter is Assignee", Type: "string", Category: CategoryBoolean, Calculator: CalcIsLastCommenterAssignee},
	{Key: "flowzira-last-commenter-is-reporter", Name: "Flowzira Last Commenter is Reporter", Type: "string", Category: CategoryBoolean, Calculator: CalcIsLastCommenterReporter},
	{Key: "flowzira-last-commenter-is-creator-custom-field", Name: "Flowzira Last Commenter is Creator", Type: "string", Category: CategoryBoolean, Calculator: CalcIsLastCommenterCreator},
	{Key: "flowzira-first-commenter-is-assignee-custom-field", Name: "Flowzira First Commenter is Assignee", Type: "string", Category: CategoryBoolean},
	{Key: "flowzira-first-commenter-is-reporter-custom-field", Name: "Flowzira First Commenter is Reporter", Type: "string", Category: CategoryBoolean},
	{Key: "flowzira-first-commenter-is-creator-custom-field", Name: "Flowzira First Commenter is Creator", Type: "string", Category: CategoryBoolean},
	{Key: "flowzira-last-commenter-is-customer", Name: "Flowzira Last Commenter is Customer", Type: "string", Category: CategoryBoolean, IsJSM: true, Calculator: CalcIsLastCommenterCustomer},
	{Key: "flowzira-last-comment-is-internal", Name: "Flowzira Last Comment is Internal", Type: "string", Category: CategoryBoolean, IsJSM: true, Calculator: CalcIsLastCommentInternal},
	{Key: "flowzira-last-comment-is-agent-response", Name: "Flowzira Last Comment is Agent Response", Type: "string", Category: CategoryBoolean, IsJSM: true, Calculator: CalcIsLastCommentAgentResponse},
}

// FieldCatalog returns the full static registry.
func FieldCatalog() []FieldInfo {
	out := make([]FieldInfo, len(fieldRegistry))
	copy(out, fieldRegistry)
	return out
}

// FieldsByCategory returns the registry entries of one category.
func FieldsByCategory(category FieldCategory) []FieldInfo {
	var out []FieldInfo
	for _, f := range fieldRegistry {
		if f.Category == category {
			out = append(out, f)
		}
	}
	return out
}

// FieldInfoByKey looks up a registry entry by its stable key.
func FieldInfoByKey(key string) (FieldInfo, bool) {
	for _, f := range fieldRegistry {
		if f.Key == key {
			return f, true
		}
	}
	return FieldInfo{}, false
}

var schemaKeyPattern = regexp.MustCompile(`static/(flowzira-[\w-]+)`)

// ResolveFieldInfo maps a live field descriptor onto its registry entry.
// The matching key comes from the descriptor's key, then from the schema's
// custom identifier suffix, then from the display name; the registry is
// matched by key suffix or exact name. A miss is not an error: unknown
// fields are simply not ours to calculate.
func ResolveFieldInfo(field FieldDescriptor) (FieldInfo, bool) {
	matchKey := field.Key
	if matchKey == "" && field.Schema != nil {
		if m := schemaKeyPattern.FindStringSubmatch(field.Schema.Custom); m != nil {
			matchKey = m[1]
		}
	}
	if matchKey == "" {
		matchKey = field.Name
	}
	if matchKey == "" {
		return FieldInfo{}, false
	}
	for _, info := range fieldRegistry {
		if strings.HasSuffix(matchKey, info.Key) || field.Name == info.Name {
			return info, true
		}
	}
	return FieldInfo{}, false
}
