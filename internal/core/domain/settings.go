package domain

// Visibility filters which comments a JSM calculator considers.
type Visibility string

const (
	VisibilityAll      Visibility = "all"
	VisibilityPublic   Visibility = "public"
	VisibilityInternal Visibility = "internal"
)

// ParseVisibility maps a raw value onto a known visibility, defaulting to all.
func ParseVisibility(raw string) Visibility {
	switch Visibility(raw) {
	case VisibilityPublic:
		return VisibilityPublic
	case VisibilityInternal:
		return VisibilityInternal
	default:
		return VisibilityAll
	}
}

// VisibilityOption is the select-style shape settings are stored and
// edited in.
type VisibilityOption struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// AppSettings holds the per-project (or global) calculated-field settings.
type AppSettings struct {
	AgentReplyCountVisibility          *VisibilityOption `json:"agentReplyCountVisibility,omitempty"`
	LastCommentAgentResponseVisibility *VisibilityOption `json:"lastCommentAgentResponseVisibility,omitempty"`
	LastAgentResponseDateVisibility    *VisibilityOption `json:"lastAgentResponseDateVisibility,omitempty"`
}

// DefaultAppSettings returns the all-comments defaults.
func DefaultAppSettings() *AppSettings {
	all := VisibilityOption{Label: "All comments", Value: string(VisibilityAll)}
	return &AppSettings{
		AgentReplyCountVisibility:          &all,
		LastCommentAgentResponseVisibility: &all,
		LastAgentResponseDateVisibility:    &all,
	}
}

// Validate checks that every visibility option is present.
func (s *AppSettings) Validate() error {
	if s == nil ||
		s.AgentReplyCountVisibility == nil ||
		s.LastCommentAgentResponseVisibility == nil ||
		s.LastAgentResponseDateVisibility == nil {
		return ErrInvalidInput
	}
	return nil
}

// Merge overlays the non-nil options of other onto a copy of s.
func (s *AppSettings) Merge(other *AppSettings) *AppSettings {
	merged := *s
	if other == nil {
		return &merged
	}
	if other.AgentReplyCountVisibility != nil {
		merged.AgentReplyCountVisibility = other.AgentReplyCountVisibility
	}
	if other.LastCommentAgentResponseVisibility != nil {
		merged.LastCommentAgentResponseVisibility = other.LastCommentAgentResponseVisibility
	}
	if other.LastAgentResponseDateVisibility != nil {
		merged.LastAgentResponseDateVisibility = other.LastAgentResponseDateVisibility
	}
	return &merged
}

// FlatAppSettings is the bare-value form carried in job payloads.
type FlatAppSettings struct {
	AgentReplyCountVisibility          string `json:"agentReplyCountVisibility,omitempty"`
	LastCommentAgentResponseVisibility string `json:"lastCommentAgentResponseVisibility,omitempty"`
	LastAgentResponseDateVisibility    string `json:"lastAgentResponseDateVisibility,omitempty"`
}

// Flatten strips the option wrappers down to bare visibility values.
func (s *AppSettings) Flatten() *FlatAppSettings {
	flat := &FlatAppSettings{}
	if s == nil {
		return flat
	}
	if s.AgentReplyCountVisibility != nil {
		flat.AgentReplyCountVisibility = s.AgentReplyCountVisibility.Value
	}
	if s.LastCommentAgentResponseVisibility != nil {
		flat.LastCommentAgentResponseVisibility = s.LastCommentAgentResponseVisibility.Value
	}
	if s.LastAgentResponseDateVisibility != nil {
		flat.LastAgentResponseDateVisibility = s.LastAgentResponseDateVisibility.Value
	}
	return flat
}

// VisibilityFor returns the effective visibility for one of the three
// overridable fields, defaulting to all when unset.
func (f *FlatAppSettings) VisibilityFor(field string) Visibility {
	if f == nil {
		return VisibilityAll
	}
	switch field {
	case "agentReplyCount":
		return ParseVisibility(f.AgentReplyCountVisibility)
	case "lastCommentAgentResponse":
		return ParseVisibility(f.LastCommentAgentResponseVisibility)
	case "lastAgentResponseDate":
		return ParseVisibility(f.LastAgentResponseDateVisibility)
	default:
		return VisibilityAll
	}
}
