package task

import "strings"

// Type classifies a task the way the upstream progress API does.
type Type string

const (
	TypeAgreement Type = "agreement"
	TypeDecision  Type = "decision"
	TypeIssue     Type = "issue"
	TypeUnknown   Type = "unknown"
)

// ParseType lower-cases a raw type value and checks it against the known set.
// The second return reports whether the value was recognized.
func ParseType(raw string) (Type, bool) {
	switch Type(strings.ToLower(strings.TrimSpace(raw))) {
	case TypeAgreement:
		return TypeAgreement, true
	case TypeDecision:
		return TypeDecision, true
	case TypeIssue:
		return TypeIssue, true
	default:
		return TypeUnknown, false
	}
}

// NormalizedTask is the canonical in-memory record produced by the field
// mapper. Every display field carries either a real value or a placeholder
// marker naming the missing source field, so a card always renders the same
// way regardless of how sparse the source record was.
type NormalizedTask struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	Type          Type   `json:"type"`
	DueDateShort  string `json:"dueDateShort"` // display form "DD.MM."
	DueDateFull   string `json:"dueDateFull"`  // ISO date, empty when unparseable
	AssigneeEmail string `json:"assigneeEmail"`
	Completed     bool   `json:"completed"`
	MeetingOrigin string `json:"meetingOrigin"`
	MeetingDate   string `json:"meetingDate"` // display form "DD.MM.YYYY"
	AgendaItem    string `json:"agendaItem"`
	Relation      string `json:"relation"`
}

// Placeholder returns the literal marker substituted for a missing source
// field. The marker names the field on purpose: a rendered card immediately
// shows which upstream field was absent.
func Placeholder(fieldName string) string {
	return "[PLACEHOLDER: Missing " + fieldName + "]"
}

// IsPlaceholder reports whether a display value is a placeholder marker.
func IsPlaceholder(value string) bool {
	return strings.HasPrefix(value, "[PLACEHOLDER: Missing ")
}
