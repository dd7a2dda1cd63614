package task

import (
	"fmt"
	"time"
)

// TitledRef is a nested reference carrying a display title
// (touchPointOrigin, agendaItem in the progress API).
type TitledRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// NamedRef is a nested reference carrying a display name (itemRelation).
type NamedRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProgressItem is the wire shape of one progress item from the three-step
// source variant. Field names follow the upstream API exactly.
type ProgressItem struct {
	ID               string     `json:"id"`
	ItemID           string     `json:"itemId"`
	Description      string     `json:"description"`
	ProgressItemType string     `json:"progressItemType"`
	Assignee         string     `json:"assignee"`
	DueDate          string     `json:"dueDate"`
	MeetingDate      string     `json:"meetingDate"`
	TouchPointOrigin *TitledRef `json:"touchPointOrigin"`
	AgendaItem       *TitledRef `json:"agendaItem"`
	ItemRelation     *NamedRef  `json:"itemRelation"`
	Resolved         bool       `json:"resolved"`
}

// SimpleItem is the wire shape of one task from the flat list-endpoint
// source variant.
type SimpleItem struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Type        string `json:"type"`
	DueDate     string `json:"dueDate"`
	AssignedTo  string `json:"assignedTo"`
	Completed   bool   `json:"completed"`
	Description string `json:"description"`
}

// Profile is one entry of the organization profile directory.
type Profile struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	UserName     string `json:"userName"`
	ProfileImage string `json:"profileImage"`
}

// ProfileMap indexes profiles by their upstream id. It is resolved once per
// run and reused for every item.
type ProfileMap map[string]Profile

// EmailFor resolves an assignee id to an email. Unknown or empty ids yield
// the placeholder email rather than an error.
func (m ProfileMap) EmailFor(assigneeID string) string {
	if p, ok := m[assigneeID]; ok && p.Email != "" {
		return p.Email
	}
	return Placeholder("email")
}

// Normalize maps a progress item into the canonical record. Missing source
// fields become placeholder markers, never empty strings, so the card layer
// can render unconditionally.
func Normalize(item ProgressItem, profiles ProfileMap) NormalizedTask {
	t := NormalizedTask{
		ID:            item.ID,
		AssigneeEmail: profiles.EmailFor(item.Assignee),
		Completed:     item.Resolved,
	}
	if t.ID == "" {
		t.ID = item.ItemID
	}

	t.Title = orPlaceholder(item.Description, "description")
	t.Type = normalizeType(item.ProgressItemType, &t.Title)
	t.DueDateShort, t.DueDateFull = normalizeDueDate(item.DueDate)
	t.MeetingDate = normalizeDisplayDate(item.MeetingDate, "meetingDate")

	if item.TouchPointOrigin != nil && item.TouchPointOrigin.Title != "" {
		t.MeetingOrigin = item.TouchPointOrigin.Title
	} else {
		t.MeetingOrigin = Placeholder("meetingOrigin")
	}
	if item.AgendaItem != nil && item.AgendaItem.Title != "" {
		t.AgendaItem = item.AgendaItem.Title
	} else {
		t.AgendaItem = Placeholder("agendaItem")
	}
	if item.ItemRelation != nil && item.ItemRelation.Name != "" {
		t.Relation = item.ItemRelation.Name
	} else {
		t.Relation = Placeholder("relation")
	}
	return t
}

// NormalizeSimple maps a task from the flat list variant. The simple API has
// no meeting context, so those fields are placeholders by construction.
func NormalizeSimple(item SimpleItem) NormalizedTask {
	t := NormalizedTask{
		ID:            item.ID,
		AssigneeEmail: orPlaceholder(item.AssignedTo, "assignedTo"),
		Completed:     item.Completed,
	}
	t.Title = orPlaceholder(item.Title, "title")
	t.Type = normalizeType(item.Type, &t.Title)
	t.DueDateShort, t.DueDateFull = normalizeDueDate(item.DueDate)
	t.MeetingOrigin = Placeholder("meetingOrigin")
	t.MeetingDate = Placeholder("meetingDate")
	t.AgendaItem = Placeholder("agendaItem")
	t.Relation = Placeholder("relation")
	return t
}

func orPlaceholder(value, fieldName string) string {
	if value == "" {
		return Placeholder(fieldName)
	}
	return value
}

// normalizeType resolves the raw type. Unrecognized non-empty values map to
// unknown and the raw value is appended to the title for visibility.
func normalizeType(raw string, title *string) Type {
	if raw == "" {
		return TypeUnknown
	}
	typ, ok := ParseType(raw)
	if !ok {
		*title = fmt.Sprintf("%s (%s)", *title, raw)
	}
	return typ
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05"}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, value); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

// normalizeDueDate returns the short display form ("DD.MM.") and the ISO
// date. An unparseable or missing value yields a placeholder short form and
// an empty ISO date.
func normalizeDueDate(value string) (short, full string) {
	if value == "" {
		return Placeholder("dueDate"), ""
	}
	d, ok := parseDate(value)
	if !ok {
		return Placeholder("dueDate"), ""
	}
	return d.Format("02.01."), d.Format("2006-01-02")
}

// normalizeDisplayDate returns the long display form ("DD.MM.YYYY").
func normalizeDisplayDate(value, fieldName string) string {
	if value == "" {
		return Placeholder(fieldName)
	}
	d, ok := parseDate(value)
	if !ok {
		return Placeholder(fieldName)
	}
	return d.Format("02.01.2006")
}
