package task

import (
	"sort"
	"time"
)

// RecipientGroups maps a recipient email to the ordered tasks due for them.
// Order within a group follows the input order of the task list.
type RecipientGroups map[string][]NormalizedTask

// GroupByRecipient buckets tasks by resolved assignee email. Tasks whose
// assignee resolved to the placeholder email are still grouped (under the
// placeholder key) so nothing silently disappears; the dispatcher will skip
// them for lack of a conversation reference.
func GroupByRecipient(tasks []NormalizedTask) RecipientGroups {
	groups := make(RecipientGroups)
	for _, t := range tasks {
		groups[t.AssigneeEmail] = append(groups[t.AssigneeEmail], t)
	}
	return groups
}

// Emails returns the recipient emails in sorted order for deterministic
// iteration.
func (g RecipientGroups) Emails() []string {
	emails := make([]string, 0, len(g))
	for email := range g {
		emails = append(emails, email)
	}
	sort.Strings(emails)
	return emails
}

// TotalTasks returns the number of tasks across all recipients.
func (g RecipientGroups) TotalTasks() int {
	n := 0
	for _, tasks := range g {
		n += len(tasks)
	}
	return n
}

// FilterDue keeps incomplete tasks due on or before today+lookaheadDays.
// Tasks without a parseable due date are kept: the card shows the
// placeholder and a human decides.
func FilterDue(tasks []NormalizedTask, now time.Time, lookaheadDays int) []NormalizedTask {
	horizon := now.AddDate(0, 0, lookaheadDays)
	horizonDay := time.Date(horizon.Year(), horizon.Month(), horizon.Day(), 0, 0, 0, 0, time.UTC)

	var due []NormalizedTask
	for _, t := range tasks {
		if t.Completed {
			continue
		}
		if t.DueDateFull == "" {
			due = append(due, t)
			continue
		}
		d, ok := parseDate(t.DueDateFull)
		if !ok {
			due = append(due, t)
			continue
		}
		if !d.After(horizonDay) {
			due = append(due, t)
		}
	}
	return due
}
