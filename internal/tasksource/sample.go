package tasksource

import (
	"context"
	"log/slog"
	"time"

	"github.com/kazz187/deadlinebot/internal/task"
)

// SampleProvider is the canned fallback dataset. Its output matches the
// shape of the live three-step workflow so downstream code cannot tell the
// difference. Due dates are generated relative to now so the items always
// fall inside the lookahead window.
type SampleProvider struct {
	now func() time.Time
}

func NewSampleProvider() *SampleProvider {
	return &SampleProvider{now: time.Now}
}

func sampleProfiles() task.ProfileMap {
	profiles := []task.Profile{
		{
			ID:       "7caf8ce2-45df-4aba-a230-e0ea8fdb929a",
			Email:    "alexander.kub@progressmaker.io",
			UserName: "Alexander Kub",
		},
		{
			ID:       "18ff24be-0668-48d6-85f2-3efc8573958d",
			Email:    "sample.user@progressmaker.io",
			UserName: "Sample User",
		},
	}
	m := make(task.ProfileMap, len(profiles))
	for _, p := range profiles {
		m[p.ID] = p
	}
	return m
}

func sampleItems(now time.Time) []task.ProgressItem {
	tomorrow := now.AddDate(0, 0, 1).Format("2006-01-02")
	dayAfter := now.AddDate(0, 0, 2).Format("2006-01-02")
	meeting := now.AddDate(0, 0, -7).Format("2006-01-02")

	return []task.ProgressItem{
		{
			ID:               "112e99d7-f4bb-4c85-984b-ce63810f2414",
			ItemID:           "123e4567-e89b-12d3-a456-426614174000",
			Description:      "Complete Q4 Sales Analysis Report",
			ProgressItemType: "agreement",
			Assignee:         "7caf8ce2-45df-4aba-a230-e0ea8fdb929a",
			DueDate:          tomorrow,
			MeetingDate:      meeting,
			TouchPointOrigin: &task.TitledRef{ID: "fd435567-fe8c-4d58-856b-23653378b36b", Title: "Sales Department Weekly Review"},
			AgendaItem:       &task.TitledRef{ID: "6b550846-a1ef-43f3-a429-0ba98b1d2bcd", Title: "Sales Performance Review"},
			ItemRelation:     &task.NamedRef{ID: "f66b08b2-882a-4c07-baa6-cbc9fdda5140", Name: "Q4 Sales Strategy"},
		},
		{
			ID:               "223e99d7-f4bb-4c85-984b-ce63810f2415",
			ItemID:           "123e4567-e89b-12d3-a456-426614174001",
			Description:      "Update Marketing Campaign Strategy",
			ProgressItemType: "decision",
			Assignee:         "18ff24be-0668-48d6-85f2-3efc8573958d",
			DueDate:          dayAfter,
			MeetingDate:      meeting,
			TouchPointOrigin: &task.TitledRef{ID: "fd435567-fe8c-4d58-856b-23653378b36c", Title: "Marketing Planning Session"},
			AgendaItem:       &task.TitledRef{ID: "6b550846-a1ef-43f3-a429-0ba98b1d2bce", Title: "Campaign Strategy Review"},
			ItemRelation:     &task.NamedRef{ID: "f66b08b2-882a-4c07-baa6-cbc9fdda5141", Name: "Campaign Optimization"},
		},
		{
			ID:               "334e99d7-f4bb-4c85-984b-ce63810f2416",
			ItemID:           "123e4567-e89b-12d3-a456-426614174002",
			Description:      "Prepare Budget Proposal",
			ProgressItemType: "agreement",
			Assignee:         "7caf8ce2-45df-4aba-a230-e0ea8fdb929a",
			DueDate:          tomorrow,
			MeetingDate:      meeting,
			TouchPointOrigin: &task.TitledRef{ID: "fd435567-fe8c-4d58-856b-23653378b36d", Title: "Financial Planning Meeting"},
			AgendaItem:       &task.TitledRef{ID: "6b550846-a1ef-43f3-a429-0ba98b1d2bcf", Title: "Budget Planning and Resource Allocation"},
			ItemRelation:     &task.NamedRef{ID: "f66b08b2-882a-4c07-baa6-cbc9fdda5142", Name: "Financial Planning"},
		},
	}
}

func (p *SampleProvider) FetchDueTasks(ctx context.Context, lookaheadDays int) (*Result, error) {
	now := p.now()
	profiles := sampleProfiles()

	var normalized []task.NormalizedTask
	for _, item := range sampleItems(now) {
		normalized = append(normalized, task.Normalize(item, profiles))
	}
	due := task.FilterDue(normalized, now, lookaheadDays)

	return &Result{
		Groups: task.GroupByRecipient(due),
		Origin: OriginSample,
		Reason: "sample data provider",
	}, nil
}

// UpdateTask on the sample provider acknowledges the change without any
// remote call. Only reachable when the sample provider is the configured
// source (local development).
func (p *SampleProvider) UpdateTask(ctx context.Context, taskID string, completed bool, actor string, at time.Time) error {
	slog.InfoContext(ctx, "sample source: task update acknowledged",
		"task_id", taskID,
		"completed", completed,
		"actor", actor,
	)
	return nil
}
