package tasksource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/kazz187/deadlinebot/internal/auth"
	"github.com/kazz187/deadlinebot/internal/config"
	"github.com/kazz187/deadlinebot/internal/task"
	"github.com/kazz187/deadlinebot/pkg/cerr"
)

// defaultContext is the response of the first workflow step. It pins the
// execution/breakdown/sprint the progress-item query runs against.
type defaultContext struct {
	ExecutionID string `json:"executionId"`
	BreakdownID string `json:"breakdownId"`
	SprintID    string `json:"sprintId"`
}

type profilesResponse struct {
	Profiles []task.Profile `json:"profiles"`
}

// ProgressMakerClient implements Source against the three-step progress API:
// resolve the default context, resolve the profile directory, then query
// progress items filtered by due-date window. The profile directory is
// resolved once per fetch and reused for every item's assignee.
type ProgressMakerClient struct {
	baseURL string
	http    *http.Client
	tokens  auth.TokenProvider
	now     func() time.Time
}

func NewProgressMakerClient(env *config.SourceEnv, tokens auth.TokenProvider) *ProgressMakerClient {
	return &ProgressMakerClient{
		baseURL: env.BaseURL,
		http:    &http.Client{Timeout: env.Timeout},
		tokens:  tokens,
		now:     time.Now,
	}
}

func (c *ProgressMakerClient) FetchDueTasks(ctx context.Context, lookaheadDays int) (*Result, error) {
	var dc defaultContext
	if err := c.getJSON(ctx, "/api/daily/query_default_context", nil, &dc); err != nil {
		return nil, err
	}
	if dc.ExecutionID == "" || dc.SprintID == "" {
		return nil, cerr.NewError(cerr.SourceUnavailable, "default context missing executionId or sprintId", nil)
	}

	var pr profilesResponse
	if err := c.getJSON(ctx, "/api/profile/organization/query_profiles", nil, &pr); err != nil {
		return nil, err
	}
	profiles := make(task.ProfileMap, len(pr.Profiles))
	for _, p := range pr.Profiles {
		profiles[p.ID] = p
	}

	now := c.now()
	dueDate := now.AddDate(0, 0, lookaheadDays).Format("2006-01-02")
	endpoint := fmt.Sprintf("/api/execution/%s/sprint/%s/query_progress_items", dc.ExecutionID, dc.SprintID)
	params := url.Values{"dueDate": {dueDate}, "resolved": {"false"}}

	var items []task.ProgressItem
	if err := c.getJSON(ctx, endpoint, params, &items); err != nil {
		return nil, err
	}

	normalized := make([]task.NormalizedTask, 0, len(items))
	for _, item := range items {
		normalized = append(normalized, task.Normalize(item, profiles))
	}
	due := task.FilterDue(normalized, now, lookaheadDays)

	slog.InfoContext(ctx, "fetched progress items",
		"execution_id", dc.ExecutionID,
		"sprint_id", dc.SprintID,
		"items", len(items),
		"due", len(due),
	)
	return &Result{
		Groups: task.GroupByRecipient(due),
		Origin: OriginLive,
	}, nil
}

type updateRequest struct {
	Completed bool   `json:"completed"`
	UpdatedBy string `json:"updated_by"`
	UpdatedAt string `json:"updated_at"`
}

func (c *ProgressMakerClient) UpdateTask(ctx context.Context, taskID string, completed bool, actor string, at time.Time) error {
	body, err := json.Marshal(updateRequest{
		Completed: completed,
		UpdatedBy: actor,
		UpdatedAt: at.Format(time.RFC3339),
	})
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", err)
	}

	token, err := c.tokens.BearerToken(ctx)
	if err != nil {
		return cerr.NewError(cerr.UpdateFailed, fmt.Sprintf("failed to update task %s", taskID), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.baseURL+"/tasks/"+url.PathEscape(taskID), bytes.NewReader(body))
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return cerr.NewError(cerr.UpdateFailed, fmt.Sprintf("failed to update task %s", taskID), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return cerr.NewError(cerr.UpdateFailed, fmt.Sprintf("task update rejected for %s", taskID), fmt.Errorf("unexpected status %d", resp.StatusCode))
	}
	return nil
}

func (c *ProgressMakerClient) getJSON(ctx context.Context, endpoint string, params url.Values, out any) error {
	token, err := c.tokens.BearerToken(ctx)
	if err != nil {
		// AuthUnavailable and SourceUnavailable degrade the same way.
		return err
	}

	u := c.baseURL + endpoint
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return cerr.NewError(cerr.Internal, "server error", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return cerr.NewError(cerr.SourceUnavailable, fmt.Sprintf("request to %s failed", endpoint), err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return cerr.NewError(cerr.SourceUnavailable, fmt.Sprintf("unexpected status from %s", endpoint), fmt.Errorf("status %d", resp.StatusCode))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return cerr.NewError(cerr.SourceUnavailable, fmt.Sprintf("malformed response from %s", endpoint), err)
	}
	return nil
}
