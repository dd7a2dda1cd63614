package tasksource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kazz187/deadlinebot/internal/auth"
	"github.com/kazz187/deadlinebot/internal/config"
	"github.com/kazz187/deadlinebot/internal/task"
	"github.com/kazz187/deadlinebot/pkg/cerr"
)

// SimpleClient implements Source against the flat list-endpoint variant:
// one GET returning an array of task objects, no separate context or
// profile lookups.
type SimpleClient struct {
	baseURL string
	http    *http.Client
	tokens  auth.TokenProvider
	now     func() time.Time
}

func NewSimpleClient(env *config.SourceEnv, tokens auth.TokenProvider) *SimpleClient {
	return &SimpleClient{
		baseURL: env.BaseURL,
		http:    &http.Client{Timeout: env.Timeout},
		tokens:  tokens,
		now:     time.Now,
	}
}

func (c *SimpleClient) FetchDueTasks(ctx context.Context, lookaheadDays int) (*Result, error) {
	token, err := c.tokens.BearerToken(ctx)
	if err != nil {
		return nil, err
	}

	u := c.baseURL + "/tasks/upcoming-deadlines?daysAhead=" + strconv.Itoa(lookaheadDays)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, cerr.NewError(cerr.Internal, "server error", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, cerr.NewError(cerr.SourceUnavailable, "task list request failed", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, cerr.NewError(cerr.SourceUnavailable, "unexpected status from task list", fmt.Errorf("status %d", resp.StatusCode))
	}

	var items []task.SimpleItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, cerr.NewError(cerr.SourceUnavailable, "malformed task list response", err)
	}

	now := c.now()
	normalized := make([]task.NormalizedTask, 0, len(items))
	for _, item := range items {
		normalized = append(normalized, task.NormalizeSimple(item))
	}
	due := task.FilterDue(normalized, now, lookaheadDays)

	slog.InfoContext(ctx, "fetched task list", "items", len(items), "due", len(due))
	return &Result{
		Groups: task.GroupByRecipient(due),
		Origin: OriginLive,
	}, nil
}

func (c *SimpleClient) UpdateTask(ctx context.Context, taskID string, completed bool, actor string, at time.Time) error {
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
