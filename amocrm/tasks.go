// ABOUTME: Task fetchers for deal follow-ups
// ABOUTME: Account-wide fetch grouped by deal plus a single-deal filter
package amocrm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/avoronin/dealview/models"
)

// FetchTasks returns all deal-type tasks grouped by owning deal id.
// Grouping preserves response order; tasks are not re-sorted here, the
// next-task selection handles ordering.
func (c *Client) FetchTasks(ctx context.Context) (map[int64][]models.Task, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/v4/tasks?filter[entity_type]=leads", nil)
	if err != nil {
		return nil, err
	}

	var resp models.TasksResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode tasks response: %w", err)
	}

	grouped := make(map[int64][]models.Task)
	for _, task := range resp.Embedded.Tasks {
		grouped[task.EntityID] = append(grouped[task.EntityID], task)
	}

	return grouped, nil
}

// FetchDealTasks returns the tasks for one deal, in response order.
func (c *Client) FetchDealTasks(ctx context.Context, dealID int64) ([]models.Task, error) {
	endpoint := fmt.Sprintf("/api/v4/tasks?filter[entity_type]=leads&filter[entity_id]=%d", dealID)
	raw, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var resp models.TasksResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode tasks response: %w", err)
	}

	return resp.Embedded.Tasks, nil
}
