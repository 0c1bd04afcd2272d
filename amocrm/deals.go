// ABOUTME: Deal (lead) fetchers
// ABOUTME: Collection fetch with embedded contact refs plus single-deal detail fetch
package amocrm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/avoronin/dealview/models"
)

// FetchDeals returns every deal with its embedded contact references.
// An envelope without the leads field is an empty account, not an error.
func (c *Client) FetchDeals(ctx context.Context) ([]models.Deal, error) {
	raw, err := c.do(ctx, http.MethodGet, "/api/v4/leads?with=contacts", nil)
	if err != nil {
		return nil, err
	}

	var resp models.LeadsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode leads response: %w", err)
	}

	return resp.Embedded.Leads, nil
}

// FetchDeal returns the full record for one deal.
func (c *Client) FetchDeal(ctx context.Context, id int64) (*models.Deal, error) {
	raw, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v4/leads/%d", id), nil)
	if err != nil {
		return nil, err
	}

	var deal models.Deal
	if err := json.Unmarshal(raw, &deal); err != nil {
		return nil, fmt.Errorf("decode lead %d: %w", id, err)
	}

	return &deal, nil
}
