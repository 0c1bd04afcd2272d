// ABOUTME: Contact fetcher with id-filter batching
// ABOUTME: The upstream caps filter[id][] arrays at two ids per request
package amocrm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/avoronin/dealview/models"
)

// contactBatchSize is the upstream limit on filter[id][] values per call.
const contactBatchSize = 2

// contactBatchPause is an extra delay between contact batches, on top of
// the gate's own spacing. The contacts endpoint throttles harder than the
// rest of the API.
const contactBatchPause = time.Second

// FetchContacts retrieves the contacts for the given ids, issuing one
// gated request per batch of at most two ids and concatenating results in
// batch order.
func (c *Client) FetchContacts(ctx context.Context, ids []int64) ([]models.Contact, error) {
	var contacts []models.Contact

	batches := batchIDs(ids, contactBatchSize)
	for i, batch := range batches {
		q := url.Values{}
		for _, id := range batch {
			q.Add("filter[id][]", fmt.Sprintf("%d", id))
		}

		raw, err := c.do(ctx, http.MethodGet, "/api/v4/contacts?"+q.Encode(), nil)
		if err != nil {
			return nil, err
		}

		var resp models.ContactsResponse
		if err := json.Unmarshal(raw, &resp); err != nil {
			return nil, fmt.Errorf("decode contacts response: %w", err)
		}
		contacts = append(contacts, resp.Embedded.Contacts...)

		if i < len(batches)-1 {
			select {
			case <-time.After(contactBatchPause):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	return contacts, nil
}

// batchIDs partitions ids into chunks of at most size, preserving order.
func batchIDs(ids []int64, size int) [][]int64 {
	if size <= 0 || len(ids) == 0 {
		return nil
	}
	var batches [][]int64
	for start := 0; start < len(ids); start += size {
		end := start + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[start:end])
	}
	return batches
}
