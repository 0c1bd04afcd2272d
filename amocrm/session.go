// ABOUTME: In-memory aggregation of deals, contacts and tasks for one account
// ABOUTME: Owns the joined working set and the next-task / contact lookups
package amocrm

import (
	"context"
	"log"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/avoronin/dealview/models"
)

// Session holds the working set for one loaded account view. Collections
// are replaced wholesale by LoadAll; a partially refreshed join (new deals
// against stale contacts) never becomes visible.
type Session struct {
	client *Client

	mu       sync.RWMutex
	deals    []models.Deal
	contacts map[int64]models.Contact
	tasks    map[int64][]models.Task

	loading atomic.Bool
}

// NewSession creates an empty session over the given client.
func NewSession(client *Client) *Session {
	return &Session{
		client:   client,
		contacts: make(map[int64]models.Contact),
		tasks:    make(map[int64][]models.Task),
	}
}

// LoadAll runs the full pipeline: deals, then the contacts referenced by
// them, then all tasks. The steps are sequential on purpose - the account
// rate limit is global, so fanning out buys nothing. Only one load may be
// in flight; re-entrant calls return false immediately.
//
// A failure on any step leaves the previously loaded state untouched.
func (s *Session) LoadAll(ctx context.Context) bool {
	if !s.loading.CompareAndSwap(false, true) {
		log.Printf("session: load already in progress, ignoring")
		return false
	}
	defer s.loading.Store(false)

	deals, err := s.client.FetchDeals(ctx)
	if err != nil {
		log.Printf("session: failed to load deals: %v", err)
		return false
	}

	contactIDs := distinctContactIDs(deals)

	var contacts []models.Contact
	if len(contactIDs) > 0 {
		contacts, err = s.client.FetchContacts(ctx, contactIDs)
		if err != nil {
			log.Printf("session: failed to load contacts: %v", err)
			return false
		}
	}

	tasks, err := s.client.FetchTasks(ctx)
	if err != nil {
		log.Printf("session: failed to load tasks: %v", err)
		return false
	}

	byID := make(map[int64]models.Contact, len(contacts))
	for _, contact := range contacts {
		byID[contact.ID] = contact
	}

	s.mu.Lock()
	s.deals = deals
	s.contacts = byID
	s.tasks = tasks
	s.mu.Unlock()

	return true
}

// Deals returns the loaded deals in upstream order.
func (s *Session) Deals() []models.Deal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.deals
}

// Tasks returns the loaded tasks for one deal, fetch order preserved.
func (s *Session) Tasks(dealID int64) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tasks[dealID]
}

// ContactForDeal returns the contact matching the deal's first embedded
// reference. Nil when the deal has no refs, or when the referenced
// contact never made it into the loaded set (partial upstream failure).
func (s *Session) ContactForDeal(dealID int64) *models.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, deal := range s.deals {
		if deal.ID != dealID {
			continue
		}
		if len(deal.Embedded.Contacts) == 0 {
			return nil
		}
		if contact, ok := s.contacts[deal.Embedded.Contacts[0].ID]; ok {
			return &contact
		}
		return nil
	}
	return nil
}

// NextTask selects the deal's earliest task among those carrying a due
// date. Tasks without one stay in storage but never win. Equal dates
// resolve to whichever task appeared first in fetch order.
func (s *Session) NextTask(dealID int64) *models.Task {
	return nextTask(s.Tasks(dealID))
}

func nextTask(tasks []models.Task) *models.Task {
	var best *models.Task
	for i := range tasks {
		task := &tasks[i]
		if task.CompleteTill == nil || task.CompleteTill.IsZero() {
			continue
		}
		if best == nil || task.CompleteTill.Before(best.CompleteTill.Time) {
			best = task
		}
	}
	return best
}

// LoadDealDetails fetches the full deal record and its tasks. The two
// calls are issued concurrently; the gate still serializes their actual
// dispatch. Nil on any failure - the caller shows no detail block.
func (s *Session) LoadDealDetails(ctx context.Context, dealID int64) *models.DealDetail {
	var (
		deal  *models.Deal
		tasks []models.Task
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		deal, err = s.client.FetchDeal(gctx, dealID)
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = s.client.FetchDealTasks(gctx, dealID)
		return err
	})

	if err := g.Wait(); err != nil {
		log.Printf("session: failed to load deal %d details: %v", dealID, err)
		return nil
	}

	return &models.DealDetail{
		Deal:     *deal,
		NextTask: nextTask(tasks),
	}
}

// distinctContactIDs collects the distinct embedded contact ids across
// all deals, first-seen order.
func distinctContactIDs(deals []models.Deal) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, deal := range deals {
		for _, ref := range deal.Embedded.Contacts {
			if _, ok := seen[ref.ID]; ok {
				continue
			}
			seen[ref.ID] = struct{}{}
			ids = append(ids, ref.ID)
		}
	}
	return ids
}
