// ABOUTME: Dashboard summary statistics
// ABOUTME: Aggregates pipeline value and task status counts from the session
package web

import (
	"time"

	"github.com/avoronin/dealview/models"
)

// DashboardStats is the summary block above the deals table.
type DashboardStats struct {
	TotalDeals    int
	PipelineValue int64

	// Task status breakdown
	Overdue  int // red: overdue next task, or no pending task at all
	DueToday int // green
	Upcoming int // yellow
}

func (s *Server) stats(today time.Time) DashboardStats {
	var stats DashboardStats

	for _, deal := range s.session.Deals() {
		stats.TotalDeals++
		stats.PipelineValue += deal.Price

		var due *models.DueDate
		if next := s.session.NextTask(deal.ID); next != nil {
			due = next.CompleteTill
		}
		switch models.StatusColor(due, today) {
		case models.StatusRed:
			stats.Overdue++
		case models.StatusGreen:
			stats.DueToday++
		case models.StatusYellow:
			stats.Upcoming++
		}
	}

	return stats
}
