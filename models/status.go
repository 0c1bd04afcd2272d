// ABOUTME: Presentation helpers derived from task due dates
// ABOUTME: Maps a due date to a red/green/yellow status and formats dates for display
package models

import "time"

// Status is the traffic-light indicator shown next to a deal.
type Status string

const (
	StatusRed    Status = "red"    // overdue, or no pending task at all
	StatusGreen  Status = "green"  // due today
	StatusYellow Status = "yellow" // due in the future
)

// StatusColor derives the indicator for a due date relative to today.
// A deal without a due task is treated the same as an overdue one.
// Pure function of (due, today) so it is testable without a clock.
func StatusColor(due *DueDate, today time.Time) Status {
	if due == nil || due.IsZero() {
		return StatusRed
	}
	d := truncateToDay(due.In(today.Location()))
	t := truncateToDay(today)
	switch {
	case d.Before(t):
		return StatusRed
	case d.Equal(t):
		return StatusGreen
	default:
		return StatusYellow
	}
}

// FormatDate renders a due date as day.month.year.
func FormatDate(due *DueDate) string {
	if due == nil || due.IsZero() {
		return ""
	}
	return due.Format("02.01.2006")
}

func truncateToDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
