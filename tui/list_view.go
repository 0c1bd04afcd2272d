// ABOUTME: Deal list rendering with status indicators
// ABOUTME: Draws the table, the cursor and the expanded detail block
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/avoronin/dealview/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			MarginBottom(1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Underline(true)

	selectedStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255")).
			Bold(true)

	detailStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("170")).
			Padding(0, 2).
			MarginLeft(2)

	fieldLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("170")).
			Width(14)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	statusStyles = map[models.Status]lipgloss.Style{
		models.StatusRed:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
		models.StatusGreen:  lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		models.StatusYellow: lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
	}
)

func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("DEALVIEW"))
	s.WriteString("\n\n")

	if m.loadingList {
		s.WriteString(m.spinner.View())
		s.WriteString(" Loading deals...\n")
		return s.String()
	}

	deals := m.session.Deals()
	if len(deals) == 0 {
		s.WriteString("No deals found.\n\n")
		s.WriteString(helpStyle.Render("r: reload  q: quit"))
		return s.String()
	}

	s.WriteString(headerStyle.Render(fmt.Sprintf("  %-8s %-30s %-12s %-22s %-16s", "ID", "Name", "Price", "Next task", "Phone")))
	s.WriteString("\n")

	today := time.Now()
	for i, deal := range deals {
		row := m.renderDealRow(deal, today)
		if i == m.cursor {
			s.WriteString("▶ " + selectedStyle.Render(row))
		} else {
			s.WriteString("  " + row)
		}
		s.WriteString("\n")

		if deal.ID == m.expandedDealID && m.detail != nil {
			s.WriteString(m.renderDetailBlock(today))
			s.WriteString("\n")
		}
	}

	s.WriteString("\n")
	if m.loading {
		s.WriteString(m.spinner.View())
		s.WriteString(" Loading details...\n\n")
	}
	s.WriteString(helpStyle.Render("↑/↓: move  enter: expand/collapse  r: reload  q: quit"))

	return s.String()
}

func (m Model) renderDealRow(deal models.Deal, today time.Time) string {
	next := m.session.NextTask(deal.ID)

	var due *models.DueDate
	if next != nil {
		due = next.CompleteTill
	}
	taskCell := statusDot(due, today) + " "
	if next != nil {
		taskCell += models.FormatDate(next.CompleteTill)
	} else {
		taskCell += "no task"
	}

	phone := "no phone"
	if contact := m.session.ContactForDeal(deal.ID); contact != nil {
		if p := contact.Phone(); p != "" {
			phone = p
		}
	}

	return fmt.Sprintf("%-8d %-30s %-12d %-22s %-16s", deal.ID, truncate(deal.Name, 30), deal.Price, taskCell, phone)
}

func (m Model) renderDetailBlock(today time.Time) string {
	d := m.detail

	var b strings.Builder
	b.WriteString(renderField("ID", fmt.Sprintf("%d", d.ID)))
	b.WriteString(renderField("Name", d.Name))
	b.WriteString(renderField("Created", models.FormatDate(models.NewDueDate(time.Unix(d.CreatedAt, 0)))))
	b.WriteString(renderField("Status", fmt.Sprintf("%d", d.StatusID)))

	var due *models.DueDate
	taskLine := "no task"
	if d.NextTask != nil {
		due = d.NextTask.CompleteTill
		taskLine = models.FormatDate(due)
	}
	b.WriteString(renderField("Task", statusDot(due, today)+" "+taskLine))

	return detailStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderField(label, value string) string {
	return fieldLabelStyle.Render(label) + " " + value + "\n"
}

func statusDot(due *models.DueDate, today time.Time) string {
	status := models.StatusColor(due, today)
	return statusStyles[status].Render("●")
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
