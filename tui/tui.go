// ABOUTME: Terminal User Interface using bubbletea framework
// ABOUTME: Interactive deal browser with expandable per-deal detail rows
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/avoronin/dealview/amocrm"
	"github.com/avoronin/dealview/models"
)

// dealsLoadedMsg is sent when the full aggregation pipeline finishes.
type dealsLoadedMsg struct {
	ok bool
}

// detailLoadedMsg is sent when an on-demand detail load finishes. Detail
// is nil on failure; the list stays as it was, with no detail block.
type detailLoadedMsg struct {
	dealID int64
	detail *models.DealDetail
}

// Model is the main bubbletea model.
type Model struct {
	session *amocrm.Session

	// List view state
	cursor         int
	expandedDealID int64
	detail         *models.DealDetail

	// Loading indicator state
	loading     bool
	loadingList bool
	spinner     spinner.Model

	// UI state
	width  int
	height int
}

// NewModel creates a TUI model over an authenticated session.
func NewModel(session *amocrm.Session) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("170"))

	return Model{
		session:     session,
		spinner:     sp,
		loadingList: true,
		width:       80,
		height:      24,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, loadDealsCmd(m.session))
}

func loadDealsCmd(session *amocrm.Session) tea.Cmd {
	return func() tea.Msg {
		return dealsLoadedMsg{ok: session.LoadAll(context.Background())}
	}
}

func loadDetailCmd(session *amocrm.Session, dealID int64) tea.Cmd {
	return func() tea.Msg {
		return detailLoadedMsg{
			dealID: dealID,
			detail: session.LoadDealDetails(context.Background(), dealID),
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dealsLoadedMsg:
		m.loadingList = false
		m.cursor = 0
		m.expandedDealID = 0
		m.detail = nil
		return m, nil

	case detailLoadedMsg:
		m.loading = false
		if msg.detail != nil {
			m.expandedDealID = msg.dealID
			m.detail = msg.detail
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	deals := m.session.Deals()

	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil

	case "down", "j":
		if m.cursor < len(deals)-1 {
			m.cursor++
		}
		return m, nil

	case "r":
		if m.loadingList || m.loading {
			return m, nil
		}
		m.loadingList = true
		return m, tea.Batch(m.spinner.Tick, loadDealsCmd(m.session))

	case "enter":
		if m.loadingList || m.loading || m.cursor >= len(deals) {
			return m, nil
		}
		selected := deals[m.cursor].ID
		if m.expandedDealID == selected {
			// Re-selecting the expanded deal collapses it.
			m.expandedDealID = 0
			m.detail = nil
			return m, nil
		}
		m.loading = true
		return m, tea.Batch(m.spinner.Tick, loadDetailCmd(m.session, selected))
	}

	return m, nil
}

// ExpandedDealID exposes the expansion state for tests.
func (m Model) ExpandedDealID() int64 {
	return m.expandedDealID
}
