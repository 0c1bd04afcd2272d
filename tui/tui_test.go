// ABOUTME: Tests for the deal browser expand/collapse state machine
// ABOUTME: Drives the bubbletea model with synthetic messages and key presses
package tui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/avoronin/dealview/amocrm"
	"github.com/avoronin/dealview/models"
)

func testSession(t *testing.T) *amocrm.Session {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v4/leads":
			_, _ = w.Write([]byte(`{"_embedded":{"leads":[
				{"id":1,"name":"First"},
				{"id":2,"name":"Second"}
			]}}`))
		case "/api/v4/tasks":
			_, _ = w.Write([]byte(`{"_embedded":{"tasks":[]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)

	session := amocrm.NewSession(amocrm.NewClient(srv.URL, 0))
	if !session.LoadAll(context.Background()) {
		t.Fatal("fixture LoadAll failed")
	}
	return session
}

func pressKey(m Model, key string) Model {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	updated, _ := m.Update(msg)
	return updated.(Model)
}

func expandedModel(t *testing.T) Model {
	t.Helper()
	m := NewModel(testSession(t))

	// Simulate the pipeline finishing and a detail load for deal 1.
	updated, _ := m.Update(dealsLoadedMsg{ok: true})
	m = updated.(Model)

	updated, _ = m.Update(detailLoadedMsg{
		dealID: 1,
		detail: &models.DealDetail{Deal: models.Deal{ID: 1, Name: "First"}},
	})
	return updated.(Model)
}

func TestReselectingExpandedDealCollapses(t *testing.T) {
	m := expandedModel(t)
	if m.ExpandedDealID() != 1 {
		t.Fatalf("setup: expanded = %d, want 1", m.ExpandedDealID())
	}

	// Cursor starts on deal 1; enter collapses it.
	m = pressKey(m, "enter")

	if m.ExpandedDealID() != 0 {
		t.Errorf("expanded = %d after re-select, want 0", m.ExpandedDealID())
	}
	if strings.Contains(m.View(), "Created") {
		t.Error("collapsed view still renders a detail block")
	}
}

func TestSelectingOtherDealStartsDetailLoad(t *testing.T) {
	m := expandedModel(t)

	m = pressKey(m, "j") // move to deal 2
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)

	if cmd == nil {
		t.Fatal("expected a detail load command")
	}
	if !m.loading {
		t.Error("loading indicator not shown while detail loads")
	}
	// Old expansion stays until the new detail arrives.
	if m.ExpandedDealID() != 1 {
		t.Errorf("expanded = %d during load, want 1", m.ExpandedDealID())
	}
}

func TestDetailLoadFailureLeavesListUntouched(t *testing.T) {
	m := NewModel(testSession(t))
	updated, _ := m.Update(dealsLoadedMsg{ok: true})
	m = updated.(Model)

	// Failed load delivers a nil detail: no expansion, no detail block.
	updated, _ = m.Update(detailLoadedMsg{dealID: 1, detail: nil})
	m = updated.(Model)

	if m.ExpandedDealID() != 0 {
		t.Errorf("expanded = %d after failed load, want 0", m.ExpandedDealID())
	}
	if m.loading {
		t.Error("loading indicator stuck after failed load")
	}
}

func TestViewRendersDeals(t *testing.T) {
	m := NewModel(testSession(t))
	updated, _ := m.Update(dealsLoadedMsg{ok: true})
	m = updated.(Model)

	view := m.View()
	if !strings.Contains(view, "First") || !strings.Contains(view, "Second") {
		t.Errorf("view missing deal rows:\n%s", view)
	}
	if !strings.Contains(view, "no task") {
		t.Errorf("view missing no-task marker:\n%s", view)
	}
}

func TestCursorBounds(t *testing.T) {
	m := NewModel(testSession(t))
	updated, _ := m.Update(dealsLoadedMsg{ok: true})
	m = updated.(Model)

	m = pressKey(m, "k")
	if m.cursor != 0 {
		t.Errorf("cursor moved above the first row: %d", m.cursor)
	}

	m = pressKey(m, "j")
	m = pressKey(m, "j")
	m = pressKey(m, "j")
	if m.cursor != 1 {
		t.Errorf("cursor moved past the last row: %d", m.cursor)
	}
}
