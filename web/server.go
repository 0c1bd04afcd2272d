// ABOUTME: Web UI with embedded templates
// ABOUTME: Read-only deal dashboard rendered from a loaded session
package web

import (
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/avoronin/dealview/amocrm"
	"github.com/avoronin/dealview/models"
)

//go:embed templates/*
var templatesFS embed.FS

type Server struct {
	session   *amocrm.Session
	templates *template.Template
}

// DealRow is the per-deal view model for the deals table.
type DealRow struct {
	ID       int64
	Name     string
	Price    int64
	Status   models.Status
	TaskDate string
	Phone    string
	Expanded bool
	Detail   *models.DealDetail
}

func NewServer(session *amocrm.Session) (*Server, error) {
	tmpl, err := template.New("").ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	return &Server{
		session:   session,
		templates: tmpl,
	}, nil
}

// Handler returns the dashboard mux, suitable for mounting under the proxy.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleDashboard)
	mux.HandleFunc("/refresh", s.handleRefresh)
	return mux
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	today := time.Now()
	rows := s.dealRows(today)

	data := map[string]interface{}{
		"Title": "Deals",
		"Stats": s.stats(today),
		"Rows":  rows,
	}

	s.renderTemplate(w, "layout.html", data)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if ok := s.session.LoadAll(r.Context()); !ok {
		log.Printf("web: refresh failed or already running")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) dealRows(today time.Time) []DealRow {
	var rows []DealRow
	for _, deal := range s.session.Deals() {
		row := DealRow{
			ID:    deal.ID,
			Name:  deal.Name,
			Price: deal.Price,
		}

		var due *models.DueDate
		if next := s.session.NextTask(deal.ID); next != nil {
			due = next.CompleteTill
			row.TaskDate = models.FormatDate(due)
		}
		row.Status = models.StatusColor(due, today)

		if contact := s.session.ContactForDeal(deal.ID); contact != nil {
			row.Phone = contact.Phone()
		}

		rows = append(rows, row)
	}
	return rows
}

func (s *Server) renderTemplate(w http.ResponseWriter, name string, data interface{}) {
	err := s.templates.ExecuteTemplate(w, name, data)
	if err != nil {
		log.Printf("web: template error rendering %s: %v", name, err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
}
