// ABOUTME: Command implementations shared by the dealview entry point
// ABOUTME: Wires config, token store, client and session for each subcommand
package cli

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/avoronin/dealview/amocrm"
	"github.com/avoronin/dealview/config"
	"github.com/avoronin/dealview/models"
	"github.com/avoronin/dealview/proxy"
	"github.com/avoronin/dealview/tokens"
	"github.com/avoronin/dealview/tui"
	"github.com/avoronin/dealview/web"
)

// setup opens the token store and builds the client/authenticator pair.
// The caller owns closing the returned store.
func setup(cfg *config.Config) (*amocrm.Client, *amocrm.Authenticator, *tokens.Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, err
	}

	store, err := tokens.Open(tokens.DefaultPath())
	if err != nil {
		return nil, nil, nil, err
	}

	client := amocrm.NewClient(cfg.APIBase(), cfg.RequestDelay)
	auth, err := amocrm.NewAuthenticator(client, store, amocrm.AuthConfig{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURI:  cfg.RedirectURI,
		AuthCode:     cfg.AuthCode,
	})
	if err != nil {
		_ = store.Close()
		return nil, nil, nil, err
	}

	return client, auth, store, nil
}

// AuthCommand runs the authentication flow and persists the tokens.
// When no authorization code is configured and no refresh token is stored,
// it prompts for the code without echoing it.
func AuthCommand(cfg *config.Config) error {
	if cfg.AuthCode == "" {
		store, err := tokens.Open(tokens.DefaultPath())
		if err != nil {
			return err
		}
		stored, err := store.Load()
		_ = store.Close()
		if err != nil {
			return err
		}
		if stored.RefreshToken == "" {
			code, err := promptSecret("amoCRM authorization code: ")
			if err != nil {
				return err
			}
			cfg.AuthCode = code
		}
	}

	_, auth, store, err := setup(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if !auth.Authenticate(context.Background()) {
		return fmt.Errorf("authentication failed; obtain a fresh authorization code from amoCRM")
	}

	fmt.Println("✓ Authenticated, tokens saved")
	return nil
}

// ListDealsCommand authenticates, runs the full aggregation pipeline and
// prints the deal table.
func ListDealsCommand(cfg *config.Config) error {
	client, auth, store, err := setup(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	if !auth.Authenticate(ctx) {
		return fmt.Errorf("authentication failed")
	}

	session := amocrm.NewSession(client)
	if !session.LoadAll(ctx) {
		return fmt.Errorf("failed to load deals")
	}

	printDeals(session)
	return nil
}

func printDeals(session *amocrm.Session) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPRICE\tNEXT TASK\tSTATUS\tPHONE")

	today := time.Now()
	for _, deal := range session.Deals() {
		var due *models.DueDate
		taskDate := "no task"
		if next := session.NextTask(deal.ID); next != nil {
			due = next.CompleteTill
			taskDate = models.FormatDate(due)
		}

		phone := "no phone"
		if contact := session.ContactForDeal(deal.ID); contact != nil {
			if p := contact.Phone(); p != "" {
				phone = p
			}
		}

		fmt.Fprintf(w, "%d\t%s\t%d\t%s\t%s\t%s\n",
			deal.ID, deal.Name, deal.Price, taskDate, models.StatusColor(due, today), phone)
	}
	_ = w.Flush()
}

// TuiCommand launches the interactive deal browser.
func TuiCommand(cfg *config.Config) error {
	client, auth, store, err := setup(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if !auth.Authenticate(context.Background()) {
		return fmt.Errorf("authentication failed")
	}

	session := amocrm.NewSession(client)
	p := tea.NewProgram(tui.NewModel(session), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("TUI failed: %w", err)
	}
	return nil
}

// ProxyCommand starts the local reverse proxy with the dashboard mounted
// at the root. Authentication failure is not fatal here: the /api
// passthrough works for browser clients doing their own auth, the
// dashboard just stays empty.
func ProxyCommand(cfg *config.Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	client, auth, store, err := setup(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	session := amocrm.NewSession(client)

	srv, err := web.NewServer(session)
	if err != nil {
		return err
	}

	ctx := context.Background()
	if auth.Authenticate(ctx) {
		go func() {
			if !session.LoadAll(ctx) {
				log.Printf("proxy: initial deal load failed")
			}
		}()
	} else {
		log.Printf("proxy: not authenticated, dashboard will be empty")
	}

	p, err := proxy.New(cfg.UpstreamURL(), srv.Handler())
	if err != nil {
		return err
	}
	return p.Start(cfg.ListenAddr)
}

func promptSecret(prompt string) (string, error) {
	fmt.Print(prompt)
	raw, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	code := strings.TrimSpace(string(raw))
	if code == "" {
		return "", fmt.Errorf("authorization code cannot be empty")
	}
	return code, nil
}
