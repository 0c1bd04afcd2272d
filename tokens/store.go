// ABOUTME: Persistent storage for the two OAuth tokens
// ABOUTME: Badger-backed key-value store at an XDG data path
package tokens

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/dgraph-io/badger/v3"
	"golang.org/x/oauth2"
)

var (
	keyAccessToken  = []byte("accessToken")
	keyRefreshToken = []byte("refreshToken")
)

// Store persists the access/refresh token pair across process restarts.
// It survives being handed an empty token: Save overwrites both keys, so
// a token pair is always replaced wholesale, never half-updated.
type Store struct {
	db *badger.DB
}

// DefaultPath returns the XDG-compliant location for the token store.
func DefaultPath() string {
	return filepath.Join(xdg.DataHome, "dealview", "tokens")
}

// Open opens (creating if needed) the store at path.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("failed to create token directory: %w", err)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open token store: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the stored token pair. Missing keys yield empty fields, not
// an error, so a fresh store loads as "no credentials yet".
func (s *Store) Load() (*oauth2.Token, error) {
	tok := &oauth2.Token{TokenType: "Bearer"}

	err := s.db.View(func(txn *badger.Txn) error {
		access, err := getString(txn, keyAccessToken)
		if err != nil {
			return err
		}
		refresh, err := getString(txn, keyRefreshToken)
		if err != nil {
			return err
		}
		tok.AccessToken = access
		tok.RefreshToken = refresh
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load tokens: %w", err)
	}

	return tok, nil
}

// Save writes both tokens in a single transaction, replacing whatever was
// stored before.
func (s *Store) Save(tok *oauth2.Token) error {
	if tok == nil {
		return fmt.Errorf("token cannot be nil")
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(keyAccessToken, []byte(tok.AccessToken)); err != nil {
			return err
		}
		return txn.Set(keyRefreshToken, []byte(tok.RefreshToken))
	})
	if err != nil {
		return fmt.Errorf("failed to save tokens: %w", err)
	}

	return nil
}

// Clear removes both tokens.
func (s *Store) Clear() error {
	err := s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Delete(keyAccessToken); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := txn.Delete(keyRefreshToken); err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to clear tokens: %w", err)
	}
	return nil
}

func getString(txn *badger.Txn, key []byte) (string, error) {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	val, err := item.ValueCopy(nil)
	if err != nil {
		return "", err
	}
	return string(val), nil
}
