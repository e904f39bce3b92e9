package cli

import (
	"fmt"

	"github.com/labrat/labrat/internal/engine"
	"github.com/labrat/labrat/internal/store"
)

// withStore opens the database, executes the function, and handles cleanup.
func withStore(fn func(*store.SQLiteStore) error) error {
	s, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer s.Close()

	return fn(s)
}

// withEngine opens the database and hands the function an engine bound
// to it with the flag-configured tunables.
func withEngine(fn func(*engine.Engine) error) error {
	return withStore(func(s *store.SQLiteStore) error {
		return fn(engine.New(s, engineConfig()))
	})
}

func formatNumber(n int) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1000000, (n/1000)%1000, n%1000)
}
