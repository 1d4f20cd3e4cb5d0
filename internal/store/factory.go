package store

import (
	"fmt"
	"log/slog"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/core"
)

// Backend names accepted by Open.
const (
	BackendSQLite   = "sqlite"
	BackendSupabase = "supabase"
)

// Settings carries the connection parameters for whichever backend is
// selected. Unused fields may stay empty.
type Settings struct {
	Backend      string
	SQLiteDBPath string
	SupabaseURL  string
	SupabaseKey  string
}

// Opener constructs a Store from backend settings. Each backend package
// registers its constructor here so this package does not import its
// implementations.
type Opener func(Settings) (Store, error)

var openers = map[string]Opener{}

// Register makes a backend available under the given name. It is meant
// to be called from package init functions.
func Register(name string, open Opener) {
	openers[name] = open
}

// Open builds the configured store backend.
func Open(settings Settings) (Store, error) {
	open, ok := openers[settings.Backend]
	if !ok {
		return nil, fmt.Errorf("backend %q: %w", settings.Backend, core.ErrUnknownBackend)
	}

	s, err := open(settings)
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", settings.Backend, err)
	}

	slog.Info("Store backend initialized", "backend", settings.Backend)
	return s, nil
}
