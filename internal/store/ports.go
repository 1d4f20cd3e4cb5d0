package store

import (
	"context"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/core"
)

// Ports for the durable row store. The store owns all long-lived
// Transaction/Category/RawRow state; the rest of the application only
// computes derived views over what it reads here.
type (
	// LedgerWriter receives the outputs of one ingestion run.
	LedgerWriter interface {
		// InsertRawRows appends audit rows. Duplicates across re-imports
		// are tolerated and must not fail the batch.
		InsertRawRows(ctx context.Context, rows []core.RawRow) error

		// UpsertTransactions writes transactions keyed by their content
		// fingerprint. Rows whose ID already exists are left untouched,
		// preserving category assignments. Returns how many rows were
		// actually new.
		UpsertTransactions(ctx context.Context, txs []core.Transaction) (inserted int, err error)
	}

	// LedgerReader serves the query surface of the dashboard and the
	// transaction browser.
	LedgerReader interface {
		// ListTransactions returns transactions matching the filter,
		// newest booking date first.
		ListTransactions(ctx context.Context, f TransactionFilter) ([]core.Transaction, error)

		// CountTransactions returns the total match count for pagination.
		CountTransactions(ctx context.Context, f TransactionFilter) (int, error)

		GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	}

	// CategoryAssigner mutates the only mutable transaction field.
	CategoryAssigner interface {
		// AssignCategory sets (or clears, with empty categoryID) the
		// category of every listed transaction. Returns the update count.
		AssignCategory(ctx context.Context, ids []string, categoryID string) (int, error)
	}

	CategoryStore interface {
		ListCategories(ctx context.Context) ([]core.Category, error)
		GetCategory(ctx context.Context, id string) (core.Category, error)
		CreateCategory(ctx context.Context, c core.Category) error
	}

	// Store is the full surface a backend must provide.
	Store interface {
		LedgerWriter
		LedgerReader
		CategoryAssigner
		CategoryStore
		Close() error
	}
)

// TransactionFilter narrows ListTransactions/CountTransactions.
// Zero values mean "no constraint".
type TransactionFilter struct {
	Year       int    // calendar year of the booking date
	CategoryID string
	Search     string // case-insensitive substring over counterparty and memo
	Limit      int
	Offset     int
}
