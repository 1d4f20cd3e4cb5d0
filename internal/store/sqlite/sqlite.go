// Package sqlite persists the ledger in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/core"
	"github.com/jschulzedieckmann/haushaltsbuch/internal/store"
)

// Repository implements store.Store on a SQLite file.
type Repository struct {
	db *sql.DB
}

func init() {
	store.Register(store.BackendSQLite, func(s store.Settings) (store.Store, error) {
		return NewRepository(s.SQLiteDBPath)
	})
}

func NewRepository(dbPath string) (*Repository, error) {
	if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// InsertRawRows appends audit rows. Re-imported files produce duplicate
// audit rows on purpose; the trail records every upload.
func (r *Repository) InsertRawRows(ctx context.Context, rows []core.RawRow) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin raw insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_ing_exports (
			source_file, row_index, buchung, wertstellungsdatum,
			auftraggeber_empfaenger, buchungstext, verwendungszweck,
			saldo, saldo_waehrung, betrag, betrag_waehrung
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare raw insert: %w", err)
	}
	defer stmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx,
			row.SourceFile, row.RowIndex, row.Buchung, row.Wertstellung,
			row.Auftraggeber, row.Buchungstext, row.Verwendungszweck,
			row.Saldo, row.SaldoWaehrung, row.Betrag, row.BetragWaehrung,
		); err != nil {
			return fmt.Errorf("insert raw row %d: %w", row.RowIndex, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit raw insert: %w", err)
	}
	return nil
}

// UpsertTransactions writes the batch with insert-or-ignore semantics so
// an existing entry keeps its category assignment. The returned count is
// the number of genuinely new rows.
func (r *Repository) UpsertTransactions(ctx context.Context, txs []core.Transaction) (int, error) {
	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin upsert: %w", err)
	}
	defer dbTx.Rollback()

	stmt, err := dbTx.PrepareContext(ctx, `
		INSERT INTO transactions (
			transaction_id, booking_date, value_date, amount, currency,
			counterparty, memo, source_file
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(transaction_id) DO NOTHING`)
	if err != nil {
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	inserted := 0
	for _, t := range txs {
		res, err := stmt.ExecContext(ctx,
			t.ID, t.BookingDate.ISO(), t.ValueDate.ISO(), t.Amount.String(),
			t.Currency, t.Counterparty, t.Memo, t.SourceFile,
		)
		if err != nil {
			return 0, fmt.Errorf("upsert transaction %s: %w", t.ID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("rows affected: %w", err)
		}
		inserted += int(n)
	}

	if err := dbTx.Commit(); err != nil {
		return 0, fmt.Errorf("commit upsert: %w", err)
	}

	slog.DebugContext(ctx, "Transaction batch upserted",
		"batch_size", len(txs), "inserted", inserted)
	return inserted, nil
}

const txColumns = `transaction_id, booking_date, value_date, amount, currency,
	counterparty, memo, source_file, COALESCE(category_id, '')`

func (r *Repository) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	where, args := buildFilter(f)
	query := `SELECT ` + txColumns + ` FROM transactions` + where +
		` ORDER BY booking_date DESC, transaction_id ASC`
	if f.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(f.Limit) + ` OFFSET ` + strconv.Itoa(f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *Repository) CountTransactions(ctx context.Context, f store.TransactionFilter) (int, error) {
	where, args := buildFilter(f)
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM transactions`+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	return count, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+txColumns+` FROM transactions WHERE transaction_id = ?`, id)
	t, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	return t, err
}

func (r *Repository) AssignCategory(ctx context.Context, ids []string, categoryID string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	var category any
	if categoryID != "" {
		category = categoryID
	}

	placeholders := strings.Repeat("?,", len(ids))
	placeholders = placeholders[:len(placeholders)-1]
	args := make([]any, 0, len(ids)+1)
	args = append(args, category)
	for _, id := range ids {
		args = append(args, id)
	}

	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = ? WHERE transaction_id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("assign category: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT category_id, label, color_hex, COALESCE(parent_id, ''), active
		FROM categories WHERE active = 1 ORDER BY label`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []core.Category
	for rows.Next() {
		var c core.Category
		if err := rows.Scan(&c.ID, &c.Label, &c.ColorHex, &c.ParentID, &c.Active); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repository) GetCategory(ctx context.Context, id string) (core.Category, error) {
	var c core.Category
	err := r.db.QueryRowContext(ctx, `
		SELECT category_id, label, color_hex, COALESCE(parent_id, ''), active
		FROM categories WHERE category_id = ?`, id).
		Scan(&c.ID, &c.Label, &c.ColorHex, &c.ParentID, &c.Active)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrCategoryNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category %s: %w", id, err)
	}
	return c, nil
}

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) error {
	var parent any
	if c.ParentID != "" {
		parent = c.ParentID
	}
	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (category_id, label, color_hex, parent_id, active)
		VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Label, c.ColorHex, parent, c.Active,
	); err != nil {
		return fmt.Errorf("create category %s: %w", c.ID, err)
	}

	slog.InfoContext(ctx, "Category created", "category_id", c.ID, "label", c.Label)
	return nil
}

func buildFilter(f store.TransactionFilter) (string, []any) {
	var clauses []string
	var args []any

	if f.Year > 0 {
		clauses = append(clauses, `booking_date BETWEEN ? AND ?`)
		args = append(args, fmt.Sprintf("%04d-01-01", f.Year), fmt.Sprintf("%04d-12-31", f.Year))
	}
	if f.CategoryID != "" {
		clauses = append(clauses, `category_id = ?`)
		args = append(args, f.CategoryID)
	}
	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		clauses = append(clauses, `(counterparty LIKE ? OR memo LIKE ?)`)
		args = append(args, pattern, pattern)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var t core.Transaction
	var bookingDate, valueDate, amount string
	if err := row.Scan(&t.ID, &bookingDate, &valueDate, &amount, &t.Currency,
		&t.Counterparty, &t.Memo, &t.SourceFile, &t.CategoryID); err != nil {
		return core.Transaction{}, err
	}

	var err error
	if t.BookingDate, err = parseISODate(bookingDate); err != nil {
		return core.Transaction{}, fmt.Errorf("booking date of %s: %w", t.ID, err)
	}
	if t.ValueDate, err = parseISODate(valueDate); err != nil {
		return core.Transaction{}, fmt.Errorf("value date of %s: %w", t.ID, err)
	}
	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("amount of %s: %w", t.ID, err)
	}
	return t, nil
}

func parseISODate(s string) (core.Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return core.Date{}, err
	}
	return core.Date{Time: t}, nil
}
