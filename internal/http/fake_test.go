package http

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/core"
	"github.com/jschulzedieckmann/haushaltsbuch/internal/store"
)

// fakeStore is an in-memory store.Store for handler tests.
type fakeStore struct {
	mu         sync.Mutex
	txs        map[string]core.Transaction
	cats       map[string]core.Category
	rawRows    int
	failWith   error
	listCalls  int
	countCalls int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		txs:  make(map[string]core.Transaction),
		cats: make(map[string]core.Category),
	}
}

func (f *fakeStore) Close() error { return nil }

func (f *fakeStore) InsertRawRows(ctx context.Context, rows []core.RawRow) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return f.failWith
	}
	f.rawRows += len(rows)
	return nil
}

func (f *fakeStore) UpsertTransactions(ctx context.Context, txs []core.Transaction) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return 0, f.failWith
	}
	inserted := 0
	for _, tx := range txs {
		if _, ok := f.txs[tx.ID]; ok {
			continue
		}
		f.txs[tx.ID] = tx
		inserted++
	}
	return inserted, nil
}

func (f *fakeStore) matches(tx core.Transaction, filter store.TransactionFilter) bool {
	if filter.Year > 0 && tx.BookingDate.Year() != filter.Year {
		return false
	}
	if filter.CategoryID != "" && tx.CategoryID != filter.CategoryID {
		return false
	}
	if filter.Search != "" {
		needle := strings.ToLower(filter.Search)
		if !strings.Contains(strings.ToLower(tx.Counterparty), needle) &&
			!strings.Contains(strings.ToLower(tx.Memo), needle) {
			return false
		}
	}
	return true
}

func (f *fakeStore) ListTransactions(ctx context.Context, filter store.TransactionFilter) ([]core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	f.listCalls++

	var out []core.Transaction
	for _, tx := range f.txs {
		if f.matches(tx, filter) {
			out = append(out, tx)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].BookingDate.Equal(out[j].BookingDate.Time) {
			return out[i].BookingDate.After(out[j].BookingDate.Time)
		}
		return out[i].ID < out[j].ID
	})

	if filter.Limit > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
		if len(out) > filter.Limit {
			out = out[:filter.Limit]
		}
	}
	return out, nil
}

func (f *fakeStore) CountTransactions(ctx context.Context, filter store.TransactionFilter) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return 0, f.failWith
	}
	f.countCalls++

	count := 0
	for _, tx := range f.txs {
		if f.matches(tx, filter) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	tx, ok := f.txs[id]
	if !ok {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	return tx, nil
}

func (f *fakeStore) AssignCategory(ctx context.Context, ids []string, categoryID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	updated := 0
	for _, id := range ids {
		tx, ok := f.txs[id]
		if !ok {
			continue
		}
		tx.CategoryID = categoryID
		f.txs[id] = tx
		updated++
	}
	return updated, nil
}

func (f *fakeStore) ListCategories(ctx context.Context) ([]core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWith != nil {
		return nil, f.failWith
	}
	var out []core.Category
	for _, c := range f.cats {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Label < out[j].Label })
	return out, nil
}

func (f *fakeStore) GetCategory(ctx context.Context, id string) (core.Category, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cats[id]
	if !ok {
		return core.Category{}, core.ErrCategoryNotFound
	}
	return c, nil
}

func (f *fakeStore) CreateCategory(ctx context.Context, c core.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cats[c.ID] = c
	return nil
}

var _ store.Store = (*fakeStore)(nil)
