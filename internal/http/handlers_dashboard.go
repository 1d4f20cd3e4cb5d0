package http

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/core"
	"github.com/jschulzedieckmann/haushaltsbuch/internal/dashboard"
	"github.com/jschulzedieckmann/haushaltsbuch/internal/store"
)

const dashboardKeyPrefix = "dashboard:"

const (
	topExpenseGroups   = 5
	recentTransactions = 10
)

type summaryResponse struct {
	Einnahmen decimal.Decimal `json:"einnahmen"`
	Ausgaben  decimal.Decimal `json:"ausgaben"`
	Netto     decimal.Decimal `json:"netto"`
	Sparquote int             `json:"sparquote"`
}

type monthResponse struct {
	Month     string          `json:"month"`
	Einnahmen decimal.Decimal `json:"einnahmen"`
	Ausgaben  decimal.Decimal `json:"ausgaben"`
}

type rollupResponse struct {
	Key    string          `json:"key"`
	Label  string          `json:"label"`
	Color  string          `json:"color"`
	Amount decimal.Decimal `json:"amount"`
	Share  float64         `json:"share"`
}

type dashboardResponse struct {
	Year        int                   `json:"year"`
	Summary     summaryResponse       `json:"summary"`
	Monthly     []monthResponse       `json:"monthly"`
	TopExpenses []rollupResponse      `json:"topExpenses"`
	Recent      []transactionResponse `json:"recent"`
	Years       []int                 `json:"years"`
}

// handleDashboard serves the aggregated year view. Transactions and
// categories are independent fetches and run concurrently.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if v := strings.TrimSpace(r.URL.Query().Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1900 || y > 9999 {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = y
	}

	key := dashboardKeyPrefix + strconv.Itoa(year)
	if cached, ok := s.dashCache.Get(key); ok {
		slog.DebugContext(r.Context(), "Dashboard cache hit", "year", year)
		writeJSON(w, http.StatusOK, cached)
		return
	}

	var (
		txs    []core.Transaction
		allTxs []core.Transaction
		cats   []core.Category
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		txs, err = s.store.ListTransactions(ctx, store.TransactionFilter{Year: year})
		return err
	})
	g.Go(func() error {
		// Year picker and recent activity work on the full ledger.
		var err error
		allTxs, err = s.store.ListTransactions(ctx, store.TransactionFilter{})
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = s.store.ListCategories(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		writeStoreError(w, r, err)
		return
	}

	catsByID := make(map[string]core.Category, len(cats))
	for _, c := range cats {
		catsByID[c.ID] = c
	}

	totals := dashboard.PeriodTotals(txs)
	resp := dashboardResponse{
		Year: year,
		Summary: summaryResponse{
			Einnahmen: totals.Inflow,
			Ausgaben:  totals.Outflow,
			Netto:     totals.Net,
			Sparquote: totals.SavingsRate,
		},
		Monthly:     make([]monthResponse, 0, 12),
		TopExpenses: make([]rollupResponse, 0, topExpenseGroups),
		Recent:      make([]transactionResponse, 0, recentTransactions),
		Years:       dashboard.AvailableYears(allTxs),
	}

	for _, b := range dashboard.MonthlySeries(txs, year) {
		resp.Monthly = append(resp.Monthly, monthResponse{
			Month: b.Label, Einnahmen: b.Inflow, Ausgaben: b.Outflow,
		})
	}
	for _, grp := range dashboard.ExpenseRollup(txs, catsByID, topExpenseGroups) {
		resp.TopExpenses = append(resp.TopExpenses, rollupResponse{
			Key: grp.Key, Label: grp.Label, Color: grp.Color, Amount: grp.Amount, Share: grp.Share,
		})
	}
	// Recent activity spans the whole ledger, not the requested year.
	for _, tx := range dashboard.Recent(allTxs, recentTransactions) {
		resp.Recent = append(resp.Recent, toTransactionResponse(tx, catsByID))
	}

	s.dashCache.Set(key, resp)
	writeJSON(w, http.StatusOK, resp)
}
