package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/core"
	"github.com/jschulzedieckmann/haushaltsbuch/internal/dashboard"
	"github.com/jschulzedieckmann/haushaltsbuch/internal/store"
)

type categoryResponse struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	ColorHex string `json:"color"`
	ParentID string `json:"parentId,omitempty"`
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{ID: c.ID, Label: c.Label, ColorHex: c.ColorHex, ParentID: c.ParentID}
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.ListCategories(r.Context())
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	resp := make([]categoryResponse, 0, len(cats))
	for _, c := range cats {
		resp = append(resp, toCategoryResponse(c))
	}
	writeJSON(w, http.StatusOK, map[string][]categoryResponse{"categories": resp})
}

type createCategoryRequest struct {
	Label    string `json:"label"`
	ColorHex string `json:"color"`
	ParentID string `json:"parentId"`
}

// handleCreateCategory creates a category whose identity is the slug of
// its label.
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	color := strings.TrimSpace(req.ColorHex)
	if color == "" {
		color = dashboard.DefaultColor
	}

	cat := core.Category{
		ID:       core.Slugify(req.Label),
		Label:    strings.TrimSpace(req.Label),
		ColorHex: color,
		ParentID: strings.TrimSpace(req.ParentID),
		Active:   true,
	}
	if err := cat.Validate(); err != nil {
		if errors.Is(err, core.ErrEmptyLabel) {
			writeError(w, http.StatusUnprocessableEntity, "label must not be empty")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if _, err := s.store.GetCategory(r.Context(), cat.ID); err == nil {
		writeError(w, http.StatusConflict, "a category with this label already exists")
		return
	} else if !errors.Is(err, core.ErrCategoryNotFound) {
		writeStoreError(w, r, err)
		return
	}

	if err := s.store.CreateCategory(r.Context(), cat); err != nil {
		writeStoreError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toCategoryResponse(cat))
}

type categoryDetailResponse struct {
	Category     categoryResponse      `json:"category"`
	Total        decimal.Decimal       `json:"total"`
	Monthly      []monthResponse       `json:"monthly"`
	Transactions []transactionResponse `json:"transactions"`
}

// handleCategoryDetail serves one category together with its spending
// profile. Category and transactions are fetched concurrently.
func (s *Server) handleCategoryDetail(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var (
		cat core.Category
		txs []core.Transaction
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		cat, err = s.store.GetCategory(ctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = s.store.ListTransactions(ctx, store.TransactionFilter{CategoryID: id})
		return err
	})
	if err := g.Wait(); err != nil {
		writeStoreError(w, r, err)
		return
	}

	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount.Abs())
	}

	resp := categoryDetailResponse{
		Category:     toCategoryResponse(cat),
		Total:        total.Round(2),
		Monthly:      make([]monthResponse, 0, 12),
		Transactions: make([]transactionResponse, 0, len(txs)),
	}
	for _, b := range dashboard.CategoryMonthlySeries(txs) {
		resp.Monthly = append(resp.Monthly, monthResponse{
			Month: b.Label, Einnahmen: b.Inflow, Ausgaben: b.Outflow,
		})
	}
	cats := map[string]core.Category{cat.ID: cat}
	for _, tx := range txs {
		resp.Transactions = append(resp.Transactions, toTransactionResponse(tx, cats))
	}
	writeJSON(w, http.StatusOK, resp)
}
