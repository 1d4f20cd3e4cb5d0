package http

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/core"
	"github.com/jschulzedieckmann/haushaltsbuch/internal/dashboard"
	"github.com/jschulzedieckmann/haushaltsbuch/internal/store"
)

// pageSize matches the listing page length of the web UI.
const pageSize = 50

type transactionResponse struct {
	ID            string          `json:"id"`
	BookingDate   string          `json:"bookingDate"`
	ValueDate     string          `json:"valueDate"`
	Amount        decimal.Decimal `json:"amount"`
	Currency      string          `json:"currency"`
	Counterparty  string          `json:"counterparty"`
	Memo          string          `json:"memo"`
	SourceFile    string          `json:"sourceFile"`
	CategoryID    string          `json:"categoryId,omitempty"`
	CategoryLabel string          `json:"categoryLabel,omitempty"`
	CategoryColor string          `json:"categoryColor,omitempty"`
}

func toTransactionResponse(tx core.Transaction, cats map[string]core.Category) transactionResponse {
	resp := transactionResponse{
		ID:           tx.ID,
		BookingDate:  tx.BookingDate.ISO(),
		ValueDate:    tx.ValueDate.ISO(),
		Amount:       tx.Amount,
		Currency:     tx.Currency,
		Counterparty: tx.Counterparty,
		Memo:         tx.Memo,
		SourceFile:   tx.SourceFile,
		CategoryID:   tx.CategoryID,
	}
	if tx.CategoryID != "" {
		resp.CategoryColor = dashboard.DefaultColor
		if cat, ok := cats[tx.CategoryID]; ok {
			resp.CategoryLabel = cat.Label
			if cat.ColorHex != "" {
				resp.CategoryColor = cat.ColorHex
			}
		}
	}
	return resp
}

type transactionListResponse struct {
	Transactions []transactionResponse `json:"transactions"`
	Page         int                   `json:"page"`
	PageSize     int                   `json:"pageSize"`
	Total        int                   `json:"total"`
}

// handleListTransactions serves the paginated listing with optional
// free-text search over counterparty and memo.
func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 1
	if v := strings.TrimSpace(q.Get("page")); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 1 {
			writeError(w, http.StatusBadRequest, "invalid page")
			return
		}
		page = p
	}

	filter := store.TransactionFilter{
		Search:     strings.TrimSpace(q.Get("search")),
		CategoryID: strings.TrimSpace(q.Get("category")),
		Limit:      pageSize,
		Offset:     (page - 1) * pageSize,
	}
	if v := strings.TrimSpace(q.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year")
			return
		}
		filter.Year = y
	}

	var (
		txs   []core.Transaction
		total int
		cats  []core.Category
	)
	txs, err := s.store.ListTransactions(r.Context(), filter)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if total, err = s.store.CountTransactions(r.Context(), filter); err != nil {
		writeStoreError(w, r, err)
		return
	}
	if cats, err = s.store.ListCategories(r.Context()); err != nil {
		writeStoreError(w, r, err)
		return
	}

	catsByID := make(map[string]core.Category, len(cats))
	for _, c := range cats {
		catsByID[c.ID] = c
	}

	resp := transactionListResponse{
		Transactions: make([]transactionResponse, 0, len(txs)),
		Page:         page,
		PageSize:     pageSize,
		Total:        total,
	}
	for _, tx := range txs {
		resp.Transactions = append(resp.Transactions, toTransactionResponse(tx, catsByID))
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleMonths lists the distinct YYYY-MM values with bookings, newest
// first, for the month picker.
func (s *Server) handleMonths(w http.ResponseWriter, r *http.Request) {
	txs, err := s.store.ListTransactions(r.Context(), store.TransactionFilter{})
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	months := dashboard.Months(txs)
	if months == nil {
		months = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"months": months})
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	tx, err := s.store.GetTransaction(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx, nil))
}

type assignRequest struct {
	CategoryID string `json:"categoryId"`
}

// handleAssignCategory sets or clears the category of one transaction.
// An empty categoryId clears the assignment.
func (s *Server) handleAssignCategory(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := r.PathValue("id")
	if req.CategoryID != "" {
		if _, err := s.store.GetCategory(r.Context(), req.CategoryID); err != nil {
			writeStoreError(w, r, err)
			return
		}
	}

	n, err := s.store.AssignCategory(r.Context(), []string{id}, req.CategoryID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	if n == 0 {
		writeError(w, http.StatusNotFound, "transaction not found")
		return
	}

	s.dashCache.InvalidatePrefix(dashboardKeyPrefix)

	tx, err := s.store.GetTransaction(r.Context(), id)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(tx, nil))
}

type bulkAssignRequest struct {
	TransactionIDs []string `json:"transactionIds"`
	CategoryID     string   `json:"categoryId"`
}

type bulkAssignResponse struct {
	Updated int `json:"updated"`
}

func (s *Server) handleBulkAssign(w http.ResponseWriter, r *http.Request) {
	var req bulkAssignRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.TransactionIDs) == 0 {
		writeError(w, http.StatusBadRequest, "transactionIds must not be empty")
		return
	}

	if req.CategoryID != "" {
		if _, err := s.store.GetCategory(r.Context(), req.CategoryID); err != nil {
			writeStoreError(w, r, err)
			return
		}
	}

	n, err := s.store.AssignCategory(r.Context(), req.TransactionIDs, req.CategoryID)
	if err != nil {
		writeStoreError(w, r, err)
		return
	}

	s.dashCache.InvalidatePrefix(dashboardKeyPrefix)
	writeJSON(w, http.StatusOK, bulkAssignResponse{Updated: n})
}
