// Package supabase talks to a hosted Supabase project through its
// PostgREST API. It is the hosted counterpart of the sqlite backend;
// conflict handling is delegated to PostgREST's resolution preferences.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/core"
	"github.com/jschulzedieckmann/haushaltsbuch/internal/store"
)

// Client implements store.Store against /rest/v1 of a Supabase project.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func init() {
	store.Register(store.BackendSupabase, func(s store.Settings) (store.Store, error) {
		return NewClient(s.SupabaseURL, s.SupabaseKey)
	})
}

func NewClient(baseURL, apiKey string) (*Client, error) {
	if baseURL == "" || apiKey == "" {
		return nil, fmt.Errorf("supabase url and key are required")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Close satisfies store.Store; the underlying transport needs no teardown.
func (c *Client) Close() error { return nil }

type txRow struct {
	TransactionID string      `json:"transaction_id"`
	BookingDate   string      `json:"booking_date"`
	ValueDate     string      `json:"value_date"`
	Amount        json.Number `json:"amount"`
	Currency      string      `json:"currency"`
	Counterparty  string      `json:"counterparty"`
	Memo          string      `json:"memo"`
	SourceFile    string      `json:"source_file"`
	CategoryID    *string     `json:"category_id"`
}

type rawRow struct {
	SourceFile       string `json:"source_file"`
	RowIndex         int    `json:"row_index"`
	Buchung          string `json:"buchung"`
	Wertstellung     string `json:"wertstellungsdatum"`
	Auftraggeber     string `json:"auftraggeber_empfaenger"`
	Buchungstext     string `json:"buchungstext"`
	Verwendungszweck string `json:"verwendungszweck"`
	Saldo            string `json:"saldo"`
	SaldoWaehrung    string `json:"saldo_waehrung"`
	Betrag           string `json:"betrag"`
	BetragWaehrung   string `json:"betrag_waehrung"`
}

type categoryRow struct {
	CategoryID string  `json:"category_id"`
	Label      string  `json:"label"`
	ColorHex   string  `json:"color_hex"`
	ParentID   *string `json:"parent_id"`
	Active     bool    `json:"active"`
}

func (c *Client) InsertRawRows(ctx context.Context, rows []core.RawRow) error {
	payload := make([]rawRow, len(rows))
	for i, r := range rows {
		payload[i] = rawRow{
			SourceFile: r.SourceFile, RowIndex: r.RowIndex,
			Buchung: r.Buchung, Wertstellung: r.Wertstellung,
			Auftraggeber: r.Auftraggeber, Buchungstext: r.Buchungstext,
			Verwendungszweck: r.Verwendungszweck, Saldo: r.Saldo,
			SaldoWaehrung: r.SaldoWaehrung, Betrag: r.Betrag, BetragWaehrung: r.BetragWaehrung,
		}
	}
	_, err := c.do(ctx, http.MethodPost, "raw_ing_exports", nil, payload,
		"return=minimal")
	return err
}

func (c *Client) UpsertTransactions(ctx context.Context, txs []core.Transaction) (int, error) {
	payload := make([]txRow, len(txs))
	for i, t := range txs {
		payload[i] = txRow{
			TransactionID: t.ID,
			BookingDate:   t.BookingDate.ISO(),
			ValueDate:     t.ValueDate.ISO(),
			Amount:        json.Number(t.Amount.String()),
			Currency:      t.Currency,
			Counterparty:  t.Counterparty,
			Memo:          t.Memo,
			SourceFile:    t.SourceFile,
		}
	}

	// With ignore-duplicates PostgREST returns only the rows it actually
	// inserted, which is exactly the count the import report needs.
	query := url.Values{"on_conflict": {"transaction_id"}}
	body, err := c.do(ctx, http.MethodPost, "transactions", query, payload,
		"resolution=ignore-duplicates,return=representation")
	if err != nil {
		return 0, err
	}

	var inserted []txRow
	if err := json.Unmarshal(body, &inserted); err != nil {
		return 0, fmt.Errorf("decode upsert response: %w", err)
	}
	return len(inserted), nil
}

func (c *Client) ListTransactions(ctx context.Context, f store.TransactionFilter) ([]core.Transaction, error) {
	query := filterQuery(f)
	query.Set("select", "*")
	query.Set("order", "booking_date.desc,transaction_id.asc")
	if f.Limit > 0 {
		query.Set("limit", strconv.Itoa(f.Limit))
		query.Set("offset", strconv.Itoa(f.Offset))
	}

	body, err := c.do(ctx, http.MethodGet, "transactions", query, nil, "")
	if err != nil {
		return nil, err
	}

	var rows []txRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}

	out := make([]core.Transaction, 0, len(rows))
	for _, r := range rows {
		t, err := r.toTransaction()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (c *Client) CountTransactions(ctx context.Context, f store.TransactionFilter) (int, error) {
	query := filterQuery(f)
	query.Set("select", "transaction_id")
	query.Set("limit", "1")

	req, err := c.newRequest(ctx, http.MethodGet, "transactions", query, nil, "count=exact")
	if err != nil {
		return 0, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("count transactions: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return 0, restError(resp)
	}

	// Content-Range: 0-0/123
	cr := resp.Header.Get("Content-Range")
	idx := strings.LastIndex(cr, "/")
	if idx < 0 {
		return 0, fmt.Errorf("missing Content-Range header in count response")
	}
	count, err := strconv.Atoi(cr[idx+1:])
	if err != nil {
		return 0, fmt.Errorf("parse Content-Range %q: %w", cr, err)
	}
	return count, nil
}

func (c *Client) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	query := url.Values{"transaction_id": {"eq." + id}, "select": {"*"}}
	body, err := c.do(ctx, http.MethodGet, "transactions", query, nil, "")
	if err != nil {
		return core.Transaction{}, err
	}

	var rows []txRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return core.Transaction{}, fmt.Errorf("decode transaction: %w", err)
	}
	if len(rows) == 0 {
		return core.Transaction{}, core.ErrTransactionNotFound
	}
	return rows[0].toTransaction()
}

func (c *Client) AssignCategory(ctx context.Context, ids []string, categoryID string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	patch := map[string]any{"category_id": nil}
	if categoryID != "" {
		patch["category_id"] = categoryID
	}
	query := url.Values{"transaction_id": {"in.(" + strings.Join(ids, ",") + ")"}}

	body, err := c.do(ctx, http.MethodPatch, "transactions", query, patch,
		"return=representation")
	if err != nil {
		return 0, err
	}

	var updated []txRow
	if err := json.Unmarshal(body, &updated); err != nil {
		return 0, fmt.Errorf("decode patch response: %w", err)
	}
	return len(updated), nil
}

func (c *Client) ListCategories(ctx context.Context) ([]core.Category, error) {
	query := url.Values{"active": {"eq.true"}, "order": {"label.asc"}, "select": {"*"}}
	body, err := c.do(ctx, http.MethodGet, "categories", query, nil, "")
	if err != nil {
		return nil, err
	}

	var rows []categoryRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode categories: %w", err)
	}

	out := make([]core.Category, len(rows))
	for i, r := range rows {
		out[i] = r.toCategory()
	}
	return out, nil
}

func (c *Client) GetCategory(ctx context.Context, id string) (core.Category, error) {
	query := url.Values{"category_id": {"eq." + id}, "select": {"*"}}
	body, err := c.do(ctx, http.MethodGet, "categories", query, nil, "")
	if err != nil {
		return core.Category{}, err
	}

	var rows []categoryRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return core.Category{}, fmt.Errorf("decode category: %w", err)
	}
	if len(rows) == 0 {
		return core.Category{}, core.ErrCategoryNotFound
	}
	return rows[0].toCategory(), nil
}

func (c *Client) CreateCategory(ctx context.Context, cat core.Category) error {
	row := categoryRow{
		CategoryID: cat.ID,
		Label:      cat.Label,
		ColorHex:   cat.ColorHex,
		Active:     cat.Active,
	}
	if cat.ParentID != "" {
		row.ParentID = &cat.ParentID
	}
	_, err := c.do(ctx, http.MethodPost, "categories", nil, []categoryRow{row},
		"return=minimal")
	return err
}

func filterQuery(f store.TransactionFilter) url.Values {
	query := url.Values{}
	if f.Year > 0 {
		query.Add("booking_date", fmt.Sprintf("gte.%04d-01-01", f.Year))
		query.Add("booking_date", fmt.Sprintf("lte.%04d-12-31", f.Year))
	}
	if f.CategoryID != "" {
		query.Set("category_id", "eq."+f.CategoryID)
	}
	if f.Search != "" {
		query.Set("or", fmt.Sprintf("(counterparty.ilike.*%s*,memo.ilike.*%s*)", f.Search, f.Search))
	}
	return query
}

func (c *Client) newRequest(ctx context.Context, method, table string, query url.Values, payload any, prefer string) (*http.Request, error) {
	endpoint := c.baseURL + "/rest/v1/" + table
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var body io.Reader
	if payload != nil {
		buf, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal %s payload: %w", table, err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", table, err)
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, table string, query url.Values, payload any, prefer string) ([]byte, error) {
	req, err := c.newRequest(ctx, method, table, query, payload, prefer)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, table, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, restError(resp)
	}
	return io.ReadAll(resp.Body)
}

func restError(resp *http.Response) error {
	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("supabase %s: status %d: %s", resp.Request.URL.Path, resp.StatusCode, strings.TrimSpace(string(msg)))
}

func (r txRow) toTransaction() (core.Transaction, error) {
	booking, err := time.Parse("2006-01-02", r.BookingDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("booking date of %s: %w", r.TransactionID, err)
	}
	value := booking
	if r.ValueDate != "" {
		if value, err = time.Parse("2006-01-02", r.ValueDate); err != nil {
			return core.Transaction{}, fmt.Errorf("value date of %s: %w", r.TransactionID, err)
		}
	}
	amount, err := decimal.NewFromString(r.Amount.String())
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount of %s: %w", r.TransactionID, err)
	}

	t := core.Transaction{
		ID:           r.TransactionID,
		BookingDate:  core.Date{Time: booking},
		ValueDate:    core.Date{Time: value},
		Amount:       amount,
		Currency:     r.Currency,
		Counterparty: r.Counterparty,
		Memo:         r.Memo,
		SourceFile:   r.SourceFile,
	}
	if r.CategoryID != nil {
		t.CategoryID = *r.CategoryID
	}
	return t, nil
}

func (r categoryRow) toCategory() core.Category {
	c := core.Category{
		ID:       r.CategoryID,
		Label:    r.Label,
		ColorHex: r.ColorHex,
		Active:   r.Active,
	}
	if r.ParentID != nil {
		c.ParentID = *r.ParentID
	}
	return c
}
