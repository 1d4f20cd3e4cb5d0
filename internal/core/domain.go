package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const DefaultCurrency = "EUR"

var (
	// ErrNoHeader means the uploaded file contains no recognizable
	// ING DiBa header line. The whole import is rejected.
	ErrNoHeader = errors.New("no valid ING DiBa header found")

	// ErrNoTransactions means parsing succeeded but produced zero
	// transactions. Surfaced to the caller instead of a silent empty import.
	ErrNoTransactions = errors.New("no transactions found in export")

	ErrEmptyLabel       = errors.New("category label must not be empty")
	ErrUnknownBackend   = errors.New("unknown store backend")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrCategoryNotFound    = errors.New("category not found")
)

// Date is a calendar date without a time-of-day component.
type Date struct {
	time.Time
}

// NewDate creates a Date from year, month and day in UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ISO returns the date formatted as YYYY-MM-DD.
func (d Date) ISO() string {
	return d.Format("2006-01-02")
}

// YearMonth returns the date formatted as YYYY-MM.
func (d Date) YearMonth() string {
	return d.Format("2006-01")
}

// Transaction is one canonical ledger entry. ID is a content fingerprint
// over (booking date, amount, counterparty, memo); two rows with identical
// content collapse to the same entry regardless of source file.
type Transaction struct {
	ID           string
	BookingDate  Date
	ValueDate    Date
	Amount       decimal.Decimal // signed, negative = outflow
	Currency     string
	Counterparty string
	Memo         string
	SourceFile   string
	CategoryID   string // empty when unassigned
}

// RawRow preserves one export line verbatim for the audit trail.
// Immutable once written; duplicates across re-imports are tolerated.
type RawRow struct {
	SourceFile      string
	RowIndex        int
	Buchung         string
	Wertstellung    string
	Auftraggeber    string
	Buchungstext    string
	Verwendungszweck string
	Saldo           string
	SaldoWaehrung   string
	Betrag          string
	BetragWaehrung  string
}

// Category groups transactions for reporting. The slug identity is derived
// from the label once at creation and never regenerated on rename.
type Category struct {
	ID       string
	Label    string
	ColorHex string
	ParentID string
	Active   bool
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Label) == "" {
		return ErrEmptyLabel
	}
	return nil
}

var umlautReplacer = strings.NewReplacer("ä", "ae", "ö", "oe", "ü", "ue", "ß", "ss")

// Slugify derives a category identity from a human label: lowercase,
// German umlauts transliterated, every other non-alphanumeric run
// collapsed to a single dash.
func Slugify(label string) string {
	s := umlautReplacer.Replace(strings.ToLower(strings.TrimSpace(label)))
	var b strings.Builder
	lastDash := true // suppress leading dash
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// ParseGermanDate converts "TT.MM.JJJJ" to a Date. The short layout also
// accepts unpadded days and months ("5.3.2025").
func ParseGermanDate(s string) (Date, bool) {
	t, err := time.Parse("2.1.2006", strings.TrimSpace(s))
	if err != nil {
		return Date{}, false
	}
	return Date{Time: t}, true
}

// ParseGermanDecimal converts "1.234,56" to 1234.56: dots are thousands
// separators, the comma is the decimal separator.
func ParseGermanDecimal(s string) (decimal.Decimal, bool) {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return decimal.Decimal{}, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Decimal{}, false
	}
	return d, true
}
