// Package dashboard turns flat transaction lists into the derived views
// shown on the dashboard. Everything here is a pure function of its
// inputs; fetching the transactions is the caller's job.
package dashboard

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/core"
)

// Palette cycles through these colors for rollup groups that carry no
// category color of their own.
var Palette = []string{
	"#4ade80", "#60a5fa", "#f97316", "#a78bfa",
	"#fb7185", "#fbbf24", "#34d399", "#f472b6",
}

// FallbackLabel groups expenses that have neither a category nor a
// counterparty.
const FallbackLabel = "Sonstiges"

// DefaultColor marks transactions without a category in listings.
const DefaultColor = "#9CA3AF"

var monthLabels = [12]string{"Jan", "Feb", "Mär", "Apr", "Mai", "Jun", "Jul", "Aug", "Sep", "Okt", "Nov", "Dez"}

// counterpartyKeyLen bounds counterparty-derived rollup keys so long
// SEPA counterparty lines collapse into readable groups.
const counterpartyKeyLen = 22

var hundred = decimal.NewFromInt(100)

// Summary holds the period totals. Sums are computed exactly and rounded
// to two places once, here; callers must not re-round intermediate values.
type Summary struct {
	Inflow      decimal.Decimal
	Outflow     decimal.Decimal // magnitude of all negative amounts
	Net         decimal.Decimal
	SavingsRate int // round(net / inflow * 100), 0 without inflow
}

// PeriodTotals sums the given transactions into inflow, outflow and net.
func PeriodTotals(txs []core.Transaction) Summary {
	inflow := decimal.Zero
	outflow := decimal.Zero
	for _, tx := range txs {
		if tx.Amount.IsPositive() {
			inflow = inflow.Add(tx.Amount)
		} else {
			outflow = outflow.Add(tx.Amount.Abs())
		}
	}
	net := inflow.Sub(outflow)

	rate := 0
	if inflow.IsPositive() {
		rate = int(net.Div(inflow).Mul(hundred).Round(0).IntPart())
	}

	return Summary{
		Inflow:      inflow.Round(2),
		Outflow:     outflow.Round(2),
		Net:         net.Round(2),
		SavingsRate: rate,
	}
}

// MonthBucket is one calendar month of the cashflow series.
type MonthBucket struct {
	Label   string
	Inflow  decimal.Decimal
	Outflow decimal.Decimal
}

// MonthlySeries partitions transactions of one calendar year into twelve
// buckets. Months without transactions report zero, never absent.
func MonthlySeries(txs []core.Transaction, year int) []MonthBucket {
	series := make([]MonthBucket, 12)
	for i := range series {
		series[i] = MonthBucket{Label: monthLabels[i], Inflow: decimal.Zero, Outflow: decimal.Zero}
	}
	for _, tx := range txs {
		if tx.BookingDate.Year() != year {
			continue
		}
		m := int(tx.BookingDate.Month()) - 1
		if tx.Amount.IsPositive() {
			series[m].Inflow = series[m].Inflow.Add(tx.Amount)
		} else {
			series[m].Outflow = series[m].Outflow.Add(tx.Amount.Abs())
		}
	}
	for i := range series {
		series[i].Inflow = series[i].Inflow.Round(2)
		series[i].Outflow = series[i].Outflow.Round(2)
	}
	return series
}

// Rollup is one expense group: a category, a counterparty, or the
// fallback bucket.
type Rollup struct {
	Key    string
	Label  string
	Color  string
	Amount decimal.Decimal
	Share  float64 // percent of the summed group amounts
}

// rollupKey tags its origin so a category slug and a coincidentally
// identical truncated counterparty never collide in one bucket.
type rollupKey struct {
	kind keyKind
	id   string
}

type keyKind int

const (
	keyCategory keyKind = iota
	keyCounterparty
	keyFallback
)

// ExpenseRollup groups negative-amount transactions by category when
// assigned, else by truncated counterparty, else into the fallback
// bucket. Groups without a category color get the next palette color in
// discovery order; the cycling counter lives inside this call, so
// repeated invocations over the same input are deterministic.
//
// Groups are sorted by descending amount (ties keep encounter order) and
// truncated to limit.
func ExpenseRollup(txs []core.Transaction, cats map[string]core.Category, limit int) []Rollup {
	buckets := make(map[rollupKey]*Rollup)
	var order []rollupKey
	colorIdx := 0

	for _, tx := range txs {
		if !tx.Amount.IsNegative() {
			continue
		}

		key, label := classify(tx, cats)
		b, ok := buckets[key]
		if !ok {
			color := ""
			if key.kind == keyCategory {
				if cat, found := cats[key.id]; found && cat.ColorHex != "" {
					color = cat.ColorHex
				}
			}
			if color == "" {
				color = Palette[colorIdx%len(Palette)]
				colorIdx++
			}
			b = &Rollup{Key: key.id, Label: label, Color: color, Amount: decimal.Zero}
			buckets[key] = b
			order = append(order, key)
		}
		b.Amount = b.Amount.Add(tx.Amount.Abs())
	}

	groups := make([]Rollup, 0, len(order))
	total := decimal.Zero
	for _, key := range order {
		groups = append(groups, *buckets[key])
		total = total.Add(buckets[key].Amount)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Amount.GreaterThan(groups[j].Amount)
	})
	if limit > 0 && len(groups) > limit {
		groups = groups[:limit]
	}

	for i := range groups {
		if total.IsPositive() {
			groups[i].Share, _ = groups[i].Amount.Div(total).Mul(hundred).Float64()
		}
		groups[i].Amount = groups[i].Amount.Round(2)
	}
	return groups
}

func classify(tx core.Transaction, cats map[string]core.Category) (rollupKey, string) {
	if tx.CategoryID != "" {
		label := tx.CategoryID
		if cat, ok := cats[tx.CategoryID]; ok {
			label = cat.Label
		}
		return rollupKey{kind: keyCategory, id: tx.CategoryID}, label
	}
	if cp := truncateRunes(tx.Counterparty, counterpartyKeyLen); cp != "" {
		return rollupKey{kind: keyCounterparty, id: cp}, cp
	}
	return rollupKey{kind: keyFallback, id: FallbackLabel}, FallbackLabel
}

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) > n {
		return string(r[:n])
	}
	return s
}

// Recent returns the k most recent transactions by booking date,
// newest first. Date ties break on the identity so the order is stable
// regardless of store row order.
func Recent(txs []core.Transaction, k int) []core.Transaction {
	out := make([]core.Transaction, len(txs))
	copy(out, txs)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].BookingDate.Equal(out[j].BookingDate.Time) {
			return out[i].BookingDate.After(out[j].BookingDate.Time)
		}
		return out[i].ID < out[j].ID
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// AvailableYears lists every calendar year between the oldest and newest
// booking date, newest first. Years without data in between stay listed.
func AvailableYears(txs []core.Transaction) []int {
	if len(txs) == 0 {
		return nil
	}
	minYear := txs[0].BookingDate.Year()
	maxYear := minYear
	for _, tx := range txs[1:] {
		y := tx.BookingDate.Year()
		if y < minYear {
			minYear = y
		}
		if y > maxYear {
			maxYear = y
		}
	}
	years := make([]int, 0, maxYear-minYear+1)
	for y := maxYear; y >= minYear; y-- {
		years = append(years, y)
	}
	return years
}

// CategoryMonthlySeries buckets the absolute amounts of one category's
// transactions into twelve months, for the category detail view.
func CategoryMonthlySeries(txs []core.Transaction) []MonthBucket {
	series := make([]MonthBucket, 12)
	for i := range series {
		series[i] = MonthBucket{Label: monthLabels[i], Inflow: decimal.Zero, Outflow: decimal.Zero}
	}
	for _, tx := range txs {
		m := int(tx.BookingDate.Month()) - 1
		series[m].Outflow = series[m].Outflow.Add(tx.Amount.Abs())
	}
	for i := range series {
		series[i].Outflow = series[i].Outflow.Round(2)
	}
	return series
}

// Months extracts the distinct YYYY-MM values with bookings, newest first.
func Months(txs []core.Transaction) []string {
	seen := make(map[string]struct{})
	var months []string
	for _, tx := range txs {
		ym := tx.BookingDate.YearMonth()
		if _, ok := seen[ym]; ok {
			continue
		}
		seen[ym] = struct{}{}
		months = append(months, ym)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(months)))
	return months
}
