package dashboard

import (
	"fmt"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/core"
)

func tx(iso string, amount string) core.Transaction {
	var y, m, d int
	if _, err := fmt.Sscanf(iso, "%d-%d-%d", &y, &m, &d); err != nil {
		panic(err)
	}
	t := core.Transaction{
		BookingDate: core.NewDate(y, m, d),
		Amount:      decimal.RequireFromString(amount),
		Currency:    core.DefaultCurrency,
	}
	t.ID = iso + "/" + amount
	return t
}

func TestPeriodTotals(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-01-05", "2500.00"),
		tx("2025-01-07", "-750.00"),
		tx("2025-02-03", "-12.30"),
		tx("2025-02-20", "100.55"),
	}

	s := PeriodTotals(txs)
	if s.Inflow.String() != "2600.55" {
		t.Errorf("inflow = %s, want 2600.55", s.Inflow)
	}
	if s.Outflow.String() != "762.3" {
		t.Errorf("outflow = %s, want 762.3", s.Outflow)
	}
	// Sum invariant: net equals inflow - outflow equals the raw signed sum.
	if !s.Net.Equal(s.Inflow.Sub(s.Outflow)) {
		t.Errorf("net %s != inflow-outflow %s", s.Net, s.Inflow.Sub(s.Outflow))
	}
	raw := decimal.Zero
	for _, x := range txs {
		raw = raw.Add(x.Amount)
	}
	if s.Net.Sub(raw).Abs().GreaterThan(decimal.RequireFromString("0.01")) {
		t.Errorf("net %s deviates from raw sum %s", s.Net, raw)
	}
	// 1838.25 / 2600.55 * 100 = 70.68... -> 71
	if s.SavingsRate != 71 {
		t.Errorf("savings rate = %d, want 71", s.SavingsRate)
	}
}

func TestPeriodTotalsNoInflow(t *testing.T) {
	s := PeriodTotals([]core.Transaction{tx("2025-01-05", "-10.00")})
	if s.SavingsRate != 0 {
		t.Errorf("savings rate without inflow = %d, want 0", s.SavingsRate)
	}
	if !s.Inflow.IsZero() {
		t.Errorf("inflow = %s, want 0", s.Inflow)
	}
}

func TestPeriodTotalsEmpty(t *testing.T) {
	s := PeriodTotals(nil)
	if !s.Inflow.IsZero() || !s.Outflow.IsZero() || !s.Net.IsZero() || s.SavingsRate != 0 {
		t.Errorf("empty totals = %+v, want all zero", s)
	}
}

func TestMonthlySeriesAlwaysTwelveEntries(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-03-01", "-750.00"),
		tx("2025-03-15", "2500.00"),
		tx("2025-11-02", "-9.99"),
		tx("2024-03-01", "-999.99"), // other year, must be ignored
	}

	series := MonthlySeries(txs, 2025)
	if len(series) != 12 {
		t.Fatalf("series has %d entries, want 12", len(series))
	}
	if series[0].Label != "Jan" || series[11].Label != "Dez" {
		t.Errorf("labels = %s..%s, want Jan..Dez", series[0].Label, series[11].Label)
	}
	if series[2].Inflow.String() != "2500" || series[2].Outflow.String() != "750" {
		t.Errorf("march = %s in / %s out, want 2500 / 750", series[2].Inflow, series[2].Outflow)
	}
	if series[10].Outflow.String() != "9.99" {
		t.Errorf("november outflow = %s, want 9.99", series[10].Outflow)
	}
	for i, b := range series {
		if i == 2 || i == 10 {
			continue
		}
		if !b.Inflow.IsZero() || !b.Outflow.IsZero() {
			t.Errorf("month %s reports %s/%s, want zeros", b.Label, b.Inflow, b.Outflow)
		}
	}
}

func withCategory(t core.Transaction, catID string) core.Transaction {
	t.CategoryID = catID
	return t
}

func withCounterparty(t core.Transaction, cp string) core.Transaction {
	t.Counterparty = cp
	t.ID += "/" + cp
	return t
}

func TestExpenseRollup(t *testing.T) {
	cats := map[string]core.Category{
		"miete": {ID: "miete", Label: "Miete", ColorHex: "#112233"},
	}
	txs := []core.Transaction{
		withCategory(tx("2025-03-01", "-750.00"), "miete"),
		withCounterparty(tx("2025-03-02", "-42.17"), "REWE Markt"),
		withCounterparty(tx("2025-03-09", "-17.83"), "REWE Markt"),
		tx("2025-03-10", "-40.00"), // no category, no counterparty
		tx("2025-03-11", "2500.00"), // inflow, excluded
	}

	groups := ExpenseRollup(txs, cats, 5)
	if len(groups) != 3 {
		t.Fatalf("got %d groups, want 3", len(groups))
	}

	if groups[0].Label != "Miete" || groups[0].Amount.String() != "750" {
		t.Errorf("top group = %s/%s, want Miete/750", groups[0].Label, groups[0].Amount)
	}
	if groups[0].Color != "#112233" {
		t.Errorf("category color = %s, want #112233", groups[0].Color)
	}
	if groups[1].Label != "REWE Markt" || groups[1].Amount.String() != "60" {
		t.Errorf("second group = %s/%s, want REWE Markt/60", groups[1].Label, groups[1].Amount)
	}
	if groups[2].Label != FallbackLabel {
		t.Errorf("third group = %s, want %s", groups[2].Label, FallbackLabel)
	}

	// Uncolored groups cycle through the palette in discovery order.
	if groups[1].Color != Palette[0] || groups[2].Color != Palette[1] {
		t.Errorf("palette colors = %s, %s; want %s, %s",
			groups[1].Color, groups[2].Color, Palette[0], Palette[1])
	}

	// Shares sum to 100 percent.
	sum := 0.0
	for _, g := range groups {
		sum += g.Share
		if g.Amount.GreaterThan(decimal.RequireFromString("850")) {
			t.Errorf("group %s exceeds the grand total", g.Label)
		}
	}
	if math.Abs(sum-100) > 0.01 {
		t.Errorf("share sum = %f, want 100", sum)
	}
}

func TestExpenseRollupDeterministicColors(t *testing.T) {
	txs := []core.Transaction{
		withCounterparty(tx("2025-03-02", "-10.00"), "Alpha"),
		withCounterparty(tx("2025-03-03", "-20.00"), "Beta"),
		withCounterparty(tx("2025-03-04", "-30.00"), "Gamma"),
	}
	first := ExpenseRollup(txs, nil, 10)
	for i := 0; i < 5; i++ {
		again := ExpenseRollup(txs, nil, 10)
		for j := range first {
			if first[j].Color != again[j].Color || first[j].Key != again[j].Key {
				t.Fatalf("run %d differs: %+v vs %+v", i, first[j], again[j])
			}
		}
	}
}

func TestExpenseRollupTruncatesCounterparty(t *testing.T) {
	long := "Wohnungsbaugesellschaft Berlin-Mitte mbH"
	txs := []core.Transaction{withCounterparty(tx("2025-03-02", "-10.00"), long)}

	groups := ExpenseRollup(txs, nil, 5)
	if len(groups) != 1 {
		t.Fatalf("got %d groups, want 1", len(groups))
	}
	if got := groups[0].Key; len([]rune(got)) != 22 {
		t.Errorf("key %q has %d runes, want 22", got, len([]rune(got)))
	}
}

func TestExpenseRollupLimit(t *testing.T) {
	var txs []core.Transaction
	for i := 0; i < 8; i++ {
		txs = append(txs, withCounterparty(tx("2025-03-02", fmt.Sprintf("-%d.00", (i+1)*10)), fmt.Sprintf("Firma %d", i)))
	}
	groups := ExpenseRollup(txs, nil, 5)
	if len(groups) != 5 {
		t.Fatalf("got %d groups, want limit 5", len(groups))
	}
	if groups[0].Amount.String() != "80" {
		t.Errorf("top amount = %s, want 80", groups[0].Amount)
	}
}

func TestExpenseRollupZeroTotal(t *testing.T) {
	groups := ExpenseRollup([]core.Transaction{tx("2025-01-01", "500.00")}, nil, 5)
	if len(groups) != 0 {
		t.Errorf("inflow-only rollup = %d groups, want none", len(groups))
	}
}

func TestRecentOrdering(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-01-05", "-10.00"),
		tx("2025-03-01", "-20.00"),
		tx("2025-02-11", "-30.00"),
		tx("2024-12-31", "-40.00"),
	}

	recent := Recent(txs, 3)
	if len(recent) != 3 {
		t.Fatalf("got %d entries, want 3", len(recent))
	}
	want := []string{"2025-03-01", "2025-02-11", "2025-01-05"}
	for i, w := range want {
		if recent[i].BookingDate.ISO() != w {
			t.Errorf("recent[%d] = %s, want %s", i, recent[i].BookingDate.ISO(), w)
		}
	}
}

func TestRecentTieBreakByID(t *testing.T) {
	a := tx("2025-03-01", "-20.00")
	a.ID = "bbb"
	b := tx("2025-03-01", "-30.00")
	b.ID = "aaa"

	recent := Recent([]core.Transaction{a, b}, 2)
	if recent[0].ID != "aaa" || recent[1].ID != "bbb" {
		t.Errorf("tie order = %s, %s; want aaa, bbb", recent[0].ID, recent[1].ID)
	}
}

func TestAvailableYears(t *testing.T) {
	txs := []core.Transaction{
		tx("2023-06-01", "-1.00"),
		tx("2025-01-01", "-1.00"), // 2024 has no data but must still appear
	}
	years := AvailableYears(txs)
	want := []int{2025, 2024, 2023}
	if len(years) != len(want) {
		t.Fatalf("got %v, want %v", years, want)
	}
	for i := range want {
		if years[i] != want[i] {
			t.Fatalf("got %v, want %v", years, want)
		}
	}
	if AvailableYears(nil) != nil {
		t.Error("no transactions must yield no years")
	}
}

func TestMonths(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-03-01", "-1.00"),
		tx("2025-03-20", "-2.00"),
		tx("2025-01-05", "-3.00"),
		tx("2024-12-31", "-4.00"),
	}
	months := Months(txs)
	want := []string{"2025-03", "2025-01", "2024-12"}
	if len(months) != len(want) {
		t.Fatalf("got %v, want %v", months, want)
	}
	for i := range want {
		if months[i] != want[i] {
			t.Fatalf("got %v, want %v", months, want)
		}
	}
}

func TestCategoryMonthlySeries(t *testing.T) {
	txs := []core.Transaction{
		tx("2025-04-01", "-100.00"),
		tx("2025-04-20", "-50.00"),
	}
	series := CategoryMonthlySeries(txs)
	if len(series) != 12 {
		t.Fatalf("series has %d entries, want 12", len(series))
	}
	if series[3].Outflow.String() != "150" {
		t.Errorf("april = %s, want 150", series[3].Outflow)
	}
}
