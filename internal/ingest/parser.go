package ingest

import (
	"strings"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/core"
)

const (
	headerToken = "Buchung"
	delimiter   = ";"

	// ING exports carry nine columns but the trailing currency column is
	// occasionally dropped; eight fields is the minimum for a usable row.
	minFields = 8
)

// ParseResult holds the two parallel outputs of one parsed export file:
// verbatim rows for the audit trail and normalized ledger transactions.
type ParseResult struct {
	RawRows      []core.RawRow
	Transactions []core.Transaction
}

// Parse reads the full text of one ING DiBa CSV export. The text must
// already be decoded to UTF-8 (exports arrive as Latin-1).
//
// Everything above the header line is metadata and discarded. Malformed
// data rows are skipped silently; only a missing header is fatal and
// returns core.ErrNoHeader. Rows whose content four-tuple (booking date,
// amount, counterparty, memo) was already seen in this file are dropped.
func Parse(text, filename string) (ParseResult, error) {
	lines := splitLines(text)

	headerIdx := -1
	for i, line := range lines {
		if isHeaderLine(line) {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return ParseResult{}, core.ErrNoHeader
	}

	var res ParseResult
	seen := make(map[string]struct{})
	rowIdx := 0

	for _, line := range lines[headerIdx+1:] {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		fields := strings.Split(line, delimiter)
		if len(fields) < minFields {
			continue
		}
		for i, f := range fields {
			fields[i] = strings.TrimSpace(strings.Trim(strings.TrimSpace(f), `"`))
		}

		buchung := fields[0]
		wertstellung := fields[1]
		auftraggeber := fields[2]
		buchungstext := fields[3]
		verwendungszweck := fields[4]
		saldo := fields[5]
		saldoWaehrung := fields[6]
		betrag := fields[7]
		betragWaehrung := ""
		if len(fields) > 8 {
			betragWaehrung = fields[8]
		}

		bookingDate, ok := core.ParseGermanDate(buchung)
		if !ok {
			continue
		}
		amount, ok := core.ParseGermanDecimal(betrag)
		if !ok {
			continue
		}

		valueDate, ok := core.ParseGermanDate(wertstellung)
		if !ok {
			valueDate = bookingDate
		}

		memo := verwendungszweck
		if memo == "" {
			memo = buchungstext
		}
		currency := betragWaehrung
		if currency == "" {
			currency = core.DefaultCurrency
		}

		tx := core.Transaction{
			BookingDate:  bookingDate,
			ValueDate:    valueDate,
			Amount:       amount,
			Currency:     currency,
			Counterparty: auftraggeber,
			Memo:         memo,
			SourceFile:   filename,
		}
		tx.ID = Fingerprint(tx)

		key := contentKey(tx)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		res.RawRows = append(res.RawRows, core.RawRow{
			SourceFile:       filename,
			RowIndex:         rowIdx,
			Buchung:          buchung,
			Wertstellung:     wertstellung,
			Auftraggeber:     auftraggeber,
			Buchungstext:     buchungstext,
			Verwendungszweck: verwendungszweck,
			Saldo:            saldo,
			SaldoWaehrung:    orDefault(saldoWaehrung, core.DefaultCurrency),
			Betrag:           betrag,
			BetragWaehrung:   currency,
		})
		res.Transactions = append(res.Transactions, tx)
		rowIdx++
	}

	return res, nil
}

func splitLines(text string) []string {
	return strings.FieldsFunc(strings.ReplaceAll(text, "\r\n", "\n"), func(r rune) bool {
		return r == '\n' || r == '\r'
	})
}

func isHeaderLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, `"`)
	return strings.HasPrefix(strings.ToLower(trimmed), strings.ToLower(headerToken))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
