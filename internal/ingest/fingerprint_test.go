package ingest

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/core"
)

func sampleTx() core.Transaction {
	return core.Transaction{
		BookingDate:  core.NewDate(2025, 3, 1),
		Amount:       decimal.RequireFromString("-750.00"),
		Counterparty: "ACME GmbH",
		Memo:         "Miete März",
		SourceFile:   "export-a.csv",
	}
}

func TestFingerprintIgnoresProvenance(t *testing.T) {
	a := sampleTx()
	b := sampleTx()
	b.SourceFile = "export-b.csv"
	b.ValueDate = core.NewDate(2025, 3, 3)
	b.Currency = "EUR"

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("identical content from different files must share an identity")
	}
}

func TestFingerprintDependsOnContent(t *testing.T) {
	base := sampleTx()

	tests := []struct {
		name   string
		mutate func(*core.Transaction)
	}{
		{name: "amount sign", mutate: func(tx *core.Transaction) {
			tx.Amount = tx.Amount.Neg()
		}},
		{name: "booking date", mutate: func(tx *core.Transaction) {
			tx.BookingDate = core.NewDate(2025, 3, 2)
		}},
		{name: "counterparty", mutate: func(tx *core.Transaction) {
			tx.Counterparty = "ACME AG"
		}},
		{name: "memo", mutate: func(tx *core.Transaction) {
			tx.Memo = "Miete April"
		}},
		{name: "counterparty trailing space", mutate: func(tx *core.Transaction) {
			// Whitespace variants are deliberately not normalized.
			tx.Counterparty = "ACME GmbH "
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			other := sampleTx()
			tt.mutate(&other)
			if Fingerprint(base) == Fingerprint(other) {
				t.Error("mutated content must change the identity")
			}
		})
	}
}

func TestFingerprintNormalizesDecimalScale(t *testing.T) {
	a := sampleTx()
	b := sampleTx()
	b.Amount = decimal.RequireFromString("-750")

	if Fingerprint(a) != Fingerprint(b) {
		t.Error("-750.00 and -750 are the same amount and must share an identity")
	}
}
