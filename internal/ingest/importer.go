package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/core"
	"github.com/jschulzedieckmann/haushaltsbuch/internal/store"
)

// DefaultBatchSize bounds how many rows go into a single store write.
const DefaultBatchSize = 50

// BatchError records one failed store write. The offset is the index of
// the batch's first row in the parsed list.
type BatchError struct {
	Table  string `json:"table"`
	Offset int    `json:"offset"`
	Err    string `json:"error"`
}

func (e BatchError) Error() string {
	return fmt.Sprintf("%s batch at offset %d: %s", e.Table, e.Offset, e.Err)
}

// Report summarizes one ingestion run.
type Report struct {
	RunID      string       `json:"runId"`
	SourceFile string       `json:"filename"`
	Parsed     int          `json:"parsed"`
	Inserted   int          `json:"inserted"`
	Skipped    int          `json:"skipped"`
	Errors     []BatchError `json:"errors"`
}

// EventPublisher notifies downstream consumers about a finished import.
type EventPublisher interface {
	PublishImportCompleted(ctx context.Context, rep Report) error
}

// Importer drives parse → dedupe → batched persistence for one export
// file per call. Batches are written sequentially; a failed batch is
// recorded and the remaining batches are still attempted.
type Importer struct {
	ledger    store.LedgerWriter
	events    EventPublisher // optional
	batchSize int
}

func NewImporter(ledger store.LedgerWriter, events EventPublisher, batchSize int) *Importer {
	if batchSize < 1 {
		batchSize = DefaultBatchSize
	}
	return &Importer{ledger: ledger, events: events, batchSize: batchSize}
}

// Import parses the decoded export text and persists raw rows and
// transactions. It fails outright only when the file has no recognizable
// header (core.ErrNoHeader, nothing persisted) or yields zero
// transactions (core.ErrNoTransactions); store failures are collected
// into the report instead.
func (im *Importer) Import(ctx context.Context, text, filename string) (Report, error) {
	rep := Report{RunID: uuid.NewString(), SourceFile: filename}

	res, err := Parse(text, filename)
	if err != nil {
		return rep, err
	}
	if len(res.Transactions) == 0 {
		return rep, core.ErrNoTransactions
	}
	rep.Parsed = len(res.Transactions)

	// Audit trail first: plain inserts, duplicates tolerated.
	for offset := 0; offset < len(res.RawRows); offset += im.batchSize {
		batch := res.RawRows[offset:min(offset+im.batchSize, len(res.RawRows))]
		if err := im.ledger.InsertRawRows(ctx, batch); err != nil {
			rep.Errors = append(rep.Errors, BatchError{Table: "raw_ing_exports", Offset: offset, Err: err.Error()})
			slog.WarnContext(ctx, "Raw row batch failed",
				"source_file", filename, "offset", offset, "size", len(batch), "error", err)
		}
	}

	attempted := 0
	for offset := 0; offset < len(res.Transactions); offset += im.batchSize {
		batch := res.Transactions[offset:min(offset+im.batchSize, len(res.Transactions))]
		inserted, err := im.ledger.UpsertTransactions(ctx, batch)
		if err != nil {
			rep.Errors = append(rep.Errors, BatchError{Table: "transactions", Offset: offset, Err: err.Error()})
			slog.WarnContext(ctx, "Transaction batch failed",
				"source_file", filename, "offset", offset, "size", len(batch), "error", err)
			continue
		}
		attempted += len(batch)
		rep.Inserted += inserted
	}
	rep.Skipped = attempted - rep.Inserted

	slog.InfoContext(ctx, "Import finished",
		"run_id", rep.RunID,
		"source_file", filename,
		"parsed", rep.Parsed,
		"inserted", rep.Inserted,
		"skipped", rep.Skipped,
		"errors", len(rep.Errors))

	if im.events != nil {
		if err := im.events.PublishImportCompleted(ctx, rep); err != nil {
			slog.WarnContext(ctx, "Failed to publish import event", "run_id", rep.RunID, "error", err)
		}
	}

	return rep, nil
}
