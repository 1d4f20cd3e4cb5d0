package amqp

import (
	"strings"
	"testing"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/ingest"
)

func TestImportCompletedMessageRoundTrip(t *testing.T) {
	report := ingest.Report{
		RunID:      "7f9c1a2e",
		SourceFile: "Umsatzanzeige_20250301.csv",
		Parsed:     120,
		Inserted:   100,
		Skipped:    20,
		Errors: []ingest.BatchError{
			{Table: "raw_ing_exports", Offset: 50, Err: "disk full"},
		},
	}

	body, err := NewImportCompletedMessage(report).ToJSON()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if !strings.Contains(string(body), `"runId":"7f9c1a2e"`) {
		t.Errorf("payload misses run id: %s", body)
	}

	got, err := ImportCompletedMessageFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if got.Report.Inserted != 100 || got.Report.Skipped != 20 {
		t.Errorf("report = %+v", got.Report)
	}
	if len(got.Report.Errors) != 1 || got.Report.Errors[0].Table != "raw_ing_exports" {
		t.Errorf("errors = %+v", got.Report.Errors)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp must be set")
	}
}

func TestImportCompletedMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := ImportCompletedMessageFromJSON([]byte("not json")); err == nil {
		t.Error("garbage payload must fail to unmarshal")
	}
}
