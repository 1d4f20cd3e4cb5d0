// Command ingest imports ING CSV exports from the command line against
// the configured store.
//
//	ingest [-quiet] file.csv [file2.csv ...]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/encoding/charmap"

	"github.com/jschulzedieckmann/haushaltsbuch/internal/cli"
	"github.com/jschulzedieckmann/haushaltsbuch/internal/core"
	"github.com/jschulzedieckmann/haushaltsbuch/internal/ingest"
)

func main() {
	quiet := flag.Bool("quiet", false, "only print the per-file summary lines")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: ingest [-quiet] file.csv [file2.csv ...]")
		os.Exit(2)
	}

	logger := cli.SetupLogger()
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig(logger)

	st := cli.OpenStore(logger, cfg)
	defer st.Close()

	events := cli.NewEventPublisher(logger, cfg)
	importer := ingest.NewImporter(st, events, cfg.ImportBatchSize)

	ctx := context.Background()
	failed := 0
	for _, path := range flag.Args() {
		if err := importFile(ctx, importer, path, *quiet); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", filepath.Base(path), err)
			failed++
		}
	}
	if failed > 0 {
		os.Exit(1)
	}
}

func importFile(ctx context.Context, importer *ingest.Importer, path string, quiet bool) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Bank exports are Windows-1252 encoded.
	text, err := charmap.Windows1252.NewDecoder().Bytes(raw)
	if err != nil {
		return fmt.Errorf("decode: %w", err)
	}

	report, err := importer.Import(ctx, string(text), filepath.Base(path))
	switch {
	case errors.Is(err, core.ErrNoHeader):
		return fmt.Errorf("no recognizable header line")
	case errors.Is(err, core.ErrNoTransactions):
		return fmt.Errorf("no parseable transactions")
	case err != nil:
		return err
	}

	fmt.Printf("%s: parsed %d, inserted %d, skipped %d\n",
		report.SourceFile, report.Parsed, report.Inserted, report.Skipped)
	if !quiet {
		for _, batchErr := range report.Errors {
			fmt.Printf("  batch error: %s\n", batchErr.Error())
		}
	}
	return nil
}
