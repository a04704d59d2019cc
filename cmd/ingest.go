package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/theirongolddev/cloudburn/internal/cli"
	"github.com/theirongolddev/cloudburn/internal/config"
	"github.com/theirongolddev/cloudburn/internal/pipeline"
	"github.com/theirongolddev/cloudburn/internal/store"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Import billing exports (*.jsonl, *.csv) into the local store",
	Long: "Scans dir for billing exports and imports new or changed files into the\n" +
		"SQLite store. Unchanged files are skipped; removed files are dropped.",
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(_ *cobra.Command, args []string) error {
	e, err := loadConfig(os.Stderr)
	if err != nil {
		return err
	}

	dir := e.cfg.General.ExportDir
	if len(args) == 1 {
		dir = args[0]
	}
	if dir == "" {
		dir = filepath.Join(pipeline.DataDir(), "exports")
	}

	card, err := config.NewRateCard(e.cfg.Pricing)
	if err != nil {
		return err
	}

	dbPath := e.cfg.Source.DBPath
	if dbPath == "" {
		dbPath = pipeline.StorePath()
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening consumption store: %w", err)
	}
	defer func() { _ = st.Close() }()

	if !flagQuiet {
		fmt.Fprintf(os.Stderr, "  Scanning %s...\n", dir)
	}

	start := time.Now()
	res, err := pipeline.Ingest(dir, st, progress("Importing"), pipeline.WithPricer(card))
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	fmt.Println()
	fmt.Print(cli.RenderTable(cli.Table{
		Title:   "Ingest",
		Headers: []string{"", "Count"},
		Rows: [][]string{
			{"Files found", cli.FormatNumber(int64(res.TotalFiles))},
			{"Unchanged", cli.FormatNumber(int64(res.Unchanged))},
			{"Imported", cli.FormatNumber(int64(res.Reparsed))},
			{"Removed", cli.FormatNumber(int64(res.Removed))},
			{"---"},
			{"Entries stored", cli.FormatNumber(int64(res.Entries))},
			{"Priced from rate card", cli.FormatNumber(int64(res.Priced))},
			{"Malformed lines", cli.FormatNumber(int64(res.ParseErrors))},
			{"Unreadable files", cli.FormatNumber(int64(res.FileErrors))},
		},
	}))

	total, err := st.EntryCount()
	if err != nil {
		return err
	}
	fmt.Printf("  Store: %s (%s entries", dbPath, cli.FormatNumber(int64(total)))
	if r, ok, err := st.DataRange(); err == nil && ok {
		fmt.Printf(", %s", cli.FormatRange(r))
	}
	fmt.Printf(")\n  Done in %s\n\n", elapsed.Round(time.Millisecond))
	return nil
}
