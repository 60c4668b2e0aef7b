package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmarsh/strider/internal/contracts"
	"github.com/dmarsh/strider/internal/scan"
	"github.com/dmarsh/strider/internal/store"
	"github.com/dmarsh/strider/pkg/config"
	"github.com/dmarsh/strider/pkg/database"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run one scan over a date window",
	Long: `Runs the full pipeline once: trading dates, bar acquisition,
prefilter, feature computation, pattern detection. Results go to
stdout; --save also persists the run to Postgres.

Examples:
  strider scan --d0-start 2026-01-05 --d0-end 2026-01-09 --tickers AAPL,MSFT,NVDA
  strider scan --d0-start 2026-01-09 --d0-end 2026-01-09 --buffer-days 1500 --grouped --tickers-file universe.txt
  strider scan --d0-start 2026-01-09 --d0-end 2026-01-09 --tickers AAPL --output json`,
	RunE: runScan,
}

var (
	scanD0Start    string
	scanD0End      string
	scanBufferDays int
	scanWorkers    int
	scanGrouped    bool
	scanSave       bool
	scanOutput     string
)

func init() {
	rootCmd.AddCommand(scanCmd)

	scanCmd.Flags().StringVar(&scanD0Start, "d0-start", "", "first output date (YYYY-MM-DD, required)")
	scanCmd.Flags().StringVar(&scanD0End, "d0-end", "", "last output date (YYYY-MM-DD, required)")
	scanCmd.Flags().IntVar(&scanBufferDays, "buffer-days", 1500, "calendar days of history before d0-start")
	scanCmd.Flags().IntVar(&scanWorkers, "workers", 8, "concurrent fetch/detect workers")
	scanCmd.Flags().BoolVar(&scanGrouped, "grouped", false, "acquire bars with one grouped request per date")
	scanCmd.Flags().BoolVar(&scanSave, "save", false, "persist the run to Postgres")
	scanCmd.Flags().StringVar(&scanOutput, "output", "table", "output format: table or json")
	scanCmd.MarkFlagRequired("d0-start")
	scanCmd.MarkFlagRequired("d0-end")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := newLogger(cfg)

	window, err := parseWindow()
	if err != nil {
		return err
	}
	params, err := loadParams()
	if err != nil {
		return fmt.Errorf("load params: %w", err)
	}
	provider, err := resolveUniverse(cfg, log)
	if err != nil {
		return err
	}

	source := newDataSource(cfg, log, scanGrouped)
	orchestrator := scan.New(provider, source, scan.Options{Workers: scanWorkers}, log)

	startedAt := time.Now().UTC()
	result, err := orchestrator.Scan(cmd.Context(), window, params)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	if scanSave {
		db, err := database.New(cfg.Database)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()

		runID, err := store.NewRepository(db.Pool).SaveRun(cmd.Context(), window, startedAt, result)
		if err != nil {
			return fmt.Errorf("persist run: %w", err)
		}
		log.WithField("run_id", runID).Info("Run persisted")
	}

	return printResult(result)
}

func parseWindow() (contracts.ScanWindow, error) {
	var w contracts.ScanWindow
	d0Start, err := time.Parse("2006-01-02", scanD0Start)
	if err != nil {
		return w, fmt.Errorf("--d0-start must be YYYY-MM-DD: %w", err)
	}
	d0End, err := time.Parse("2006-01-02", scanD0End)
	if err != nil {
		return w, fmt.Errorf("--d0-end must be YYYY-MM-DD: %w", err)
	}
	w.D0Start = d0Start.UTC()
	w.D0End = d0End.UTC()
	w.HistoricalStart = w.D0Start.AddDate(0, 0, -scanBufferDays)
	return w, nil
}

func printResult(result *contracts.ScanResult) error {
	if scanOutput == "json" {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tTICKER\tTRIGGER\tGAP/ATR\tGAP%\tRANGE POS")
	for _, sig := range result.Signals {
		fmt.Fprintf(w, "%s\t%s\t%s\t%.2f\t%.2f%%\t%.2f\n",
			sig.Date.Format("2006-01-02"), sig.Ticker, sig.TriggerTag,
			sig.Diagnostics.GapDivATR, sig.Diagnostics.GapPct*100, sig.Diagnostics.RangePos)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Printf("\n%d signals; %d/%d units succeeded",
		len(result.Signals), result.Counts.Succeeded, result.Counts.Submitted)
	if len(result.TickerErrors) > 0 || len(result.DateErrors) > 0 {
		fmt.Printf("; %d ticker errors, %d date errors",
			len(result.TickerErrors), len(result.DateErrors))
	}
	fmt.Println()

	for ticker, msg := range result.TickerErrors {
		fmt.Printf("  %s: %s\n", ticker, msg)
	}
	for date, msg := range result.DateErrors {
		fmt.Printf("  %s: %s\n", date, msg)
	}
	return nil
}
