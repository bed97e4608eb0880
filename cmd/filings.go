package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/fundwatch/internal/export"
	"github.com/sells-group/fundwatch/internal/model"
	"github.com/sells-group/fundwatch/internal/scan"
	"github.com/sells-group/fundwatch/internal/store"
)

var (
	filingsOut     string
	filingsNoStore bool
)

var filingsCmd = &cobra.Command{
	Use:   "filings [tickers...]",
	Short: "Classify recent SEC filings into tradeability risk events",
	Long:  "Resolves each ticker to its CIK, pulls the recent EDGAR filings, classifies the qualifying documents, and writes the risk-event CSV.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("filings"); err != nil {
			return err
		}

		tickers, err := tickerList(args, cfg.Edgar.Tickers)
		if err != nil {
			return err
		}

		scanner := newFilingScanner()

		var st store.Store
		var runID string
		if !filingsNoStore {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}

			run, err := st.CreateRun(ctx, model.ScanKindFilings, len(tickers))
			if err != nil {
				return eris.Wrap(err, "create run")
			}
			runID = run.ID
		}

		records, err := scanner.Scan(ctx, tickers)
		if err != nil {
			if st != nil {
				if ferr := st.FailRun(ctx, runID, err.Error()); ferr != nil {
					zap.L().Warn("record run failure", zap.Error(ferr))
				}
			}
			return eris.Wrap(err, "filing scan")
		}

		succeeded, failed := scan.CountFilings(records)
		if st != nil {
			if err := st.SaveFilingRecords(ctx, runID, records); err != nil {
				return eris.Wrap(err, "save filing records")
			}
			if err := st.CompleteRun(ctx, runID, succeeded, failed); err != nil {
				return eris.Wrap(err, "complete run")
			}
		}

		out := filingsOut
		if out == "" {
			out = cfg.Export.FilingCSV
		}
		path := exportPath(out)

		if err := export.WriteFilingCSV(path, records); err != nil {
			return err
		}

		zap.L().Info("filing export written",
			zap.String("path", path),
			zap.Int("records", len(records)),
		)

		summary := map[string]any{
			"tickers":   len(tickers),
			"succeeded": succeeded,
			"failed":    failed,
			"records":   len(records),
			"export":    path,
		}
		if runID != "" {
			summary["run_id"] = runID
		}
		return printJSON(summary)
	},
}

func init() {
	filingsCmd.Flags().StringVar(&filingsOut, "out", "", "output file (default from config)")
	filingsCmd.Flags().BoolVar(&filingsNoStore, "no-store", false, "skip recording the run in the store")
	rootCmd.AddCommand(filingsCmd)
}
