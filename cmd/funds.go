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
	fundsOut     string
	fundsFormat  string
	fundsNoStore bool
)

var fundsCmd = &cobra.Command{
	Use:   "funds [tickers...]",
	Short: "Scan fund statistics pages and export the metrics",
	Long:  "Fetches each fund's statistics page, extracts the canonical metrics, records the results, and writes the export workbook.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("funds"); err != nil {
			return err
		}
		if fundsFormat != "xlsx" && fundsFormat != "csv" {
			return eris.Errorf("unknown format %q (want xlsx or csv)", fundsFormat)
		}

		tickers, err := tickerList(args, cfg.Funds.Tickers)
		if err != nil {
			return err
		}

		ex, err := newExtractor()
		if err != nil {
			return err
		}
		scanner := newFundScanner(ex)

		var st store.Store
		var runID string
		if !fundsNoStore {
			st, err = initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			if err := st.Migrate(ctx); err != nil {
				return eris.Wrap(err, "migrate store")
			}

			run, err := st.CreateRun(ctx, model.ScanKindFunds, len(tickers))
			if err != nil {
				return eris.Wrap(err, "create run")
			}
			runID = run.ID
		}

		records := scanner.Scan(ctx, tickers)
		succeeded, failed := scan.CountFund(records)

		if st != nil {
			if err := st.SaveFundRecords(ctx, runID, records); err != nil {
				return eris.Wrap(err, "save fund records")
			}
			if err := st.CompleteRun(ctx, runID, succeeded, failed); err != nil {
				return eris.Wrap(err, "complete run")
			}
		}

		out := fundsOut
		if out == "" {
			out = cfg.Export.FundWorkbook
			if fundsFormat == "csv" {
				out = cfg.Export.FundCSV
			}
		}
		path := exportPath(out)

		targets := ex.Tables().Targets
		if fundsFormat == "csv" {
			err = export.WriteFundCSV(path, records, targets)
		} else {
			err = export.WriteFundWorkbook(path, records, targets)
		}
		if err != nil {
			return err
		}

		zap.L().Info("fund export written",
			zap.String("path", path),
			zap.Int("succeeded", succeeded),
			zap.Int("failed", failed),
		)

		summary := map[string]any{
			"tickers":   len(tickers),
			"succeeded": succeeded,
			"failed":    failed,
			"export":    path,
		}
		if runID != "" {
			summary["run_id"] = runID
		}
		return printJSON(summary)
	},
}

func init() {
	fundsCmd.Flags().StringVar(&fundsOut, "out", "", "output file (default from config)")
	fundsCmd.Flags().StringVar(&fundsFormat, "format", "xlsx", "export format: xlsx or csv")
	fundsCmd.Flags().BoolVar(&fundsNoStore, "no-store", false, "skip recording the run in the store")
	rootCmd.AddCommand(fundsCmd)
}
