package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/fundwatch/internal/edgar"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve <tickers...>",
	Short: "Resolve tickers to SEC CIK numbers",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("filings"); err != nil {
			return err
		}

		r := edgar.NewResolver(newEdgarFetcher())
		if err := r.Load(ctx); err != nil {
			return eris.Wrap(err, "load ticker table")
		}

		var missing []string
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "TICKER\tCIK")
		for _, raw := range args {
			ticker := strings.ToUpper(strings.TrimSpace(raw))
			cik, ok := r.Lookup(ticker)
			if !ok {
				cik = "-"
				missing = append(missing, ticker)
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\n", ticker, cik)
		}
		_ = w.Flush()

		if len(missing) > 0 {
			return eris.Errorf("no CIK found for: %s", strings.Join(missing, ", "))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resolveCmd)
}
