package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/fundwatch/internal/extract"
	"github.com/sells-group/fundwatch/internal/model"
	"github.com/sells-group/fundwatch/internal/scan"
	"github.com/sells-group/fundwatch/internal/store"
)

var servePort int

// scanRunner executes one scan against an already created run and
// persists the records and the final run status.
type scanRunner func(ctx context.Context, runID string, tickers []string)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API for scans and run history",
	Long:  "Serves endpoints to start fund and filing scans asynchronously and to query recorded runs and their records.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck
		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		ex, err := newExtractor()
		if err != nil {
			return err
		}

		router := buildRouter(ctx, st, fundRunner(st, ex), filingRunner(st))

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: router,
		}

		// Graceful shutdown
		go func() {
			<-ctx.Done()
			zap.L().Info("shutting down server")
			shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutCtx)
		}()

		zap.L().Info("starting server", zap.Int("port", port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return eris.Wrap(err, "server listen")
		}

		return nil
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// buildRouter assembles the API routes. The scan runners are injected
// so tests can exercise the handlers without live scans.
func buildRouter(ctx context.Context, st store.Store, runFunds, runFilings scanRunner) http.Handler {
	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		if err := st.Ping(req.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/scans/funds", startScanHandler(ctx, st, model.ScanKindFunds, runFunds))
	r.Post("/scans/filings", startScanHandler(ctx, st, model.ScanKindFilings, runFilings))

	r.Get("/runs", func(w http.ResponseWriter, req *http.Request) {
		q := req.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))

		runs, err := st.ListRuns(req.Context(), store.RunFilter{
			Kind:   model.ScanKind(q.Get("kind")),
			Status: model.ScanStatus(q.Get("status")),
			Limit:  limit,
			Offset: offset,
		})
		if err != nil {
			http.Error(w, `{"error":"list runs failed"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, runs)
	})

	r.Get("/runs/{id}", func(w http.ResponseWriter, req *http.Request) {
		run, err := st.GetRun(req.Context(), chi.URLParam(req, "id"))
		if err != nil {
			http.Error(w, `{"error":"run not found"}`, http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, run)
	})

	r.Get("/runs/{id}/records", func(w http.ResponseWriter, req *http.Request) {
		id := chi.URLParam(req, "id")
		run, err := st.GetRun(req.Context(), id)
		if err != nil {
			http.Error(w, `{"error":"run not found"}`, http.StatusNotFound)
			return
		}

		switch run.Kind {
		case model.ScanKindFilings:
			records, err := st.FilingRecords(req.Context(), id)
			if err != nil {
				http.Error(w, `{"error":"load records failed"}`, http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, records)
		default:
			records, err := st.FundRecords(req.Context(), id)
			if err != nil {
				http.Error(w, `{"error":"load records failed"}`, http.StatusInternalServerError)
				return
			}
			writeJSON(w, http.StatusOK, records)
		}
	})

	return r
}

// startScanHandler records a run for the requested tickers and kicks
// the scan off in the background. The response carries the run ID so
// the caller can poll /runs/{id}.
func startScanHandler(ctx context.Context, st store.Store, kind model.ScanKind, run scanRunner) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		var body struct {
			Tickers []string `json:"tickers"`
		}
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
		if len(body.Tickers) == 0 {
			http.Error(w, `{"error":"tickers are required"}`, http.StatusBadRequest)
			return
		}

		sr, err := st.CreateRun(req.Context(), kind, len(body.Tickers))
		if err != nil {
			http.Error(w, `{"error":"create run failed"}`, http.StatusInternalServerError)
			return
		}

		// The scan outlives the request, so it runs on the server
		// context rather than the request context.
		go run(ctx, sr.ID, body.Tickers)

		writeJSON(w, http.StatusAccepted, map[string]string{
			"status": "accepted",
			"run_id": sr.ID,
		})
	}
}

// fundRunner returns the production fund scan runner.
func fundRunner(st store.Store, ex *extract.Extractor) scanRunner {
	return func(ctx context.Context, runID string, tickers []string) {
		records := newFundScanner(ex).Scan(ctx, tickers)
		if err := st.SaveFundRecords(ctx, runID, records); err != nil {
			failRun(ctx, st, runID, err)
			return
		}
		succeeded, failed := scan.CountFund(records)
		completeRun(ctx, st, runID, succeeded, failed)
	}
}

// filingRunner returns the production filing scan runner.
func filingRunner(st store.Store) scanRunner {
	return func(ctx context.Context, runID string, tickers []string) {
		records, err := newFilingScanner().Scan(ctx, tickers)
		if err != nil {
			failRun(ctx, st, runID, err)
			return
		}
		if err := st.SaveFilingRecords(ctx, runID, records); err != nil {
			failRun(ctx, st, runID, err)
			return
		}
		succeeded, failed := scan.CountFilings(records)
		completeRun(ctx, st, runID, succeeded, failed)
	}
}

func failRun(ctx context.Context, st store.Store, runID string, err error) {
	zap.L().Error("scan failed", zap.String("run_id", runID), zap.Error(err))
	if ferr := st.FailRun(ctx, runID, err.Error()); ferr != nil {
		zap.L().Warn("record run failure", zap.String("run_id", runID), zap.Error(ferr))
	}
}

func completeRun(ctx context.Context, st store.Store, runID string, succeeded, failed int) {
	if err := st.CompleteRun(ctx, runID, succeeded, failed); err != nil {
		zap.L().Warn("record run completion", zap.String("run_id", runID), zap.Error(err))
		return
	}
	zap.L().Info("scan run complete",
		zap.String("run_id", runID),
		zap.Int("succeeded", succeeded),
		zap.Int("failed", failed),
	)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
