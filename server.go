package main

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/franco-bianco/pumpfeed/tokenfeed"
)

// fetchFailed is the only error body clients ever see; details go to the log.
const fetchFailed = "failed to fetch pump.fun tokens"

// tokenSource is satisfied by *tokenfeed.Pipeline.
type tokenSource interface {
	Run(ctx context.Context) ([]tokenfeed.TokenRecord, error)
}

type apiError struct {
	Error string `json:"error"`
}

func writeJSONMaybePretty(w http.ResponseWriter, status int, v interface{}, pretty bool) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(v)
}

func newServer(src tokenSource, log *logrus.Logger, lookback time.Duration) http.Handler {
	mux := http.NewServeMux()

	// Health endpoint
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	mux.Handle("/metrics", promhttp.Handler())

	// Browser page; the table is filled from /api/tokens
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := renderPage(w, lookback); err != nil {
			log.WithError(err).Error("render page")
		}
	})

	// Token feed: one full pipeline run per request
	mux.HandleFunc("/api/tokens", func(w http.ResponseWriter, r *http.Request) {
		pretty := r.URL.Query().Get("pretty") == "1" || r.URL.Query().Get("pretty") == "true"
		if r.Method != http.MethodGet {
			writeJSONMaybePretty(w, http.StatusMethodNotAllowed, apiError{Error: "method not allowed"}, pretty)
			return
		}

		records, err := src.Run(r.Context())
		if err != nil {
			log.WithError(err).Error("token run failed")
			writeJSONMaybePretty(w, http.StatusInternalServerError, apiError{Error: fetchFailed}, pretty)
			return
		}
		if records == nil {
			records = []tokenfeed.TokenRecord{}
		}
		writeJSONMaybePretty(w, http.StatusOK, records, pretty)
	})

	return mux
}
