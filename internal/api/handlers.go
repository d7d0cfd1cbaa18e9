package api

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/mutige-mungos/mungo-shift/internal/feed"
	"github.com/mutige-mungos/mungo-shift/internal/models"
	"github.com/mutige-mungos/mungo-shift/internal/processor"
)

const (
	cacheControlPublished = "s-maxage=300, stale-while-revalidate=60"
	cacheControlNoStore   = "no-store"

	upstreamUnavailable = "Upstream unavailable"

	cronTimeout = 4 * time.Minute
)

type handler struct {
	loader     processor.DatasetLoader
	cron       CronRunner
	cronSecret string
	siteURL    string
}

type renderFunc func(w io.Writer, dataset *models.Dataset) error

func (h *handler) datasetJSON(w http.ResponseWriter, r *http.Request) {
	h.serveDataset(w, r, feed.ContentTypeJSON, feed.JSON, func(w http.ResponseWriter) {
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": upstreamUnavailable})
	})
}

func (h *handler) datasetText(w http.ResponseWriter, r *http.Request) {
	h.serveDataset(w, r, feed.ContentTypeText, feed.Text, writeUnavailableText)
}

func (h *handler) datasetRSS(w http.ResponseWriter, r *http.Request) {
	render := func(w io.Writer, dataset *models.Dataset) error {
		return feed.RSS(w, dataset, h.siteURL)
	}
	h.serveDataset(w, r, feed.ContentTypeRSS, render, writeUnavailableText)
}

// serveDataset loads the active codes and renders them. Any failure is
// reported as an unavailable upstream rather than partial data.
func (h *handler) serveDataset(w http.ResponseWriter, r *http.Request, contentType string, render renderFunc, unavailable func(http.ResponseWriter)) {
	dataset, err := h.loader.LoadActive(r.Context(), processor.LoadOptions{})
	if err != nil {
		slog.Error("Failed to load codes", "path", r.URL.Path, "error", err)
		w.Header().Set("Cache-Control", cacheControlNoStore)
		unavailable(w)
		return
	}

	var buf bytes.Buffer
	if err := render(&buf, dataset); err != nil {
		slog.Error("Failed to render codes", "path", r.URL.Path, "error", err)
		w.Header().Set("Cache-Control", cacheControlNoStore)
		unavailable(w)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", cacheControlPublished)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

func (h *handler) cronRun(w http.ResponseWriter, r *http.Request) {
	if !h.authorised(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Unauthorized"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), cronTimeout)
	defer cancel()

	result, err := h.cron.Run(ctx)
	if err != nil {
		slog.Error("Cron run failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Cron failed"})
		return
	}

	w.Header().Set("Cache-Control", cacheControlNoStore)
	writeJSON(w, http.StatusOK, result)
}

// authorised accepts any request when no secret is configured.
func (h *handler) authorised(r *http.Request) bool {
	if h.cronSecret == "" {
		return true
	}
	expected := "Bearer " + h.cronSecret
	got := r.Header.Get("Authorization")
	return subtle.ConstantTimeCompare([]byte(got), []byte(expected)) == 1
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", feed.ContentTypeJSON)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write JSON response", "error", err)
	}
}

func writeUnavailableText(w http.ResponseWriter) {
	w.Header().Set("Content-Type", feed.ContentTypeText)
	w.WriteHeader(http.StatusBadGateway)
	io.WriteString(w, upstreamUnavailable)
}
