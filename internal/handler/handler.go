package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/shyim/lighthouse-bench/internal/measure"
	"github.com/shyim/lighthouse-bench/internal/models"
	"github.com/shyim/lighthouse-bench/internal/preset"
	"github.com/shyim/lighthouse-bench/internal/storage"
	"github.com/shyim/lighthouse-bench/internal/urlcheck"
	"github.com/sirupsen/logrus"
)

type Measurer interface {
	Measure(ctx context.Context, url, presetKey string) (models.MeasurementResult, error)
	Presets() []preset.Preset
}

type ReportStore interface {
	GetReport(ctx context.Context, id string) (io.ReadCloser, *time.Time, *string, error)
	DeleteReport(ctx context.Context, id string) error
}

type Handler struct {
	measurer  Measurer
	reports   ReportStore
	authToken string

	// one browser per server process
	measureMu sync.Mutex
}

// NewHandler creates the API handler. reports may be nil when archiving is
// disabled.
func NewHandler(measurer Measurer, reports ReportStore, authToken string) *Handler {
	return &Handler{measurer: measurer, reports: reports, authToken: authToken}
}

// Routes registers the API on a new mux behind the auth middleware.
func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /api/measure", h.HandleMeasure)
	mux.HandleFunc("GET /api/presets", h.HandlePresets)
	mux.HandleFunc("GET /api/report/{id}", h.HandleGetReport)
	mux.HandleFunc("DELETE /api/report/{id}", h.HandleDeleteReport)

	return h.AuthMiddleware(mux)
}

func (h *Handler) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/api") && h.authToken != "" {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") || authHeader[7:] != h.authToken {
				renderError(w, "Unauthorized", nil, http.StatusUnauthorized)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) HandleMeasure(w http.ResponseWriter, r *http.Request) {
	var req models.MeasureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, "Invalid Request Body", nil, http.StatusBadRequest)
		return
	}

	u, err := urlcheck.Normalize(req.URL)
	if err != nil {
		renderError(w, err.Error(), nil, http.StatusBadRequest)
		return
	}

	h.measureMu.Lock()
	result, err := h.measurer.Measure(r.Context(), u, req.Preset)
	h.measureMu.Unlock()

	if err != nil {
		if hub := sentry.GetHubFromContext(r.Context()); hub != nil {
			hub.CaptureException(err)
		}

		var failure *measure.AuditFailure
		if errors.As(err, &failure) {
			renderError(w, failure.Err.Error(), nil, http.StatusInternalServerError)
			return
		}
		renderError(w, err.Error(), nil, http.StatusInternalServerError)
		return
	}

	renderJSON(w, http.StatusOK, result)
}

func (h *Handler) HandlePresets(w http.ResponseWriter, r *http.Request) {
	presets := h.measurer.Presets()
	out := make([]models.PresetInfo, 0, len(presets))
	for _, p := range presets {
		out = append(out, models.PresetInfo{Key: p.Key, DisplayName: p.DisplayName})
	}
	renderJSON(w, http.StatusOK, out)
}

func (h *Handler) HandleGetReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validID(id) {
		renderError(w, "Invalid ID", nil, http.StatusBadRequest)
		return
	}
	if h.reports == nil {
		http.NotFound(w, r)
		return
	}

	stream, lastModified, etag, err := h.reports.GetReport(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		logrus.Errorf("Failed to fetch report %s: %v", id, err)
		renderError(w, "Failed to fetch report", nil, http.StatusInternalServerError)
		return
	}
	defer stream.Close()

	w.Header().Set("Cache-Control", "public, max-age=604800")
	w.Header().Set("Content-Type", "application/json")
	if etag != nil {
		w.Header().Set("ETag", *etag)
	}
	if lastModified != nil {
		w.Header().Set("Last-Modified", lastModified.UTC().Format(http.TimeFormat))
	}

	io.Copy(w, stream)
}

func (h *Handler) HandleDeleteReport(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if !validID(id) {
		renderError(w, "Invalid ID", nil, http.StatusBadRequest)
		return
	}
	if h.reports == nil {
		http.NotFound(w, r)
		return
	}

	if err := h.reports.DeleteReport(r.Context(), id); err != nil {
		logrus.Errorf("Failed to delete report %s: %v", id, err)
		renderError(w, "Failed to delete report", nil, http.StatusInternalServerError)
		return
	}

	w.WriteHeader(http.StatusOK)
}

func validID(id string) bool {
	return id != "" && !strings.Contains(id, "..") && !strings.Contains(id, "/") && !strings.Contains(id, "\\")
}

func renderJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Warnf("Failed to encode response: %v", err)
	}
}

func renderError(w http.ResponseWriter, msg string, details *string, status int) {
	renderJSON(w, status, models.ErrorResponse{
		Error:   msg,
		Details: details,
	})
}
