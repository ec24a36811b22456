// Package admin serves operational endpoints on a separate port: health,
// Prometheus metrics and Google Drive maintenance.
package admin

import (
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/andresuchdata/ecoagent/backend-go/internal/drive"
	"github.com/andresuchdata/ecoagent/backend-go/internal/service"
	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// DriveBrowser is the subset of the Drive client the admin routes use.
type DriveBrowser interface {
	FindFolderByPath(ctx context.Context, path string) (string, error)
	ListFiles(ctx context.Context, folderID string) ([]*drive.File, error)
	DownloadFile(ctx context.Context, fileID string, w io.Writer) error
}

// CacheFlusher drops cached dataset payloads.
type CacheFlusher interface {
	Flush(ctx context.Context) error
}

type Handler struct {
	drive    DriveBrowser
	datasets *service.DatasetService
	cache    CacheFlusher
}

// NewHandler accepts a nil drive; the Drive routes are then not registered.
func NewHandler(browser DriveBrowser, datasets *service.DatasetService) *Handler {
	return &Handler{drive: browser, datasets: datasets}
}

// WithCache enables POST /admin/cache/flush.
func (h *Handler) WithCache(cache CacheFlusher) *Handler {
	h.cache = cache
	return h
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/health", h.Health).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	if h.cache != nil {
		router.HandleFunc("/admin/cache/flush", h.FlushCache).Methods("POST")
	}
	if h.datasets != nil {
		router.HandleFunc("/admin/datasets/sync", h.SyncDatasets).Methods("POST")
	}
	if h.drive != nil {
		router.HandleFunc("/admin/drive/files", h.ListFiles).Methods("GET")
		router.HandleFunc("/admin/drive/files/download", h.DownloadFile).Methods("GET")
	}
}

// NewRouter returns a mux with every admin route registered.
func NewRouter(h *Handler) *mux.Router {
	r := mux.NewRouter()
	h.RegisterRoutes(r)
	return r
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	folderID := query.Get("folderId")
	folderPath := query.Get("path")

	var err error
	if folderPath != "" {
		// Find folder by path
		folderID, err = h.drive.FindFolderByPath(r.Context(), folderPath)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
	}
	if folderID == "" {
		http.Error(w, "folderId or path parameter is required", http.StatusBadRequest)
		return
	}

	files, err := h.drive.ListFiles(r.Context(), folderID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, files)
}

func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.URL.Query().Get("fileId")
	if fileID == "" {
		http.Error(w, "fileId parameter is required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	if err := h.drive.DownloadFile(r.Context(), fileID, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// SyncDatasets pulls dataset files from the Drive folder in ?path.
func (h *Handler) SyncDatasets(w http.ResponseWriter, r *http.Request) {
	report, err := h.datasets.SyncFromDrive(r.Context(), r.URL.Query().Get("path"))
	if err != nil {
		log.Error().Err(err).Msg("dataset sync failed")
		status := http.StatusInternalServerError
		if errors.Is(err, service.ErrDriveDisabled) {
			status = http.StatusNotImplemented
		}
		http.Error(w, err.Error(), status)
		return
	}
	writeJSON(w, report)
}

func (h *Handler) FlushCache(w http.ResponseWriter, r *http.Request) {
	if err := h.cache.Flush(r.Context()); err != nil {
		log.Error().Err(err).Msg("cache flush failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	log.Info().Msg("dataset cache flushed")
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}
