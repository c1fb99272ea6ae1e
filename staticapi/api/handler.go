// Package api provides the HTTP adapter: generic CRUD endpoints under
// /api/{collection} backed by a store.Store, plus an HTML dashboard.
package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/arthur-debert/static-api/staticapi/export"
	"github.com/arthur-debert/static-api/staticapi/store"
	"github.com/arthur-debert/static-api/types"
)

// MaxBodyBytes caps the size of a request body
const MaxBodyBytes = 10 << 20

// Config holds the handler settings
type Config struct {
	// DataDir is shown on the dashboard
	DataDir string

	// CORSOrigins lists the allowed origins. "*" allows any origin; an empty
	// list sends no Access-Control-Allow-Origin header.
	CORSOrigins []string

	// DefaultLimit is the page size when a list request has no limit.
	// Zero means types.DefaultLimit.
	DefaultLimit int

	// Logger receives one line per request. Nil discards.
	Logger *slog.Logger
}

// Handler holds the server dependencies and registers routes.
type Handler struct {
	store  store.Store
	cfg    Config
	logger *slog.Logger
	mux    *http.ServeMux
	chain  http.Handler
}

// New creates a Handler and wires up all routes.
func New(s store.Store, cfg Config) *Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = types.DefaultLimit
	}

	h := &Handler{store: s, cfg: cfg, logger: logger, mux: http.NewServeMux()}
	h.routes()
	h.chain = requestLogger(logger, corsMiddleware(h.mux, cfg.CORSOrigins))
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.chain.ServeHTTP(w, r)
}

func (h *Handler) routes() {
	// Dashboard
	h.mux.HandleFunc("GET /{$}", h.dashboard)
	h.mux.HandleFunc("GET /delete-collection/{collection}", h.deleteCollectionRedirect)
	h.mux.HandleFunc("GET /export", h.exportArchive)

	// Collection endpoints
	h.mux.HandleFunc("GET /api/{collection}", h.list)
	h.mux.HandleFunc("POST /api/{collection}", h.insert)
	h.mux.HandleFunc("DELETE /api/{collection}", h.deleteCollection)

	// Record endpoints
	h.mux.HandleFunc("GET /api/{collection}/{id}", h.get)
	h.mux.HandleFunc("PUT /api/{collection}/{id}", h.update)
	h.mux.HandleFunc("DELETE /api/{collection}/{id}", h.delete)
}

// ---------- helpers ----------

func writeJSON(w http.ResponseWriter, status int, v any) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// writeNotFound answers with an empty JSON object
func writeNotFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, struct{}{})
}

// writeStoreError maps a store failure to a status code. Missing records
// get the empty-object body; everything else is sent as plain text.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch types.KindOf(err) {
	case types.KindNotFound:
		writeNotFound(w)
		return
	case types.KindInvalid:
		status = http.StatusBadRequest
	case types.KindConflict:
		if errors.Is(err, types.ErrDuplicateID) {
			status = http.StatusConflict
		}
	case types.KindLock:
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("store operation failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	http.Error(w, err.Error(), status)
}

// readRecord decodes a request body that must hold exactly one JSON object.
// Numbers are kept as json.Number.
func readRecord(w http.ResponseWriter, r *http.Request) (types.Record, error) {
	defer func() { _ = r.Body.Close() }()

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("invalid JSON: unexpected data after the object")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errors.New("request body must be a JSON object")
	}
	return types.Record(obj), nil
}

func parseID(r *http.Request) (uint64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: must be a non-negative integer", raw)
	}
	return id, nil
}

// listOptions reads skip and limit from the query string. Both must be
// non-negative integers when present.
func (h *Handler) listOptions(r *http.Request) (types.ListOptions, error) {
	q := r.URL.Query()
	skip, limit := 0, h.cfg.DefaultLimit

	if raw := q.Get("skip"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return types.ListOptions{}, fmt.Errorf("invalid skip %q: must be a non-negative integer", raw)
		}
		skip = n
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return types.ListOptions{}, fmt.Errorf("invalid limit %q: must be a non-negative integer", raw)
		}
		limit = n
	}
	return types.NewListOptions(skip, limit), nil
}

// ---------- collection endpoints ----------

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	opts, err := h.listOptions(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	page, err := h.store.List(r.Context(), r.PathValue("collection"), opts)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) insert(w http.ResponseWriter, r *http.Request) {
	payload, err := readRecord(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	stored, err := h.store.Insert(r.Context(), r.PathValue("collection"), payload)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (h *Handler) deleteCollection(w http.ResponseWriter, r *http.Request) {
	if err := h.store.DeleteCollection(r.Context(), r.PathValue("collection")); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------- record endpoints ----------

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.store.Get(r.Context(), r.PathValue("collection"), id)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	payload, err := readRecord(w, r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	found, err := h.store.Update(r.Context(), r.PathValue("collection"), id, payload)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	if !found {
		writeNotFound(w)
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	removed, err := h.store.Delete(r.Context(), r.PathValue("collection"), id)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	if !removed {
		writeNotFound(w)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---------- export ----------

func (h *Handler) exportArchive(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	data, err := export.GenerateExportData(r.Context(), h.store, export.ExportOptions{
		Collections: r.URL.Query()["collection"],
		Format:      format,
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := export.WriteArchive(&buf, data); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", data.ArchiveFilename))
	_, _ = w.Write(buf.Bytes())
}
