// Package httpapi is a thin chi router exposing internal/portal.Portal's
// operations over HTTP, in the shape of the teacher's cmd/baseline-server:
// parse/validate query params, call straight through to the core, encode
// the result as JSON. It carries no business logic of its own — every
// decision here belongs to spec.md §4/§6 and lives in Portal instead.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/esacci/odpcore/internal/model"
	"github.com/esacci/odpcore/internal/observability"
	"github.com/esacci/odpcore/internal/portal"
)

// Server is the chi-backed HTTP facade over one Portal.
type Server struct {
	portal  *portal.Portal
	log     *slog.Logger
	metrics *observability.Provider
	addr    string
	srv     *http.Server
}

func New(addr string, p *portal.Portal, metrics *observability.Provider, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{portal: p, log: log, metrics: metrics, addr: addr}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	if s.metrics != nil {
		r.Get("/metrics", s.metrics.Handler().ServeHTTP)
	}

	r.Route("/api/datasets", func(r chi.Router) {
		r.Get("/", s.handleDatasetNames)
		r.Get("/search", s.handleSearch)
		r.Get("/{drsId}/info", s.handleDatasetInfo)
		r.Get("/{drsId}/metadata", s.handleDatasetMetadata)
		r.Get("/{drsId}/vars", s.handleVarAndCoordNames)
		r.Get("/{drsId}/time_ranges", s.handleTimeRanges)
		r.Get("/{drsId}/variable_data", s.handleVariableData)
		r.Get("/{drsId}/chunk", s.handleDataChunk)
	})
	return r
}

// Run starts the HTTP server and blocks until ctx is cancelled or the
// server errors out, then shuts down gracefully, mirroring the teacher's
// cmd/baseline-server/main.go signal-handling shape.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("httpapi listen", "addr", s.addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			s.log.Error("httpapi server error", "err", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if err := s.portal.HealthCheck(); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleDatasetNames(w http.ResponseWriter, r *http.Request) {
	ids, err := s.portal.DatasetNames(r.Context())
	s.writeJSONOrError(w, ids, err)
}

func (s *Server) handleDatasetInfo(w http.ResponseWriter, r *http.Request) {
	id := model.DrsId(chi.URLParam(r, "drsId"))
	info, err := s.portal.GetDatasetInfo(r.Context(), id)
	s.writeJSONOrError(w, info, err)
}

func (s *Server) handleDatasetMetadata(w http.ResponseWriter, r *http.Request) {
	id := model.DrsId(chi.URLParam(r, "drsId"))
	rec, err := s.portal.GetDatasetMetadata(r.Context(), id)
	s.writeJSONOrError(w, rec, err)
}

func (s *Server) handleVarAndCoordNames(w http.ResponseWriter, r *http.Request) {
	id := model.DrsId(chi.URLParam(r, "drsId"))
	vars, coords, err := s.portal.VarAndCoordNames(r.Context(), id)
	s.writeJSONOrError(w, map[string]any{"vars": vars, "coords": coords}, err)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := portal.SearchParams{
		StartDate: strings.TrimSpace(q.Get("start_date")),
		EndDate:   strings.TrimSpace(q.Get("end_date")),
		Filters: model.SearchFilters{
			ECV:             q.Get("ecv"),
			Frequency:       q.Get("frequency"),
			ProcessingLevel: q.Get("processing_level"),
			DataType:        q.Get("data_type"),
			ProductString:   q.Get("product_string"),
			ProductVersion:  q.Get("product_version"),
			Institute:       q.Get("institute"),
			Sensor:          q.Get("sensor"),
			Platform:        q.Get("platform"),
		},
	}
	if raw := strings.TrimSpace(q.Get("bbox")); raw != "" {
		bbox, err := parseBBox(raw)
		if err != nil {
			http.Error(w, "invalid bbox: "+err.Error(), http.StatusBadRequest)
			return
		}
		params.BBox = &bbox
	}

	ids, err := s.portal.Search(r.Context(), params)
	s.writeJSONOrError(w, ids, err)
}

func (s *Server) handleTimeRanges(w http.ResponseWriter, r *http.Request) {
	id := model.DrsId(chi.URLParam(r, "drsId"))
	q := r.URL.Query()
	ranges, err := s.portal.GetTimeRangesFromData(r.Context(), id, q.Get("start"), q.Get("end"))
	s.writeJSONOrError(w, ranges, err)
}

func (s *Server) handleVariableData(w http.ResponseWriter, r *http.Request) {
	id := model.DrsId(chi.URLParam(r, "drsId"))
	q := r.URL.Query()

	sizes := make(map[string]int)
	for _, pair := range q["var"] {
		name, sizeStr, ok := strings.Cut(pair, ":")
		if !ok {
			http.Error(w, "var must be name:size", http.StatusBadRequest)
			return
		}
		n, err := strconv.Atoi(sizeStr)
		if err != nil {
			http.Error(w, "invalid size for var "+name, http.StatusBadRequest)
			return
		}
		sizes[name] = n
	}
	if len(sizes) == 0 {
		http.Error(w, "at least one ?var=name:size is required", http.StatusBadRequest)
		return
	}

	result, err := s.portal.GetVariableData(r.Context(), id, sizes, q.Get("start"), q.Get("end"))
	s.writeJSONOrError(w, result, err)
}

func (s *Server) handleDataChunk(w http.ResponseWriter, r *http.Request) {
	id := model.DrsId(chi.URLParam(r, "drsId"))
	q := r.URL.Query()
	varName := q.Get("var")
	if varName == "" {
		http.Error(w, "var is required", http.StatusBadRequest)
		return
	}

	var chunkIndex []int
	for _, raw := range strings.Split(q.Get("chunk"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, "chunk must be a comma-separated list of integers", http.StatusBadRequest)
			return
		}
		chunkIndex = append(chunkIndex, n)
	}

	data, err := s.portal.GetDataChunk(r.Context(), id, varName, chunkIndex)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) writeJSONOrError(w http.ResponseWriter, v any, err error) {
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("httpapi: encode response", "err", err)
	}
}

func parseBBox(raw string) (model.BBox, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return model.BBox{}, errors.New("expected 4 comma-separated values: minX,minY,maxX,maxY")
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return model.BBox{}, err
		}
		vals[i] = f
	}
	return model.BBox{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}, nil
}
