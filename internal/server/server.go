package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/limPage/wavecut/internal/config"
	"github.com/limPage/wavecut/internal/library"
	"github.com/limPage/wavecut/internal/segment"
	"github.com/limPage/wavecut/internal/session"
	"github.com/limPage/wavecut/internal/store"
	"github.com/limPage/wavecut/internal/wavio"
)

// ParseLogLevel converts a case-insensitive level string to slog.Level.
// An empty string returns slog.LevelInfo. Unknown strings return an error.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unknown log level %q (want debug|info|warn|error)", s)
	}
}

// SessionAPI is the annotation surface the HTTP handlers drive.
type SessionAPI interface {
	Open(relPath string) (session.State, error)
	State() session.State
	AddSegment() (session.State, error)
	Patch(id string, p segment.Patch) (session.State, error)
	Drag(id string, start, end float64) (session.DragResult, error)
	Remove(id string) (session.State, error)
	ExportSegment(id string) ([]byte, string, error)
	ExportAll() ([]string, error)
	Complete() (session.State, error)
}

// FileLister enumerates the WAV files of the library.
type FileLister interface {
	Files() ([]library.File, error)
}

// SegmentCounter reports how many segments are cached for a file.
type SegmentCounter interface {
	Count(key store.FileKey) int
}

// ---------------------------------------------------------------------------
// Functional options
// ---------------------------------------------------------------------------

type options struct {
	maxBodyBytes   int64
	requestTimeout time.Duration
	logger         *slog.Logger
}

func defaultOptions() options {
	return options{
		maxBodyBytes:   1 << 20,
		requestTimeout: 60 * time.Second,
		logger:         slog.Default(),
	}
}

// Option configures the HTTP handler.
type Option func(*options)

// WithMaxBodyBytes sets the maximum accepted request body size.
func WithMaxBodyBytes(n int64) Option {
	return func(o *options) { o.maxBodyBytes = n }
}

// WithRequestTimeout sets the per-request deadline. Zero disables it.
func WithRequestTimeout(d time.Duration) Option {
	return func(o *options) { o.requestTimeout = d }
}

// WithLogger sets the slog.Logger used for request logging.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// ---------------------------------------------------------------------------
// handler
// ---------------------------------------------------------------------------

// handler holds the dependencies needed to serve HTTP requests.
type handler struct {
	sess   SessionAPI
	lib    FileLister
	counts SegmentCounter
	opts   options
	log    *slog.Logger
}

// NewHandler returns an http.Handler serving the library listing and the
// single-session annotation API.
func NewHandler(sess SessionAPI, lib FileLister, counts SegmentCounter, optFns ...Option) http.Handler {
	opts := defaultOptions()
	for _, fn := range optFns {
		fn(&opts)
	}

	h := &handler{
		sess:   sess,
		lib:    lib,
		counts: counts,
		opts:   opts,
		log:    opts.logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.handleHealth)
	mux.HandleFunc("GET /api/files", h.handleFiles)
	mux.HandleFunc("POST /api/session/open", h.handleOpen)
	mux.HandleFunc("GET /api/session", h.handleState)
	mux.HandleFunc("POST /api/session/segments", h.handleAddSegment)
	mux.HandleFunc("PATCH /api/session/segments/{id}", h.handlePatch)
	mux.HandleFunc("POST /api/session/segments/{id}/drag", h.handleDrag)
	mux.HandleFunc("DELETE /api/session/segments/{id}", h.handleRemove)
	mux.HandleFunc("GET /api/session/segments/{id}/export", h.handleExportSegment)
	mux.HandleFunc("POST /api/session/export", h.handleExportAll)
	mux.HandleFunc("POST /api/session/complete", h.handleComplete)

	if opts.requestTimeout > 0 {
		return http.TimeoutHandler(mux, opts.requestTimeout, "request timed out")
	}
	return mux
}

func buildVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

func (h *handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": buildVersion(),
	})
}

// fileEntry is one row of the library listing, annotated with the number
// of cached segments for the file's current identity.
type fileEntry struct {
	Path      string `json:"path"`
	Size      int64  `json:"size"`
	Modified  int64  `json:"modified"`
	Segments  int    `json:"segments"`
	Annotated bool   `json:"annotated"`
}

func (h *handler) handleFiles(w http.ResponseWriter, r *http.Request) {
	files, err := h.lib.Files()
	if err != nil {
		h.log.ErrorContext(r.Context(), "library listing failed", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	entries := make([]fileEntry, 0, len(files))
	for _, f := range files {
		n := h.counts.Count(f.Key)
		entries = append(entries, fileEntry{
			Path:      f.RelPath,
			Size:      f.Size,
			Modified:  f.Modified,
			Segments:  n,
			Annotated: n > 0,
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

type openRequest struct {
	Path string `json:"path"`
}

func (h *handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	var req openRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	if req.Path == "" {
		writeError(w, http.StatusBadRequest, "path field is required")
		return
	}

	st, err := h.sess.Open(req.Path)
	if err != nil {
		h.log.WarnContext(r.Context(), "open failed",
			slog.String("path", req.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) handleState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.sess.State())
}

func (h *handler) handleAddSegment(w http.ResponseWriter, _ *http.Request) {
	st, err := h.sess.AddSegment()
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, st)
}

func (h *handler) handlePatch(w http.ResponseWriter, r *http.Request) {
	var p segment.Patch
	if !h.decodeJSON(w, r, &p) {
		return
	}

	st, err := h.sess.Patch(r.PathValue("id"), p)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

type dragRequest struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

func (h *handler) handleDrag(w http.ResponseWriter, r *http.Request) {
	var req dragRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}

	res, err := h.sess.Drag(r.PathValue("id"), req.Start, req.End)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	st, err := h.sess.Remove(r.PathValue("id"))
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (h *handler) handleExportSegment(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, name, err := h.sess.ExportSegment(id)
	if err != nil {
		h.log.WarnContext(r.Context(), "segment export failed",
			slog.String("segment", id),
			slog.String("error", err.Error()),
		)
		writeError(w, errorStatus(err), err.Error())
		return
	}

	w.Header().Set("Content-Type", "audio/wav")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *handler) handleExportAll(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	names, err := h.sess.ExportAll()
	if err != nil {
		h.log.ErrorContext(r.Context(), "export failed",
			slog.Int("written", len(names)),
			slog.String("error", err.Error()),
		)
		writeError(w, errorStatus(err), err.Error())
		return
	}

	h.log.InfoContext(r.Context(), "export complete",
		slog.Int("files", len(names)),
		slog.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"files": names})
}

func (h *handler) handleComplete(w http.ResponseWriter, _ *http.Request) {
	st, err := h.sess.Complete()
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// decodeJSON reads a size-limited JSON body into v, writing the error
// response itself when decoding fails.
func (h *handler) decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.Body == nil {
		writeError(w, http.StatusBadRequest, "request body is required")
		return false
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.opts.maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds maximum size of %d bytes", h.opts.maxBodyBytes))
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// errorStatus maps domain errors onto HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, session.ErrNoSession):
		return http.StatusConflict
	case errors.Is(err, segment.ErrTooManySegments):
		return http.StatusConflict
	case errors.Is(err, library.ErrUnknownFile):
		return http.StatusNotFound
	case errors.Is(err, session.ErrUnknownSegment):
		return http.StatusNotFound
	case errors.Is(err, wavio.ErrInvalidWAV):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Server — wires handler into net/http.Server with graceful shutdown
// ---------------------------------------------------------------------------

// Server wires the HTTP handler into a net/http.Server with graceful shutdown.
type Server struct {
	cfg             config.Config
	sess            SessionAPI
	lib             FileLister
	counts          SegmentCounter
	shutdownTimeout time.Duration
}

func New(cfg config.Config, sess SessionAPI, lib FileLister, counts SegmentCounter) *Server {
	return &Server{
		cfg:             cfg,
		sess:            sess,
		lib:             lib,
		counts:          counts,
		shutdownTimeout: time.Duration(cfg.Server.ShutdownTimeout) * time.Second,
	}
}

// WithShutdownTimeout overrides the graceful-shutdown drain period.
func (s *Server) WithShutdownTimeout(d time.Duration) *Server {
	s.shutdownTimeout = d
	return s
}

func (s *Server) Start(ctx context.Context) error {
	handlerOpts := []Option{
		WithMaxBodyBytes(s.cfg.Server.MaxBodyBytes),
		WithRequestTimeout(time.Duration(s.cfg.Server.RequestTimeout) * time.Second),
	}

	h := NewHandler(s.sess, s.lib, s.counts, handlerOpts...)

	httpServer := &http.Server{
		Addr:              s.cfg.Server.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return fmt.Errorf("http listen: %w", err)
	}
}

func ProbeHTTP(addr string) error {
	resp, err := http.Get("http://" + addr + "/health") //nolint:noctx
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected health status: %s", resp.Status)
	}
	return nil
}
