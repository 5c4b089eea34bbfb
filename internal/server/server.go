// Package server exposes the assistant session over a JSON HTTP API.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"statementqa/internal/domain"
	"statementqa/internal/service"
)

// MaxUploadBytes bounds a single statement upload.
const MaxUploadBytes = 32 << 20

// Assistant is the session the API drives.
type Assistant interface {
	Load(ctx context.Context, file domain.UploadedFile, password string) (*service.LoadStatus, error)
	Ask(ctx context.Context, q service.Query) (*domain.Answer, error)
	ClearCache() int
	Loaded() (string, bool)
}

// Server is the HTTP front end.
type Server struct {
	assistant Assistant
	logger    *slog.Logger
	addr      string
}

func New(a Assistant, addr string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{assistant: a, addr: addr, logger: logger}
}

// Handler returns the routed, instrumented handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	api.HandleFunc("/documents", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/query", s.handleQuery).Methods(http.MethodPost)
	api.HandleFunc("/cache", s.handleClear).Methods(http.MethodDelete)
	r.Use(s.loggingMiddleware)
	return otelhttp.NewHandler(r, "statementqa")
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      300 * time.Second,
	}

	s.logger.Info("server starting", "addr", s.addr)
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type healthResponse struct {
	Status   string `json:"status"`
	Document string `json:"document,omitempty"`
}

type queryRequest struct {
	Query          string `json:"query"`
	Mode           string `json:"mode"`
	ForceWebSearch bool   `json:"force_web_search"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	name, _ := s.assistant.Loaded()
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Document: name})
}

// handleUpload takes a multipart form with a "file" part and an optional
// "password" field.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUploadBytes)
	if err := r.ParseMultipartForm(MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid upload: "+err.Error())
		return
	}
	f, hdr, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file part")
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}

	file := domain.UploadedFile{Name: filepath.Base(hdr.Filename), Data: data}
	st, err := s.assistant.Load(r.Context(), file, r.FormValue("password"))
	if err != nil {
		writeError(w, statusFor(err), service.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	mode, err := domain.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ans, err := s.assistant.Ask(r.Context(), service.Query{Text: req.Query, Mode: mode, ForceWebSearch: req.ForceWebSearch})
	if err != nil {
		writeError(w, statusFor(err), service.UserMessage(err))
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request) {
	n := s.assistant.ClearCache()
	writeJSON(w, http.StatusOK, map[string]int{"cleared": n})
}

// statusFor maps session errors to HTTP status codes.
func statusFor(err error) int {
	var (
		unsupported *domain.UnsupportedFormatError
		decryption  *domain.DecryptionError
		extraction  *domain.ExtractionError
		completion  *domain.CompletionError
	)
	switch {
	case errors.Is(err, service.ErrEmptyQuery):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoDocument):
		return http.StatusConflict
	case errors.As(err, &unsupported):
		return http.StatusUnsupportedMediaType
	case domain.IsPasswordError(err):
		return http.StatusUnauthorized
	case errors.As(err, &decryption), errors.As(err, &extraction), errors.Is(err, domain.ErrEmptyIndex):
		return http.StatusUnprocessableEntity
	case errors.As(err, &completion):
		return http.StatusBadGateway
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
	writeJSON(w, status, errorResponse{Error: msg})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.InfoContext(r.Context(), "request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}
