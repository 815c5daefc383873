// Package api serves the conversion pipeline over HTTP.
//
// Routes:
//
//	GET  /healthz     liveness and build version
//	POST /v1/convert  schema + document in, rendered artifacts out
//
// Every response carries an X-Request-ID header. Errors are JSON objects
// with the request id, the error code and a message; the code selects the
// HTTP status.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/matzehuels/ergraph/pkg/buildinfo"
	"github.com/matzehuels/ergraph/pkg/config"
	ergerrors "github.com/matzehuels/ergraph/pkg/errors"
	"github.com/matzehuels/ergraph/pkg/observability"
	"github.com/matzehuels/ergraph/pkg/pipeline"
	"github.com/matzehuels/ergraph/pkg/schema"
)

// RequestIDHeader carries the request id in both directions.
const RequestIDHeader = "X-Request-ID"

const shutdownTimeout = 10 * time.Second

// Server is the HTTP front end of a pipeline runner.
type Server struct {
	runner *pipeline.Runner
	cfg    *config.Config
	logger *log.Logger
	router *chi.Mux
}

// New builds a server. A nil cfg uses [config.Default].
func New(runner *pipeline.Runner, cfg *config.Config, logger *log.Logger) *Server {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = runner.Logger
	}
	s := &Server{runner: runner, cfg: cfg, logger: logger}
	s.router = s.routes()
	return s
}

// Handler returns the root handler.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) routes() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type", RequestIDHeader},
		ExposedHeaders: []string{RequestIDHeader},
	}).Handler)
	r.Use(requestID)
	r.Use(observe)

	r.Get("/healthz", s.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Post("/convert", s.handleConvert)
	})
	return r
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type ctxKey int

const requestIDKey ctxKey = 0

// requestID adopts the caller's request id or assigns a fresh uuid.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), requestIDKey, id)))
	})
}

// RequestIDFrom returns the request id stored in ctx.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		hooks := observability.HTTP()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, status, time.Since(start))
	})
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Version: buildinfo.Version})
}

// ConvertRequest is the body of POST /v1/convert. Unset options fall back
// to the server configuration.
type ConvertRequest struct {
	Schema          string            `json:"schema"`
	SchemaFormat    string            `json:"schema_format,omitempty"`
	Data            json.RawMessage   `json:"data"`
	Formats         []string          `json:"formats,omitempty"`
	Name            string            `json:"name,omitempty"`
	Undirected      *bool             `json:"undirected,omitempty"`
	IDScheme        string            `json:"id_scheme,omitempty"`
	Tags            map[string]string `json:"tags,omitempty"`
	Pattern         string            `json:"pattern,omitempty"`
	PerKind         map[string]string `json:"per_kind,omitempty"`
	SchemaPrefix    string            `json:"schema_prefix,omitempty"`
	SchemaNamespace string            `json:"schema_namespace,omitempty"`
	Prefixes        map[string]string `json:"prefixes,omitempty"`
	AllowUnresolved *bool             `json:"allow_unresolved,omitempty"`
}

// ConvertResponse carries the rendered artifacts as text.
type ConvertResponse struct {
	RequestID  string            `json:"request_id"`
	Entities   int               `json:"entities"`
	Unresolved int               `json:"unresolved"`
	Triples    int               `json:"triples"`
	Nodes      int               `json:"nodes"`
	Edges      int               `json:"edges"`
	Cached     bool              `json:"cached"`
	Artifacts  map[string]string `json:"artifacts"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	id := RequestIDFrom(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Server.MaxBodyBytes)

	var req ConvertRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, id, ergerrors.Wrap(ergerrors.ErrCodeInvalidInput, err, "decode request"))
		return
	}

	opts := s.options(req)
	opts.Logger = s.logger.With("request_id", id)
	res, err := s.runner.Execute(r.Context(), opts)
	if err != nil {
		s.writeError(w, id, err)
		return
	}

	out := ConvertResponse{
		RequestID:  id,
		Entities:   res.Stats.Entities,
		Unresolved: res.Stats.Unresolved,
		Triples:    res.Stats.Triples,
		Nodes:      res.Stats.Nodes,
		Edges:      res.Stats.Edges,
		Cached:     res.CacheInfo.TriplesHit && res.CacheInfo.RenderHit,
		Artifacts:  make(map[string]string, len(res.Artifacts)),
	}
	for format, data := range res.Artifacts {
		out.Artifacts[format] = string(data)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) options(req ConvertRequest) pipeline.Options {
	opts := pipeline.FromConfig(s.cfg)
	opts.Schema = []byte(req.Schema)
	opts.SchemaFormat = schema.Format(req.SchemaFormat)
	if d := bytes.TrimSpace(req.Data); len(d) > 0 && !bytes.Equal(d, []byte("null")) {
		opts.Data = d
	}

	if len(req.Formats) > 0 {
		opts.Formats = req.Formats
	}
	if req.Name != "" {
		opts.Name = req.Name
	}
	if req.Undirected != nil {
		opts.Undirected = *req.Undirected
	}
	if req.IDScheme != "" {
		opts.IDScheme = req.IDScheme
	}
	if req.Tags != nil {
		opts.Tags = req.Tags
	}
	if req.Pattern != "" {
		opts.Pattern = req.Pattern
	}
	if req.PerKind != nil {
		opts.PerKind = req.PerKind
	}
	if req.SchemaPrefix != "" {
		opts.SchemaPrefix = req.SchemaPrefix
		opts.SchemaNamespace = req.SchemaNamespace
	}
	if req.Prefixes != nil {
		opts.Prefixes = req.Prefixes
	}
	if req.AllowUnresolved != nil {
		opts.AllowUnresolved = *req.AllowUnresolved
	}
	return opts
}

func (s *Server) writeError(w http.ResponseWriter, id string, err error) {
	code := ergerrors.GetCode(err)
	if code == "" {
		code = ergerrors.ErrCodeInternal
	}
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "request_id", id, "err", err)
	} else {
		s.logger.Debug("request rejected", "request_id", id, "code", code, "err", err)
	}
	writeJSON(w, status, ErrorResponse{RequestID: id, Code: string(code), Message: ergerrors.UserMessage(err)})
}

// StatusFor maps an error to the HTTP status reported for it.
func StatusFor(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	switch ergerrors.GetCode(err) {
	case ergerrors.ErrCodeInvalidInput, ergerrors.ErrCodeInvalidFormat, ergerrors.ErrCodeSchema,
		ergerrors.ErrCodeMissingRequired, ergerrors.ErrCodeInvalidReference, ergerrors.ErrCodeDuplicateEntity:
		return http.StatusBadRequest
	case ergerrors.ErrCodeUnresolved, ergerrors.ErrCodeBrokenReference,
		ergerrors.ErrCodeUnsupportedType, ergerrors.ErrCodeUnexpectedObject:
		return http.StatusUnprocessableEntity
	case ergerrors.ErrCodeNotFound:
		return http.StatusNotFound
	case ergerrors.ErrCodeUnsupported:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
