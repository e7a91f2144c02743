// Package server exposes the Inspector over a small JSON HTTP API.
//
// Routes:
//
//	GET  /healthz
//	GET  /metrics
//	GET  /schemas
//	GET  /schemas/{schema}                         full reflection
//	GET  /schemas/{schema}/tables                  ?views=true lists views
//	GET  /schemas/{schema}/tables/{table}
//	GET  /schemas/{schema}/routines                ?kind=procedure|function
//	GET  /schemas/{schema}/routines/{routine}
//	POST /schemas/{schema}/routines/{routine}/call body: {"arg": value, ...}
//	GET  /schemas/{schema}/integrity               ?enable=true|false
//	POST /schemas/{schema}/integrity               ?enable=true|false, executes
//	POST /schemas/{schema}/cache/refresh
//	POST /schemas/{schema}/snapshots               (with a snapshot store)
//	GET  /schemas/{schema}/snapshots[/latest]      (with a snapshot store)
//	POST /ddl/column                               body: schema.ColumnInfo
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"github.com/koustreak/sqlany/internal/config"
	"github.com/koustreak/sqlany/internal/errs"
	"github.com/koustreak/sqlany/internal/filestore"
	"github.com/koustreak/sqlany/internal/logger"
	"github.com/koustreak/sqlany/internal/schema"
)

// maxBodyBytes caps request bodies (routine arguments, column definitions).
const maxBodyBytes = 1 << 20

// Options configures a Server. Only the inspector passed to New is required.
type Options struct {
	Config       config.ServerConfig
	QueryTimeout time.Duration
	// Publisher enables the snapshot routes when set.
	Publisher *filestore.Publisher
	Logger    *logger.Logger
}

// Server routes HTTP requests to an Inspector.
type Server struct {
	inspector    *schema.Inspector
	publisher    *filestore.Publisher
	metrics      *Metrics
	log          *logger.Logger
	cfg          config.ServerConfig
	queryTimeout time.Duration
	router       chi.Router

	// mu guards cache, which is not safe for concurrent use.
	mu    sync.Mutex
	cache *schema.Cache
}

// New builds a Server and its routes.
func New(inspector *schema.Inspector, opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	s := &Server{
		inspector:    inspector,
		publisher:    opts.Publisher,
		metrics:      NewMetrics(),
		log:          log.Component("server"),
		cfg:          opts.Config,
		queryTimeout: opts.QueryTimeout,
		cache:        schema.NewCache(),
	}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Metrics returns the server's collectors.
func (s *Server) Metrics() *Metrics {
	return s.metrics
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.metrics.Middleware)

	r.Get("/healthz", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Route("/schemas", func(r chi.Router) {
		r.Get("/", s.handleSchemas)
		r.Route("/{schema}", func(r chi.Router) {
			r.Get("/", s.handleInspectSchema)
			r.Get("/tables", s.handleTables)
			r.Get("/tables/{table}", s.handleTable)
			r.Get("/routines", s.handleRoutines)
			r.Get("/routines/{routine}", s.handleRoutine)
			r.Post("/routines/{routine}/call", s.handleCall)
			r.Get("/integrity", s.handleIntegrity)
			r.Post("/integrity", s.handleApplyIntegrity)
			r.Post("/cache/refresh", s.handleRefresh)
			if s.publisher != nil {
				r.Post("/snapshots", s.handlePublish)
				r.Get("/snapshots", s.handleSnapshots)
				r.Get("/snapshots/latest", s.handleLatestSnapshot)
			}
		})
	})
	r.Post("/ddl/column", s.handleColumnDDL)
	return r
}

// ListenAndServe serves on the configured address until ctx is cancelled,
// then shuts down gracefully within the configured shutdown timeout.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	s.log.With().Str("addr", s.cfg.Addr).Logger().Info("http server started")

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errs.Wrap(errs.ErrKindConnectionFailed, fmt.Sprintf("failed to listen on %s", s.cfg.Addr), err)
	case <-ctx.Done():
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s.log.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errs.Wrap(errs.ErrKindTimeout, "http server shutdown", err)
	}
	return nil
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		s.log.Request().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request")
	})
}

// queryContext applies the default per-call deadline.
func (s *Server) queryContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.queryTimeout <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), s.queryTimeout)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"dialect": s.inspector.Dialect().Name(),
	})
}

func (s *Server) handleSchemas(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	names, err := s.inspector.SchemaNames(ctx)
	s.metrics.catalogOp("schemas", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleInspectSchema(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	info, err := s.inspector.InspectSchema(ctx, chi.URLParam(r, "schema"))
	s.metrics.catalogOp("inspect_schema", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleTables(w http.ResponseWriter, r *http.Request) {
	views, err := queryBool(r, "views", false)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.queryContext(r)
	defer cancel()

	schemaName := chi.URLParam(r, "schema")
	var tables []*schema.TableInfo
	if views {
		tables, err = s.inspector.ViewNames(ctx, schemaName)
	} else {
		tables, err = s.inspector.TableNames(ctx, schemaName)
	}
	s.metrics.catalogOp("table_names", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tables)
}

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	t, err := s.inspector.Table(ctx, chi.URLParam(r, "schema"), chi.URLParam(r, "table"))
	s.metrics.catalogOp("describe_table", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleRoutines(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(r.URL.Query().Get("kind"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	kinds := []schema.RoutineKind{kind}
	if kind == "" {
		kinds = []schema.RoutineKind{schema.RoutineProcedure, schema.RoutineFunction}
	}

	ctx, cancel := s.queryContext(r)
	defer cancel()

	out := []*schema.RoutineInfo{}
	for _, k := range kinds {
		list, err := s.inspector.RoutineNames(ctx, chi.URLParam(r, "schema"), k)
		s.metrics.catalogOp("routine_names", err)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		out = append(out, list...)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRoutine(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(r.URL.Query().Get("kind"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.queryContext(r)
	defer cancel()

	routine, err := s.inspector.Routine(ctx, chi.URLParam(r, "schema"), chi.URLParam(r, "routine"), kind)
	s.metrics.catalogOp("describe_routine", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, routine)
}

// callResponse carries the caller-visible data and the output parameters.
type callResponse struct {
	Data any            `json:"data"`
	Out  map[string]any `json:"out,omitempty"`
}

func (s *Server) handleCall(w http.ResponseWriter, r *http.Request) {
	kind, err := parseKind(r.URL.Query().Get("kind"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	args, err := decodeArgs(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.queryContext(r)
	defer cancel()

	schemaName, name := chi.URLParam(r, "schema"), chi.URLParam(r, "routine")
	routine, err := s.inspector.Routine(ctx, schemaName, name, kind)
	if err != nil {
		label := string(kind)
		if label == "" {
			label = "any"
		}
		s.metrics.RoutineCallTotal.WithLabelValues(label, outcome(err)).Inc()
		s.writeError(w, r, err)
		return
	}

	res, err := s.inspector.Dialect().InvokeRoutine(ctx, routine, args)
	s.metrics.RoutineCallTotal.WithLabelValues(string(routine.Kind), outcome(err)).Inc()
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, callResponse{Data: res.Payload(), Out: res.Out})
}

func (s *Server) handleIntegrity(w http.ResponseWriter, r *http.Request) {
	enable, err := queryBool(r, "enable", true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.queryContext(r)
	defer cancel()

	s.mu.Lock()
	stmts, err := s.inspector.IntegrityStatements(ctx, s.cache, chi.URLParam(r, "schema"), enable)
	s.mu.Unlock()
	s.metrics.catalogOp("integrity", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stmts)
}

func (s *Server) handleApplyIntegrity(w http.ResponseWriter, r *http.Request) {
	enable, err := queryBool(r, "enable", true)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ctx, cancel := s.queryContext(r)
	defer cancel()

	s.mu.Lock()
	ran, err := s.inspector.ApplyIntegrity(ctx, s.cache, chi.URLParam(r, "schema"), enable)
	s.mu.Unlock()
	s.metrics.catalogOp("apply_integrity", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"enable": enable, "applied": ran})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	schemaName := chi.URLParam(r, "schema")
	s.mu.Lock()
	tables, err := s.cache.Refresh(ctx, schemaName, s.inspector.TableNames)
	s.mu.Unlock()
	s.metrics.catalogOp("cache_refresh", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"schema": schemaName, "tables": len(tables)})
}

func (s *Server) handlePublish(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := s.queryContext(r)
	defer cancel()

	info, err := s.inspector.InspectSchema(ctx, chi.URLParam(r, "schema"))
	s.metrics.catalogOp("inspect_schema", err)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	obj, err := s.publisher.Publish(ctx, s.inspector.Dialect().Name(), info)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, obj)
}

func (s *Server) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	objs, err := s.publisher.List(r.Context(), chi.URLParam(r, "schema"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, objs)
}

func (s *Server) handleLatestSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := s.publisher.Latest(r.Context(), chi.URLParam(r, "schema"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *Server) handleColumnDDL(w http.ResponseWriter, r *http.Request) {
	var col schema.ColumnInfo
	if err := decodeBody(w, r, &col, false); err != nil {
		s.writeError(w, r, err)
		return
	}
	def, err := s.inspector.ColumnDDL(&col)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"definition": def})
}

func parseKind(raw string) (schema.RoutineKind, error) {
	switch k := schema.RoutineKind(raw); k {
	case "", schema.RoutineProcedure, schema.RoutineFunction:
		return k, nil
	default:
		return "", errs.Newf(errs.ErrKindInvalidInput, "kind %q must be procedure or function", raw)
	}
}

func queryBool(r *http.Request, key string, def bool) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("invalid %s=%q", key, raw), err)
	}
	return v, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any, exact bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if exact {
		dec.UseNumber()
	}
	if err := dec.Decode(dst); err != nil {
		return errs.Wrap(errs.ErrKindInvalidInput, "invalid request body", err)
	}
	return nil
}

// decodeArgs reads the routine arguments. An empty body means no arguments.
// JSON numbers become int64 when integral and decimal.Decimal otherwise, so
// exact numerics reach the engine without a float round trip.
func decodeArgs(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	if r.ContentLength == 0 {
		return nil, nil
	}
	var args map[string]any
	if err := decodeBody(w, r, &args, true); err != nil {
		return nil, err
	}
	for k, v := range args {
		n, ok := v.(json.Number)
		if !ok {
			continue
		}
		if i, err := n.Int64(); err == nil {
			args[k] = i
			continue
		}
		d, err := decimal.NewFromString(n.String())
		if err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, fmt.Sprintf("invalid number for %s", k), err)
		}
		args[k] = d
	}
	return args, nil
}
