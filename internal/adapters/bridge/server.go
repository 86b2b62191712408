package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/bnema/draftguard/internal/application"
	"github.com/bnema/draftguard/internal/domain"
	"github.com/bnema/draftguard/internal/ports"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 5 * time.Second
)

// Scheduler is the part of the auto-save scheduler the bridge exposes.
type Scheduler interface {
	Status() application.AutoSaveStatus
	SaveNow(ctx context.Context) error
}

// Server is the host bridge: a local HTTP endpoint through which a host
// pushes form edits and reads the save status. It is a change source, so the
// monitor owns its lifetime.
type Server struct {
	addr      string
	scheduler Scheduler
	metrics   http.Handler
	logger    *zap.Logger
	validate  *validator.Validate

	ready chan net.Addr
}

var _ ports.ChangeSource = (*Server)(nil)

func New(addr string, scheduler Scheduler, metrics http.Handler, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		addr:      addr,
		scheduler: scheduler,
		metrics:   metrics,
		logger:    logger,
		validate:  validator.New(),
		ready:     make(chan net.Addr, 1),
	}
}

// Ready yields the bound address once the listener is up.
func (s *Server) Ready() <-chan net.Addr {
	return s.ready
}

func (s *Server) Run(ctx context.Context, sink ports.ChangeSink) error {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.Handler(sink),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(listener)
	}()

	s.logger.Info("host bridge listening", zap.String("addr", listener.Addr().String()))
	s.ready <- listener.Addr()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve host bridge: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown host bridge: %w", err)
	}
	return ctx.Err()
}

func (s *Server) Handler(sink ports.ChangeSink) http.Handler {
	h := &handlers{sink: sink, scheduler: s.scheduler, validate: s.validate, logger: s.logger}

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.Recoverer)
	router.Use(requestLogger(s.logger))

	router.Post("/fields", h.mergeFields)
	router.Post("/fields/{name}", h.setField)
	router.Get("/status", h.status)
	router.Post("/save", h.save)
	if s.metrics != nil {
		router.Method(http.MethodGet, "/metrics", s.metrics)
	}

	return router
}

type handlers struct {
	sink      ports.ChangeSink
	scheduler Scheduler
	validate  *validator.Validate
	logger    *zap.Logger
}

type fieldChangeRequest struct {
	Value *string `json:"value" validate:"required"`
}

type statusResponse struct {
	State     string     `json:"state"`
	Indicator string     `json:"indicator"`
	LastSaved *time.Time `json:"lastSaved,omitempty"`
	DraftID   string     `json:"draftId,omitempty"`
	Pending   int        `json:"pending"`
	Dirty     bool       `json:"dirty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handlers) mergeFields(w http.ResponseWriter, r *http.Request) {
	var values map[string]string
	if err := decodeBody(r, &values); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	h.sink.Merge(values)
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) setField(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if err := h.validate.Var(name, "required,max=255"); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "invalid field name")
		return
	}

	var req fieldChangeRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, "value is required")
		return
	}

	h.sink.Observe(ports.FieldChange{Name: name, Value: *req.Value})
	w.WriteHeader(http.StatusNoContent)
}

func (h *handlers) status(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, toStatusResponse(h.scheduler.Status()))
}

func (h *handlers) save(w http.ResponseWriter, r *http.Request) {
	err := h.scheduler.SaveNow(r.Context())
	switch {
	case errors.Is(err, domain.ErrSaveInProgress):
		respondError(w, http.StatusConflict, err.Error())
	case err != nil:
		respondError(w, http.StatusBadGateway, err.Error())
	default:
		respondJSON(w, http.StatusOK, toStatusResponse(h.scheduler.Status()))
	}
}

func toStatusResponse(status application.AutoSaveStatus) statusResponse {
	resp := statusResponse{
		State:     string(status.State),
		Indicator: status.Indicator(),
		DraftID:   string(status.DraftID),
		Pending:   status.Pending,
		Dirty:     status.Dirty,
	}
	if !status.LastSaved.IsZero() {
		lastSaved := status.LastSaved.UTC()
		resp.LastSaved = &lastSaved
	}
	return resp
}

func decodeBody(r *http.Request, v any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	return decoder.Decode(v)
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, errorResponse{Error: message})
}

func requestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("bridge request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", chimiddleware.GetReqID(r.Context())),
			)
		})
	}
}
