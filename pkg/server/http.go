package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/framekit/pkg/draw"
	"github.com/matzehuels/framekit/pkg/errors"
	"github.com/matzehuels/framekit/pkg/render/wireframe"
)

// ResizeRequest is the body of POST /resize.
type ResizeRequest struct {
	Width  uint32 `json:"width" validate:"required,lte=100000"`
	Height uint32 `json:"height" validate:"required,lte=100000"`
}

// VisibilityRequest is the body of PUT /entities/{name}/visibility.
type VisibilityRequest struct {
	State string `json:"state" validate:"required,oneof=visible hidden collapsed"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var requestValidate = validator.New()

// Options configures NewHandler.
type Options struct {
	// Logger receives one line per request. Defaults to log.Default().
	Logger *log.Logger
	// Gatherer backs GET /metrics. When nil the route is not mounted.
	Gatherer prometheus.Gatherer
}

type handler struct {
	host   *Host
	logger *log.Logger
}

// NewHandler returns the HTTP API for host:
//
//	GET  /healthz
//	GET  /layout                      current Snapshot as JSON
//	GET  /layout/{name}               one node as JSON
//	GET  /layout.svg                  wireframe of the current layout
//	POST /resize                      ResizeRequest
//	PUT  /entities/{name}/visibility  VisibilityRequest
//	GET  /metrics                     Prometheus exposition, when Options.Gatherer is set
func NewHandler(host *Host, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	h := &handler{host: host, logger: opts.Logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	r.Get("/layout", h.getLayout)
	r.Get("/layout.svg", h.getLayoutSVG)
	r.Get("/layout/{name}", h.getNode)
	r.Post("/resize", h.postResize)
	r.Put("/entities/{name}/visibility", h.putVisibility)
	if opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	return r
}

func (h *handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "took", time.Since(start))
	})
}

func (h *handler) getLayout(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.host.Snapshot())
}

func (h *handler) getNode(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	n, ok := h.host.Snapshot().Node(name)
	if !ok {
		h.writeError(w, errors.New(errors.ErrCodeUnknownEntity, "no entity named %q", name))
		return
	}
	h.writeJSON(w, http.StatusOK, n)
}

func (h *handler) getLayoutSVG(w http.ResponseWriter, r *http.Request) {
	snap := h.host.Snapshot()
	w.Header().Set("Content-Type", "image/svg+xml")
	if _, err := w.Write(wireframe.RenderSVG(snap.Nodes, snap.Window, wireframe.WithHidden())); err != nil {
		h.logger.Error("write svg", "err", err)
	}
}

func (h *handler) postResize(w http.ResponseWriter, r *http.Request) {
	var req ResizeRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), waitTimeout)
	defer cancel()
	if err := h.host.Resize(ctx, req.Width, req.Height); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.host.Snapshot())
}

func (h *handler) putVisibility(w http.ResponseWriter, r *http.Request) {
	var req VisibilityRequest
	if err := h.decode(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	state, err := draw.ParseVisibilityState(req.State)
	if err != nil {
		h.writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "visibility"))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), waitTimeout)
	defer cancel()
	if err := h.host.SetVisibility(ctx, chi.URLParam(r, "name"), state); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, h.host.Snapshot())
}

func (h *handler) decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "decode request body")
	}
	if err := requestValidate.Struct(v); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidInput, err, "validate request body")
	}
	return nil
}

func (h *handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("encode response", "err", err)
	}
}

func (h *handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error("request failed", "err", err)
	}
	code := string(errors.GetCode(err))
	if code == "" {
		code = string(errors.ErrCodeInternal)
	}
	h.writeJSON(w, status, ErrorResponse{Code: code, Message: errors.UserMessage(err)})
}

func statusFor(err error) int {
	switch errors.GetCode(err) {
	case errors.ErrCodeUnknownEntity:
		return http.StatusNotFound
	case errors.ErrCodeInvalidInput:
		return http.StatusBadRequest
	}
	switch {
	case stderrors.Is(err, ErrStopped):
		return http.StatusServiceUnavailable
	case stderrors.Is(err, context.DeadlineExceeded), stderrors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	}
	return http.StatusInternalServerError
}
