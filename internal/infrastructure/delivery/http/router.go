// Package httprouter registers the public HTTP surface.
package httprouter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"slices"

	"tubefetch/internal/consts"
	"tubefetch/internal/entity"
	"tubefetch/internal/infrastructure/delivery/http/middleware"
	"tubefetch/internal/infrastructure/delivery/http/request"
	"tubefetch/internal/infrastructure/delivery/http/response"
	"tubefetch/internal/observability"
	"tubefetch/internal/quality"
	"tubefetch/internal/service"
	"tubefetch/pkg/logger"
)

type Router struct {
	*http.ServeMux
	log         *slog.Logger
	globalChain []func(http.Handler) http.Handler
	svc         *service.Service
}

func New(log *slog.Logger, svc *service.Service, metrics *observability.Metrics) *Router {
	r := &Router{
		ServeMux: http.NewServeMux(),
		log:      logger.Pkg(log, "httprouter"),
		svc:      svc,
	}

	r.Use(
		middleware.CORS,
		middleware.Recoverer,
		middleware.RequestID,
		middleware.Logger,
		middleware.Metrics(metrics),
	)

	r.SetRoutes()

	return r
}

func (r *Router) Use(mw ...func(http.Handler) http.Handler) {
	r.globalChain = append(r.globalChain, mw...)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.ServeMux

	for _, mw := range slices.Backward(r.globalChain) {
		h = mw(h)
	}

	h.ServeHTTP(w, req)
}

func (r *Router) SetRoutes() {
	r.HandleFunc("GET /{$}", r.Index)
	r.HandleFunc("POST /download", r.Download)
	r.HandleFunc("POST /formats", r.Formats)
	r.Handle("GET /metrics", observability.Handler())
}

// Index serves the liveness string.
func (ro *Router) Index(w http.ResponseWriter, _ *http.Request) {
	response.Text(w, http.StatusOK, consts.RespLiveness)
}

// Download resolves, downloads and streams one video as a file attachment.
// The workspace is released after the response is sent; on any earlier
// failure the service has already released it.
func (ro *Router) Download(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With(slog.String("handler", "Download"))
	ctx := r.Context()

	var in request.Download
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.Error(w, http.StatusBadRequest, consts.RespInvalidRequestBody)

		return
	}

	in.SetDefaults()

	if err := in.Validate(); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())

		return
	}

	artifact, release, err := ro.svc.Download(ctx, in.URL, in.Quality, in.Format)

	var unsupported *quality.UnsupportedError
	if errors.As(err, &unsupported) {
		log.DebugContext(ctx, "unsupported quality", slog.String("quality", in.Quality))
		response.Error(w, http.StatusBadRequest, unsupported.Error())

		return
	}

	if err != nil {
		log.ErrorContext(ctx, "download failed", slog.Any("error", err))
		response.Error(w, http.StatusInternalServerError, err.Error())

		return
	}

	defer release()

	if err := response.Attachment(w, r, artifact); err != nil {
		log.ErrorContext(ctx, "stream artifact", slog.Any("error", err))
		response.Error(w, http.StatusInternalServerError, err.Error())
	}
}

// Formats lists the available encodings for a URL.
func (ro *Router) Formats(w http.ResponseWriter, r *http.Request) {
	log := ro.log.With(slog.String("handler", "Formats"))
	ctx := r.Context()

	var in request.Formats
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		log.ErrorContext(ctx, consts.RespInvalidRequestBody, slog.Any("error", err))
		response.Error(w, http.StatusBadRequest, consts.RespInvalidRequestBody)

		return
	}

	if err := in.Validate(); err != nil {
		response.Error(w, http.StatusBadRequest, err.Error())

		return
	}

	entries, err := ro.svc.Formats(ctx, in.URL)
	if err != nil {
		log.ErrorContext(ctx, "list formats", slog.Any("error", err))
		response.Error(w, http.StatusInternalServerError, err.Error())

		return
	}

	if entries == nil {
		entries = []entity.CapabilityEntry{}
	}

	response.JSON(w, http.StatusOK, entries)
}
