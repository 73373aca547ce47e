package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/xela07ax/servicemap-console/internal/domain"
	"github.com/xela07ax/servicemap-console/internal/ingest"
)

// TopologyService Описываем, что нам нужно от сервиса
type TopologyService interface {
	Upload(ctx context.Context, name string, format ingest.Format, r io.Reader) (domain.Dataset, error)
	View(ctx context.Context, t domain.Thresholds) (domain.TopologyView, error)
	TimeSeries(ctx context.Context, service string) ([]domain.TimePoint, error)
	Datasets(ctx context.Context) ([]domain.Dataset, error)
	Restore(ctx context.Context, id string) (domain.Dataset, error)
	DefaultThresholds() domain.Thresholds
}

type TopologyHandler struct {
	service        TopologyService
	maxUploadBytes int64
	logger         *zap.Logger
}

func NewTopologyHandler(s TopologyService, maxUploadBytes int64, logger *zap.Logger) *TopologyHandler {
	return &TopologyHandler{service: s, maxUploadBytes: maxUploadBytes, logger: logger.Named("topology-handler")}
}

// Upload принимает таблицу трассировок.
// POST /v1/topology/datasets - multipart с полем "file" или сырое тело (?name=&format=)
func (h *TopologyHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if h.maxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	}
	explicit := r.URL.Query().Get("format")

	var (
		name   string
		format ingest.Format
		body   io.Reader
		err    error
	)

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "multipart/form-data" {
		file, header, ferr := r.FormFile("file")
		if ferr != nil {
			var mbe *http.MaxBytesError
			if errors.As(ferr, &mbe) {
				writeError(w, h.logger, ferr)
				return
			}
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Details: "multipart field \"file\" is required"})
			return
		}
		defer file.Close()

		name = header.Filename
		format, err = ingest.DetectFormat(explicit, name, header.Header.Get("Content-Type"))
		body = file
	} else {
		name = r.URL.Query().Get("name")
		if name == "" {
			name = "upload"
		}
		format, err = ingest.DetectFormat(explicit, name, r.Header.Get("Content-Type"))
		body = r.Body
	}
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	ds, err := h.service.Upload(r.Context(), name, format, body)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, ds)
}

// Graph отдает view-model графа под текущие пороги.
// GET /v1/topology/graph?min_qps=10&max_error_rate=0.05
func (h *TopologyHandler) Graph(w http.ResponseWriter, r *http.Request) {
	t, err := h.thresholds(r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	view, err := h.service.View(r.Context(), t)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *TopologyHandler) thresholds(r *http.Request) (domain.Thresholds, error) {
	t := h.service.DefaultThresholds()
	q := r.URL.Query()

	parse := func(key string, dst *float64) error {
		raw := strings.TrimSpace(q.Get(key))
		if raw == "" {
			return nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a number", domain.ErrInvalidThresholds, key, raw)
		}
		*dst = v
		return nil
	}
	if err := parse("min_qps", &t.MinQPS); err != nil {
		return t, err
	}
	if err := parse("max_error_rate", &t.MaxErrorRate); err != nil {
		return t, err
	}
	return t, nil
}

// TimeSeries - временной ряд сервиса.
// GET /v1/topology/services/{name}/timeseries
func (h *TopologyHandler) TimeSeries(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Details: "service name is required"})
		return
	}

	points, err := h.service.TimeSeries(r.Context(), name)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"service": name, "points": points})
}

// Datasets - история загрузок. GET /v1/topology/datasets
func (h *TopologyHandler) Datasets(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.Datasets(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// Restore делает архивный датасет текущим. POST /v1/topology/datasets/{id}/restore
func (h *TopologyHandler) Restore(w http.ResponseWriter, r *http.Request) {
	ds, err := h.service.Restore(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ds)
}
