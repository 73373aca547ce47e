package topology

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/xela07ax/servicemap-console/internal/domain"
)

type Metrics struct {
	// Traffic: сколько записей пришло с загрузками
	RecordsIngested *prometheus.CounterVec

	// Errors: отказы ингеста и пересчета по типам
	ErrorTotal *prometheus.CounterVec

	// Latency: время пересчета view-model
	RecomputeDuration prometheus.Histogram

	// Состояние последнего пересчета
	Services          prometheus.Gauge
	AnomalousServices prometheus.Gauge

	// Archive: заполненность буфера архиватора (backpressure)
	ArchiveBufferFill prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	// Null Object Pattern - если регистратор не передан, используем локальный
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		RecordsIngested: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "servicemap_records_ingested_total",
			Help: "Total number of call records ingested.",
		}, []string{"format"}),

		ErrorTotal: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "servicemap_errors_total",
			Help: "Total number of errors by type.",
		}, []string{"type"}), // типы: parse, empty_dataset, undefined_mean, thresholds, internal

		RecomputeDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "servicemap_recompute_duration_seconds",
			Help:    "Histogram of topology recompute latencies.",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		}),

		Services: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "servicemap_services",
			Help: "Number of services in the last computed topology.",
		}),

		AnomalousServices: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "servicemap_anomalous_services",
			Help: "Number of services with mean error rate above 10% in the last computed topology.",
		}),

		ArchiveBufferFill: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "servicemap_archive_buffer_utilization",
			Help: "Current number of records waiting in the archive buffer.",
		}),
	}
}

// ErrorType сводит ошибку к метке для ErrorTotal
func ErrorType(err error) string {
	var pe *domain.ParseError
	switch {
	case errors.As(err, &pe):
		return "parse"
	case errors.Is(err, domain.ErrEmptyDataset):
		return "empty_dataset"
	case errors.Is(err, domain.ErrUndefinedMean):
		return "undefined_mean"
	case errors.Is(err, domain.ErrInvalidThresholds):
		return "thresholds"
	case errors.Is(err, domain.ErrUnsupportedFormat):
		return "format"
	default:
		return "internal"
	}
}

// ObserveRecompute фиксирует длительность и итог пересчета
func (m *Metrics) ObserveRecompute(start time.Time, view domain.TopologyView, err error) {
	m.RecomputeDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		m.ErrorTotal.WithLabelValues(ErrorType(err)).Inc()
		return
	}
	m.Services.Set(float64(view.Summary.TotalServices))
	m.AnomalousServices.Set(float64(view.Summary.AnomalousServices))
}
