package domain

import (
	"fmt"
	"math"
)

type Tier string

const (
	TierLow    Tier = "low"
	TierMedium Tier = "medium"
	TierHigh   Tier = "high"
)

// Пороги строгие: ровно 0.10 - это ещё medium
const (
	HighErrorRateThreshold   = 0.10
	MediumErrorRateThreshold = 0.05

	// Ребро считается «горячим», если call_count строго больше порога
	HighTrafficCallCount = 100

	// Размер узла = qps / NodeSizeDivisor
	NodeSizeDivisor = 10.0
)

// TierFor классифицирует средний error rate сервиса
func TierFor(errorRate float64) Tier {
	switch {
	case errorRate > HighErrorRateThreshold:
		return TierHigh
	case errorRate > MediumErrorRateThreshold:
		return TierMedium
	default:
		return TierLow
	}
}

// Color возвращает цвет узла для слоя визуализации
func (t Tier) Color() string {
	switch t {
	case TierHigh:
		return "#e74c3c"
	case TierMedium:
		return "#f39c12"
	default:
		return "#2ecc71"
	}
}

type ServiceNode struct {
	ID       string       `json:"id"`
	Label    string       `json:"label"`
	Tier     Tier         `json:"tier"`
	Color    string       `json:"color"`
	Size     float64      `json:"size"`
	Title    string       `json:"title"` // Текст всплывающей подсказки
	Stats    ServiceStats `json:"stats"`
	Selected bool         `json:"selected"` // Проходит текущий фильтр (только для отображения)
}

// CallEdge - одно ребро на одну запись. Рёбра между одной парой не схлопываются.
type CallEdge struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Weight int64  `json:"weight"`
	Title  string `json:"title"`
}

type Summary struct {
	TotalServices     int `json:"total_services"`
	AnomalousServices int `json:"anomalous_services"` // error_rate > 0.10
	HighTrafficEdges  int `json:"high_traffic_edges"` // call_count > 100
}

// Thresholds - значения слайдеров панели фильтрации
type Thresholds struct {
	MinQPS       float64 `json:"min_qps"`
	MaxErrorRate float64 `json:"max_error_rate"`
}

// DefaultThresholds пропускает все сервисы
func DefaultThresholds() Thresholds {
	return Thresholds{MinQPS: 0, MaxErrorRate: 1}
}

func (t Thresholds) Validate() error {
	if math.IsNaN(t.MinQPS) || math.IsNaN(t.MaxErrorRate) {
		return fmt.Errorf("%w: NaN is not allowed", ErrInvalidThresholds)
	}
	if t.MinQPS < 0 {
		return fmt.Errorf("%w: min_qps must be non-negative, got %v", ErrInvalidThresholds, t.MinQPS)
	}
	if t.MaxErrorRate < 0 || t.MaxErrorRate > 1 {
		return fmt.Errorf("%w: max_error_rate must be within [0,1], got %v", ErrInvalidThresholds, t.MaxErrorRate)
	}
	return nil
}

// TopologyView - view-model, который отдаётся слою отображения на каждое взаимодействие
type TopologyView struct {
	DatasetID  string        `json:"dataset_id,omitempty"`
	Nodes      []ServiceNode `json:"nodes"`
	Edges      []CallEdge    `json:"edges"`
	Summary    Summary       `json:"summary"`
	Thresholds Thresholds    `json:"thresholds"`
	Filtered   []string      `json:"filtered_services"`
}
