package topology

import (
	"sort"

	"github.com/xela07ax/servicemap-console/internal/domain"
)

// Filter возвращает сервисы с qps >= MinQPS и error_rate <= MaxErrorRate.
// Фильтр только для отображения: рёбра и агрегаты не пересчитываются.
func Filter(stats map[string]domain.ServiceStats, t domain.Thresholds) []string {
	out := make([]string, 0, len(stats))
	for name, s := range stats {
		if s.MeanQPS >= t.MinQPS && s.MeanErrorRate <= t.MaxErrorRate {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
