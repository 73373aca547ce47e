package topology

import (
	"sort"

	"github.com/xela07ax/servicemap-console/internal/domain"
)

// Mean - среднее арифметическое. Для пустой группы значение не определено.
func Mean(values []float64) (float64, error) {
	if len(values) == 0 {
		return 0, domain.ErrUndefinedMean
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), nil
}

// DistinctServices возвращает отсортированный список вызываемых сервисов (service_name)
func DistinctServices(records []domain.CallRecord) []string {
	seen := make(map[string]struct{}, len(records))
	names := make([]string, 0)
	for _, r := range records {
		if _, ok := seen[r.ServiceName]; ok {
			continue
		}
		seen[r.ServiceName] = struct{}{}
		names = append(names, r.ServiceName)
	}
	sort.Strings(names)
	return names
}

// Aggregate считает средние error_rate, qps и response_time по каждому service_name.
// Пересчитывается целиком на каждый вызов, инкрементальных обновлений нет.
func Aggregate(records []domain.CallRecord) (map[string]domain.ServiceStats, error) {
	if len(records) == 0 {
		return nil, domain.ErrEmptyDataset
	}

	type group struct {
		errorRates, qps, responseTimes []float64
	}
	groups := make(map[string]*group)
	for _, r := range records {
		g, ok := groups[r.ServiceName]
		if !ok {
			g = &group{}
			groups[r.ServiceName] = g
		}
		g.errorRates = append(g.errorRates, r.ErrorRate)
		g.qps = append(g.qps, r.QPS)
		g.responseTimes = append(g.responseTimes, r.ResponseTime)
	}

	stats := make(map[string]domain.ServiceStats, len(groups))
	for name, g := range groups {
		s := domain.ServiceStats{Service: name, Samples: len(g.qps)}
		var err error
		if s.MeanErrorRate, err = Mean(g.errorRates); err != nil {
			return nil, &domain.UndefinedMeanError{Service: name}
		}
		if s.MeanQPS, err = Mean(g.qps); err != nil {
			return nil, &domain.UndefinedMeanError{Service: name}
		}
		if s.MeanResponseTime, err = Mean(g.responseTimes); err != nil {
			return nil, &domain.UndefinedMeanError{Service: name}
		}
		stats[name] = s
	}

	return stats, nil
}
