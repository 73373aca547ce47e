package topology

import (
	"fmt"
	"sort"

	"github.com/xela07ax/servicemap-console/internal/domain"
)

// TimeSeries собирает записи сервиса (как вызываемого) в ряд, упорядоченный по времени.
func TimeSeries(records []domain.CallRecord, service string) ([]domain.TimePoint, error) {
	if len(records) == 0 {
		return nil, domain.ErrEmptyDataset
	}

	points := make([]domain.TimePoint, 0)
	for _, r := range records {
		if r.ServiceName != service {
			continue
		}
		points = append(points, domain.TimePoint{
			Timestamp:    r.Timestamp,
			QPS:          r.QPS,
			ErrorRate:    r.ErrorRate,
			ResponseTime: r.ResponseTime,
			CallCount:    r.CallCount,
		})
	}
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownService, service)
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points, nil
}
