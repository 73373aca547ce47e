package topology

import (
	"fmt"

	"github.com/xela07ax/servicemap-console/internal/domain"
)

// Graph - направленный мультиграф вызовов
type Graph struct {
	Nodes []domain.ServiceNode
	Edges []domain.CallEdge
}

// Build строит узлы по каждому сервису и по одному ребру на каждую запись с caller.
// Рёбра не схлопываются: две записи A->B дают два ребра со своими весами.
//
// Caller, у которого нет ни одной собственной записи, не имеет определенных средних,
// поэтому такой датасет отклоняется с UndefinedMeanError.
func Build(records []domain.CallRecord, stats map[string]domain.ServiceStats) (Graph, error) {
	if len(records) == 0 {
		return Graph{}, domain.ErrEmptyDataset
	}

	names := DistinctServices(records)
	g := Graph{
		Nodes: make([]domain.ServiceNode, 0, len(names)),
		Edges: make([]domain.CallEdge, 0),
	}

	for _, name := range names {
		s, ok := stats[name]
		if !ok {
			return Graph{}, &domain.UndefinedMeanError{Service: name}
		}
		g.Nodes = append(g.Nodes, newNode(s))
	}

	for _, r := range records {
		if !r.HasCaller() {
			continue
		}
		caller := r.Caller()
		if _, ok := stats[caller]; !ok {
			return Graph{}, &domain.UndefinedMeanError{Service: caller}
		}
		g.Edges = append(g.Edges, domain.CallEdge{
			From:   caller,
			To:     r.ServiceName,
			Weight: r.CallCount,
			Title:  fmt.Sprintf("calls: %d", r.CallCount),
		})
	}

	return g, nil
}

func newNode(s domain.ServiceStats) domain.ServiceNode {
	tier := domain.TierFor(s.MeanErrorRate)
	return domain.ServiceNode{
		ID:    s.Service,
		Label: s.Service,
		Tier:  tier,
		Color: tier.Color(),
		Size:  s.MeanQPS / domain.NodeSizeDivisor,
		Title: fmt.Sprintf("%s\nerror rate: %.2f%%\nqps: %.1f\nresponse time: %.0f ms",
			s.Service, s.MeanErrorRate*100, s.MeanQPS, s.MeanResponseTime),
		Stats: s,
	}
}

// Summarize считает счетчики для верхней панели метрик
func Summarize(g Graph) domain.Summary {
	sum := domain.Summary{TotalServices: len(g.Nodes)}
	for _, n := range g.Nodes {
		if n.Stats.MeanErrorRate > domain.HighErrorRateThreshold {
			sum.AnomalousServices++
		}
	}
	for _, e := range g.Edges {
		if e.Weight > domain.HighTrafficCallCount {
			sum.HighTrafficEdges++
		}
	}
	return sum
}
