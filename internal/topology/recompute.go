package topology

import (
	"github.com/xela07ax/servicemap-console/internal/domain"
)

// Recompute - граница «датасет + пороги -> view-model». Слой отображения вызывает её
// на каждое изменение слайдеров; общего изменяемого состояния нет.
func Recompute(records []domain.CallRecord, t domain.Thresholds) (domain.TopologyView, error) {
	if err := t.Validate(); err != nil {
		return domain.TopologyView{}, err
	}

	stats, err := Aggregate(records)
	if err != nil {
		return domain.TopologyView{}, err
	}

	g, err := Build(records, stats)
	if err != nil {
		return domain.TopologyView{}, err
	}

	filtered := Filter(stats, t)
	selected := make(map[string]struct{}, len(filtered))
	for _, name := range filtered {
		selected[name] = struct{}{}
	}
	for i := range g.Nodes {
		_, g.Nodes[i].Selected = selected[g.Nodes[i].ID]
	}

	return domain.TopologyView{
		Nodes:      g.Nodes,
		Edges:      g.Edges,
		Summary:    Summarize(g),
		Thresholds: t,
		Filtered:   filtered,
	}, nil
}
