package topology

import (
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xela07ax/servicemap-console/internal/domain"
)

var t0 = time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

func caller(s string) *string { return &s }

func rec(service string, from *string, calls int64, qps, errRate, rt float64, ts time.Time) domain.CallRecord {
	return domain.CallRecord{
		ServiceName:   service,
		CallerService: from,
		CallCount:     calls,
		QPS:           qps,
		ErrorRate:     errRate,
		ResponseTime:  rt,
		Timestamp:     ts,
	}
}

func scenario() []domain.CallRecord {
	return []domain.CallRecord{
		rec("A", nil, 10, 50, 0.02, 100, t0),
		rec("B", caller("A"), 150, 20, 0.12, 300, t0),
	}
}

func TestRecomputeScenario(t *testing.T) {
	view, err := Recompute(scenario(), domain.Thresholds{MinQPS: 0, MaxErrorRate: 0.10})
	require.NoError(t, err)

	require.Len(t, view.Nodes, 2)
	a, b := view.Nodes[0], view.Nodes[1]
	assert.Equal(t, "A", a.ID)
	assert.Equal(t, domain.TierLow, a.Tier)
	assert.InDelta(t, 5.0, a.Size, 1e-9)
	assert.Equal(t, "B", b.ID)
	assert.Equal(t, domain.TierHigh, b.Tier)
	assert.InDelta(t, 2.0, b.Size, 1e-9)

	require.Len(t, view.Edges, 1)
	assert.Equal(t, domain.CallEdge{From: "A", To: "B", Weight: 150, Title: "calls: 150"}, view.Edges[0])

	assert.Equal(t, domain.Summary{TotalServices: 2, AnomalousServices: 1, HighTrafficEdges: 1}, view.Summary)
	assert.Equal(t, []string{"A"}, view.Filtered)
	assert.True(t, a.Selected)
	assert.False(t, b.Selected)
}

func TestTierBoundaries(t *testing.T) {
	tests := []struct {
		rate float64
		want domain.Tier
	}{
		{0, domain.TierLow},
		{0.05, domain.TierLow},
		{0.0500001, domain.TierMedium},
		{0.10, domain.TierMedium},
		{0.1000001, domain.TierHigh},
		{1, domain.TierHigh},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.rate), func(t *testing.T) {
			assert.Equal(t, tt.want, domain.TierFor(tt.rate))
		})
	}
}

func TestAggregateSingleRecordRoundTrip(t *testing.T) {
	r := rec("svc", nil, 7, 12.5, 0.03, 87.25, t0)
	stats, err := Aggregate([]domain.CallRecord{r})
	require.NoError(t, err)

	s := stats["svc"]
	assert.Equal(t, r.QPS, s.MeanQPS)
	assert.Equal(t, r.ErrorRate, s.MeanErrorRate)
	assert.Equal(t, r.ResponseTime, s.MeanResponseTime)
	assert.Equal(t, 1, s.Samples)
}

func TestAggregateMeans(t *testing.T) {
	records := []domain.CallRecord{
		rec("A", nil, 1, 10, 0.0, 100, t0),
		rec("A", nil, 1, 30, 0.2, 300, t0.Add(time.Minute)),
		rec("B", caller("A"), 1, 5, 0.1, 50, t0),
	}
	stats, err := Aggregate(records)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	assert.InDelta(t, 20.0, stats["A"].MeanQPS, 1e-9)
	assert.InDelta(t, 0.1, stats["A"].MeanErrorRate, 1e-9)
	assert.InDelta(t, 200.0, stats["A"].MeanResponseTime, 1e-9)
	assert.Equal(t, 2, stats["A"].Samples)
}

func TestAggregateEmpty(t *testing.T) {
	_, err := Aggregate(nil)
	assert.ErrorIs(t, err, domain.ErrEmptyDataset)

	_, err = Recompute(nil, domain.DefaultThresholds())
	assert.ErrorIs(t, err, domain.ErrEmptyDataset)
}

func TestMeanEmpty(t *testing.T) {
	_, err := Mean(nil)
	assert.ErrorIs(t, err, domain.ErrUndefinedMean)
}

func TestBuildKeepsParallelEdges(t *testing.T) {
	records := []domain.CallRecord{
		rec("A", nil, 1, 10, 0, 1, t0),
		rec("B", caller("A"), 40, 10, 0, 1, t0),
		rec("B", caller("A"), 60, 10, 0, 1, t0.Add(time.Minute)),
	}
	stats, err := Aggregate(records)
	require.NoError(t, err)

	g, err := Build(records, stats)
	require.NoError(t, err)
	require.Len(t, g.Edges, 2)
	assert.Equal(t, int64(40), g.Edges[0].Weight)
	assert.Equal(t, int64(60), g.Edges[1].Weight)
	assert.Equal(t, 0, Summarize(g).HighTrafficEdges)
}

func TestBuildRejectsCallerWithoutRecords(t *testing.T) {
	records := []domain.CallRecord{
		rec("B", caller("ghost"), 1, 10, 0, 1, t0),
	}
	stats, err := Aggregate(records)
	require.NoError(t, err)

	_, err = Build(records, stats)
	var ume *domain.UndefinedMeanError
	require.ErrorAs(t, err, &ume)
	assert.Equal(t, "ghost", ume.Service)
	assert.ErrorIs(t, err, domain.ErrUndefinedMean)
}

func TestRecomputeInvalidThresholds(t *testing.T) {
	_, err := Recompute(scenario(), domain.Thresholds{MinQPS: -1, MaxErrorRate: 0.5})
	assert.ErrorIs(t, err, domain.ErrInvalidThresholds)

	_, err = Recompute(scenario(), domain.Thresholds{MinQPS: 0, MaxErrorRate: 1.5})
	assert.ErrorIs(t, err, domain.ErrInvalidThresholds)
}

// randomDataset строит согласованный датасет: каждый caller сам встречается как service_name
func randomDataset(rng *rand.Rand, n int) []domain.CallRecord {
	services := []string{"gateway", "auth", "orders", "payments", "inventory", "search"}
	records := make([]domain.CallRecord, 0, n+len(services))
	for _, s := range services {
		records = append(records, rec(s, nil, int64(rng.Intn(50)), rng.Float64()*200, rng.Float64()*0.2, rng.Float64()*500, t0))
	}
	for i := 0; i < n; i++ {
		callee := services[rng.Intn(len(services))]
		var from *string
		if rng.Intn(4) > 0 {
			from = caller(services[rng.Intn(len(services))])
		}
		records = append(records, rec(callee, from, int64(rng.Intn(300)), rng.Float64()*200,
			rng.Float64()*0.2, rng.Float64()*500, t0.Add(time.Duration(i)*time.Second)))
	}
	return records
}

func TestGraphProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 50; i++ {
		records := randomDataset(rng, rng.Intn(40))

		view, err := Recompute(records, domain.DefaultThresholds())
		require.NoError(t, err)

		// Узлов столько же, сколько уникальных service_name
		assert.Len(t, view.Nodes, len(DistinctServices(records)))

		// Каждая запись с caller дает ровно свое ребро, в исходном порядке
		var want []domain.CallEdge
		for _, r := range records {
			if r.HasCaller() {
				want = append(want, domain.CallEdge{From: r.Caller(), To: r.ServiceName, Weight: r.CallCount})
			}
		}
		require.Len(t, view.Edges, len(want))
		nodes := make(map[string]bool)
		for _, n := range view.Nodes {
			nodes[n.ID] = true
		}
		for j, e := range view.Edges {
			assert.Equal(t, want[j].From, e.From)
			assert.Equal(t, want[j].To, e.To)
			assert.Equal(t, want[j].Weight, e.Weight)
			assert.True(t, nodes[e.From] && nodes[e.To], "edge endpoints must be nodes")
		}
	}
}

func TestFilterMonotonic(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	stats, err := Aggregate(randomDataset(rng, 60))
	require.NoError(t, err)

	prev := len(stats) + 1
	for q := 0.0; q <= 250; q += 12.5 {
		n := len(Filter(stats, domain.Thresholds{MinQPS: q, MaxErrorRate: 1}))
		assert.LessOrEqual(t, n, prev, "raising min_qps must not grow the set")
		prev = n
	}

	prev = len(stats) + 1
	for e := 1.0; e >= 0; e -= 0.01 {
		n := len(Filter(stats, domain.Thresholds{MinQPS: 0, MaxErrorRate: e}))
		assert.LessOrEqual(t, n, prev, "lowering max_error_rate must not grow the set")
		prev = n
	}
}

func TestFilterInclusiveBounds(t *testing.T) {
	stats := map[string]domain.ServiceStats{
		"edge": {Service: "edge", MeanQPS: 10, MeanErrorRate: 0.05},
		"low":  {Service: "low", MeanQPS: 9.99, MeanErrorRate: 0},
		"bad":  {Service: "bad", MeanQPS: 100, MeanErrorRate: 0.051},
	}
	assert.Equal(t, []string{"edge"}, Filter(stats, domain.Thresholds{MinQPS: 10, MaxErrorRate: 0.05}))
}

func TestTimeSeries(t *testing.T) {
	records := []domain.CallRecord{
		rec("A", nil, 1, 3, 0, 1, t0.Add(2*time.Minute)),
		rec("B", caller("A"), 1, 9, 0, 1, t0),
		rec("A", nil, 2, 1, 0, 1, t0),
		rec("A", caller("B"), 3, 2, 0, 1, t0.Add(time.Minute)),
	}

	points, err := TimeSeries(records, "A")
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, []float64{1, 2, 3}, []float64{points[0].QPS, points[1].QPS, points[2].QPS})

	_, err = TimeSeries(records, "missing")
	assert.ErrorIs(t, err, domain.ErrUnknownService)

	_, err = TimeSeries(nil, "A")
	assert.ErrorIs(t, err, domain.ErrEmptyDataset)
}
