package cluster

import (
	"testing"
	"time"

	"AlphaWalk/internal/domain/models"
)

func twoGroupTable() *models.FeatureTable {
	names := []string{"garman_klass_vol", "rsi", "bb_mid", "return_1m"}
	date := time.Date(2024, 6, 28, 0, 0, 0, 0, time.UTC)
	table := &models.FeatureTable{Names: names}

	// low-vol, low-RSI group
	for i, tk := range []string{"AAA", "BBB", "CCC"} {
		off := float64(i) * 0.01
		table.Rows = append(table.Rows, models.FeatureRow{
			Date: date, Ticker: tk,
			Values: []float64{0.0001 + off/100, 30 + off, 5 + off, 0.5},
		})
	}
	// high-vol, high-RSI group
	for i, tk := range []string{"XXX", "YYY", "ZZZ"} {
		off := float64(i) * 0.01
		table.Rows = append(table.Rows, models.FeatureRow{
			Date: date, Ticker: tk,
			Values: []float64{0.01 + off/100, 75 + off, 9 + off, -0.5},
		})
	}
	return table
}

func TestClusterSeparatesGroups(t *testing.T) {
	svc := NewService()
	res, err := svc.Cluster(twoGroupTable(), 2)
	if err != nil {
		t.Fatalf("cluster: %v", err)
	}
	if res.NClusters != 2 {
		t.Fatalf("n_clusters = %d, want 2", res.NClusters)
	}
	if len(res.Labels) != 6 || len(res.Tickers) != 6 {
		t.Fatalf("labels/tickers length = %d/%d, want 6", len(res.Labels), len(res.Tickers))
	}

	byTicker := make(map[string]int)
	for i, tk := range res.Tickers {
		byTicker[tk] = res.Labels[i]
	}
	if byTicker["AAA"] != byTicker["BBB"] || byTicker["BBB"] != byTicker["CCC"] {
		t.Fatalf("low group split across clusters: %v", byTicker)
	}
	if byTicker["XXX"] != byTicker["YYY"] || byTicker["YYY"] != byTicker["ZZZ"] {
		t.Fatalf("high group split across clusters: %v", byTicker)
	}
	if byTicker["AAA"] == byTicker["XXX"] {
		t.Fatalf("groups merged into one cluster: %v", byTicker)
	}
}

func TestClusterSilhouetteWellSeparated(t *testing.T) {
	svc := NewService()
	res, err := svc.Cluster(twoGroupTable(), 2)
	if err != nil {
		t.Fatalf("cluster: %v", err)
	}
	if res.Silhouette < 0.8 {
		t.Fatalf("silhouette = %v, want > 0.8 for well-separated groups", res.Silhouette)
	}
}

func TestClusterStats(t *testing.T) {
	svc := NewService()
	res, err := svc.Cluster(twoGroupTable(), 2)
	if err != nil {
		t.Fatalf("cluster: %v", err)
	}
	if len(res.Stats) != 2 {
		t.Fatalf("stats length = %d, want 2", len(res.Stats))
	}
	var low, high *models.ClusterStat
	for i := range res.Stats {
		s := &res.Stats[i]
		if s.NStocks != 3 {
			t.Fatalf("cluster %d has %d stocks, want 3", s.ClusterID, s.NStocks)
		}
		if s.AvgRSI < 50 {
			low = s
		} else {
			high = s
		}
	}
	if low == nil || high == nil {
		t.Fatalf("expected one low-RSI and one high-RSI cluster")
	}
	if low.AvgRSI < 29 || low.AvgRSI > 31 {
		t.Fatalf("low cluster avg_rsi = %v, want near 30", low.AvgRSI)
	}
	if high.AvgRSI < 74 || high.AvgRSI > 76 {
		t.Fatalf("high cluster avg_rsi = %v, want near 75", high.AvgRSI)
	}
	if high.AvgVolatility <= low.AvgVolatility {
		t.Fatalf("high cluster avg_volatility %v should exceed low %v", high.AvgVolatility, low.AvgVolatility)
	}
}

func TestClusterDeterministic(t *testing.T) {
	table := twoGroupTable()
	a, err := NewService().Cluster(table, 2)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	b, err := NewService().Cluster(table, 2)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}
	for i := range a.Labels {
		if a.Labels[i] != b.Labels[i] {
			t.Fatalf("labels differ at %d: %d vs %d", i, a.Labels[i], b.Labels[i])
		}
	}
	if a.Silhouette != b.Silhouette {
		t.Fatalf("silhouette differs: %v vs %v", a.Silhouette, b.Silhouette)
	}
}

func TestClusterTooFewTickers(t *testing.T) {
	table := &models.FeatureTable{
		Names: []string{"rsi"},
		Rows: []models.FeatureRow{
			{Date: time.Now(), Ticker: "AAA", Values: []float64{50}},
			{Date: time.Now(), Ticker: "BBB", Values: []float64{60}},
		},
	}
	if _, err := NewService().Cluster(table, 5); err == nil {
		t.Fatalf("expected error for 2 tickers with 5 clusters")
	}
}

func TestClusterEmptyTable(t *testing.T) {
	if _, err := NewService().Cluster(&models.FeatureTable{}, 2); err == nil {
		t.Fatalf("expected error for empty table")
	}
}

func TestClusterColumnsExcludeReturns(t *testing.T) {
	idx := clusterColumns([]string{"rsi", "return_1m", "atr", "return_12m"})
	if len(idx) != 2 || idx[0] != 0 || idx[1] != 2 {
		t.Fatalf("clusterColumns = %v, want [0 2]", idx)
	}
}
