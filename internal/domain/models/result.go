package models

import "time"

// EquityPoint is one dated portfolio value on the stitched equity curve.
type EquityPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// RebalanceRecord is the immutable audit snapshot of one rebalance. Skipped
// rebalances are recorded, not dropped.
type RebalanceRecord struct {
	Date            time.Time          `json:"date"`
	Weights         map[string]float64 `json:"weights,omitempty"`
	NStocks         int                `json:"n_stocks"`
	Turnover        float64            `json:"turnover"`
	TransactionCost float64            `json:"transaction_cost"`
	PortfolioValue  float64            `json:"portfolio_value"`
	ExpectedReturn  float64            `json:"expected_return"`
	Volatility      float64            `json:"volatility"`
	Sharpe          float64            `json:"sharpe_ratio"`
	Skipped         bool               `json:"skipped,omitempty"`
	SkipReason      string             `json:"skip_reason,omitempty"`
}

// ICRecord is one cross-validated information-coefficient observation.
type ICRecord struct {
	Date   time.Time `json:"date"`
	MeanIC float64   `json:"ic"`
	StdIC  float64   `json:"ic_std"`
}

// ForecastRecord preserves the forecast set produced at one rebalance.
type ForecastRecord struct {
	Date      time.Time          `json:"date"`
	Forecasts map[string]float64 `json:"forecasts"`
}

// FeatureImportance ranks one feature by model importance.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// ImportanceRecord preserves top-ranked feature importances at one rebalance.
type ImportanceRecord struct {
	Date     time.Time           `json:"date"`
	Features []FeatureImportance `json:"features"`
}

// ForecastQuality summarizes the IC history over an entire run.
type ForecastQuality struct {
	MeanIC          float64 `json:"mean_ic"`
	MedianIC        float64 `json:"median_ic"`
	StdIC           float64 `json:"std_ic"`
	MinIC           float64 `json:"min_ic"`
	MaxIC           float64 `json:"max_ic"`
	PositiveICRatio float64 `json:"positive_ic_ratio"`
	NumPeriods      int     `json:"num_periods"`
}

// SummaryMetrics are the run-level performance statistics.
type SummaryMetrics struct {
	InitialCapital        float64 `json:"initial_capital"`
	FinalValue            float64 `json:"final_value"`
	TotalReturn           float64 `json:"total_return"`
	AnnualizedReturn      float64 `json:"annualized_return"`
	Volatility            float64 `json:"volatility"`
	SharpeRatio           float64 `json:"sharpe_ratio"`
	MaxDrawdown           float64 `json:"max_drawdown"`
	NRebalances           int     `json:"n_rebalances"`
	TotalTransactionCosts float64 `json:"total_transaction_costs"`
	TransactionCostsPct   float64 `json:"transaction_costs_pct"`
	AvgTurnover           float64 `json:"avg_turnover"`
}

// Recommendation is the forward-looking allocation computed at the latest
// available date. Advisory only; it never enters the historical curve.
type Recommendation struct {
	AsOf           time.Time          `json:"recommendation_date"`
	HorizonMonths  int                `json:"horizon_months"`
	TargetDate     time.Time          `json:"target_date"`
	Weights        map[string]float64 `json:"weights"`
	Forecasts      map[string]float64 `json:"forecasts"`
	ExpectedReturn float64            `json:"expected_return"`
	Volatility     float64            `json:"volatility"`
	Sharpe         float64            `json:"sharpe_ratio"`
}

// ClusterStat describes one k-means cluster on the latest feature rows.
type ClusterStat struct {
	ClusterID     int      `json:"cluster_id"`
	NStocks       int      `json:"n_stocks"`
	Stocks        []string `json:"stocks"`
	AvgRSI        float64  `json:"avg_rsi"`
	AvgVolatility float64  `json:"avg_volatility"`
}

// ClusterResult carries the non-predictive path's clustering diagnostics.
type ClusterResult struct {
	NClusters  int           `json:"n_clusters"`
	Silhouette float64       `json:"silhouette_score"`
	Labels     []int         `json:"labels"`
	Tickers    []string      `json:"tickers"`
	Stats      []ClusterStat `json:"cluster_stats"`
}

// Allocation is the decision output for one rebalance date.
type Allocation struct {
	Date           time.Time          `json:"date"`
	Weights        map[string]float64 `json:"weights"`
	ExpectedReturn float64            `json:"expected_return"`
	Volatility     float64            `json:"volatility"`
	Sharpe         float64            `json:"sharpe_ratio"`
	Clusters       *ClusterResult     `json:"clusters,omitempty"`
	Forecasts      map[string]float64 `json:"forecasts,omitempty"`
}

// RunResult is the full output of one simulator run.
type RunResult struct {
	Summary           SummaryMetrics       `json:"summary"`
	EquityCurve       []EquityPoint        `json:"equity_curve"`
	Rebalances        []RebalanceRecord    `json:"rebalance_history"`
	ICHistory         []ICRecord           `json:"ic_history,omitempty"`
	ForecastQuality   *ForecastQuality     `json:"forecast_quality,omitempty"`
	ForecastHistory   []ForecastRecord     `json:"forecast_history,omitempty"`
	ImportanceHistory []ImportanceRecord   `json:"feature_importance_history,omitempty"`
	Recommendation    *Recommendation      `json:"recommendation,omitempty"`
	Benchmark         *BenchmarkComparison `json:"benchmark_comparison,omitempty"`
}

// PerformanceMetrics are benchmark-comparison statistics over one equity curve.
type PerformanceMetrics struct {
	InitialCapital      float64       `json:"initial_capital"`
	FinalValue          float64       `json:"final_value"`
	TotalReturn         float64       `json:"total_return"`
	AnnualizedReturn    float64       `json:"annualized_return"`
	Volatility          float64       `json:"volatility"`
	SharpeRatio         float64       `json:"sharpe_ratio"`
	MaxDrawdown         float64       `json:"max_drawdown"`
	MaxDrawdownDuration int           `json:"max_drawdown_duration_days"`
	NPeriods            int           `json:"n_periods"`
	NYears              float64       `json:"n_years"`
	Curve               []EquityPoint `json:"time_series"`
}

// RelativePerformance compares a strategy against a benchmark.
type RelativePerformance struct {
	Alpha            float64 `json:"alpha"`
	TrackingError    float64 `json:"tracking_error"`
	InformationRatio float64 `json:"information_ratio"`
	SharpeDiff       float64 `json:"sharpe_diff"`
}

// BenchmarkComparison pairs the strategy's metrics with an equal-weight
// index benchmark over the curves' common dates.
type BenchmarkComparison struct {
	Name      string               `json:"benchmark"`
	Strategy  *PerformanceMetrics  `json:"strategy"`
	Benchmark *PerformanceMetrics  `json:"benchmark_metrics"`
	Relative  *RelativePerformance `json:"relative"`
}

// OptimizeResult is the output of the one-shot optimization: a single
// allocation plus a static-weights backtest over the same history.
type OptimizeResult struct {
	Allocation *Allocation         `json:"allocation"`
	Backtest   *PerformanceMetrics `json:"backtest"`
}
