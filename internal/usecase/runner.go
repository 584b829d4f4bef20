package usecase

import (
	"context"
	"fmt"
	"time"

	"AlphaWalk/internal/domain/models"
	drepo "AlphaWalk/internal/domain/repository"
	"AlphaWalk/internal/services/benchmark"
	"AlphaWalk/internal/services/cluster"
	"AlphaWalk/internal/services/features"
	"AlphaWalk/internal/services/optimizer"
	applogger "AlphaWalk/pkg/logger"
	"AlphaWalk/pkg/util"
)

// Runner wires the decision paths, the simulator and the supporting
// services behind the API operations: one-shot optimization and the two
// walk-forward simulations.
type Runner struct {
	store     drepo.PriceStore
	simulator *Simulator
	extractor *features.Extractor
	clusterer *cluster.Service
	estimator *optimizer.Estimator
	metrics   drepo.Metrics
	l         *applogger.Logger
}

func NewRunner(
	store drepo.PriceStore,
	simulator *Simulator,
	extractor *features.Extractor,
	clusterer *cluster.Service,
	estimator *optimizer.Estimator,
	metrics drepo.Metrics,
) *Runner {
	return &Runner{
		store:     store,
		simulator: simulator,
		extractor: extractor,
		clusterer: clusterer,
		estimator: estimator,
		metrics:   metrics,
	}
}

// SetLogger sets the logger and propagates it to the simulator.
func (r *Runner) SetLogger(l *applogger.Logger) {
	r.l = l
	r.simulator.SetLogger(l)
}

// RunHistorical executes the base walk-forward simulation.
func (r *Runner) RunHistorical(ctx context.Context, runID string, req models.WalkForwardRequest, progress Progress) (*models.RunResult, error) {
	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	panel, err := r.fetchPanel(ctx, req.PanelRequest)
	if err != nil {
		return nil, err
	}

	strategy := NewHistoricalStrategy(cfg, r.extractor, r.clusterer, r.estimator)
	strategy.SetLogger(r.l)

	result, err := r.simulator.Run(ctx, runID, "historical", panel, cfg, strategy.Decide, progress)
	if err != nil {
		return nil, err
	}
	r.attachBenchmark(ctx, req.Benchmark, req.PanelRequest, cfg.RiskFreeRate, result)
	return result, nil
}

// RunPredictive executes the predictive walk-forward simulation and attaches
// its diagnostics and forward recommendation.
func (r *Runner) RunPredictive(ctx context.Context, runID string, req models.PredictiveWalkForwardRequest, progress Progress) (*models.RunResult, error) {
	cfg := req.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	panel, err := r.fetchPanel(ctx, req.PanelRequest)
	if err != nil {
		return nil, err
	}

	historical := NewHistoricalStrategy(cfg.SimulationConfig, r.extractor, r.clusterer, r.estimator)
	historical.SetLogger(r.l)
	strategy := NewPredictiveStrategy(cfg, r.extractor, historical, r.estimator, r.metrics)
	strategy.SetLogger(r.l)

	result, err := r.simulator.Run(ctx, runID, "predictive", panel, cfg.SimulationConfig, strategy.Decide, progress)
	if err != nil {
		return nil, err
	}

	result.ICHistory, result.ForecastHistory, result.ImportanceHistory = strategy.Histories()
	result.ForecastQuality = strategy.ForecastQuality()
	rec, recErr := strategy.Recommend(ctx, panel)
	if recErr != nil {
		if r.l != nil {
			r.l.Warn("recommendation unavailable", applogger.String("run_id", runID), applogger.Error(recErr))
		}
	} else {
		result.Recommendation = rec
	}

	r.attachBenchmark(ctx, req.Benchmark, req.PanelRequest, cfg.RiskFreeRate, result)
	return result, nil
}

// Optimize runs the one-shot path: features, clustering, a single
// max-Sharpe allocation on the full history, and a static-weights backtest.
func (r *Runner) Optimize(ctx context.Context, req models.OptimizeRequest) (*models.OptimizeResult, error) {
	panel, err := r.fetchPanel(ctx, req.PanelRequest)
	if err != nil {
		return nil, err
	}

	table, err := r.extractor.Compute(panel)
	if err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}
	clusters, clErr := r.clusterer.Cluster(table, req.NClusters)
	if clErr != nil && r.l != nil {
		r.l.Debug("clustering unavailable", applogger.Error(clErr))
	}

	universe, err := r.estimator.EstimateUniverse(panel)
	if err != nil {
		return nil, err
	}
	muByTicker := optimizer.MeanHistoricalReturns(panel, universe)
	mu := make([]float64, len(universe))
	for i, tk := range universe {
		mu[i] = muByTicker[tk]
	}
	cov, err := r.estimator.Covariance(panel, universe)
	if err != nil {
		return nil, err
	}

	opt := optimizer.New(
		optimizer.WithRiskFreeRate(req.RiskFreeRate),
		optimizer.WithWeightBounds(0, req.MaxWeight),
	)
	weights, perf, err := opt.MaxSharpe(universe, optimizer.ShiftPositive(mu), cov)
	if err != nil {
		return nil, err
	}

	curve, _ := holdPeriod(panel, weights, panel.Start(), panel.End(), req.InitialCapital, nil)
	bench := benchmark.NewService(benchmark.WithRiskFreeRate(req.RiskFreeRate))
	backtest, err := bench.ComputePerformanceMetrics(curve)
	if err != nil {
		return nil, fmt.Errorf("backtest: %w", err)
	}

	return &models.OptimizeResult{
		Allocation: &models.Allocation{
			Date:           panel.End(),
			Weights:        weights,
			ExpectedReturn: perf.ExpectedReturn,
			Volatility:     perf.Volatility,
			Sharpe:         perf.Sharpe,
			Clusters:       clusters,
		},
		Backtest: backtest,
	}, nil
}

func (r *Runner) fetchPanel(ctx context.Context, req models.PanelRequest) (*models.PricePanel, error) {
	start, ok := util.ParseDate(req.StartDate)
	if !ok {
		return nil, fmt.Errorf("%w: bad start_date %q", models.ErrConfiguration, req.StartDate)
	}
	end, ok := util.ParseDate(req.EndDate)
	if !ok {
		return nil, fmt.Errorf("%w: bad end_date %q", models.ErrConfiguration, req.EndDate)
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: start_date %s is not before end_date %s", models.ErrConfiguration, req.StartDate, req.EndDate)
	}
	return r.store.Fetch(ctx, req.Tickers, start, end)
}

// attachBenchmark compares the run against an equal-weight index portfolio
// over the same date range. Benchmark failures never fail the run.
func (r *Runner) attachBenchmark(ctx context.Context, name string, req models.PanelRequest, riskFree float64, result *models.RunResult) {
	if name == "" {
		return
	}
	tickers, ok := models.IndexTickers[name]
	if !ok {
		return
	}

	start, _ := util.ParseDate(req.StartDate)
	end, _ := util.ParseDate(req.EndDate)
	cmp, err := r.compareBenchmark(ctx, name, tickers, start, end, riskFree, result)
	if err != nil {
		if r.l != nil {
			r.l.Warn("benchmark comparison unavailable", applogger.String("benchmark", name), applogger.Error(err))
		}
		return
	}
	result.Benchmark = cmp
}

func (r *Runner) compareBenchmark(
	ctx context.Context,
	name string,
	tickers []string,
	start, end time.Time,
	riskFree float64,
	result *models.RunResult,
) (*models.BenchmarkComparison, error) {
	panel, err := r.store.Fetch(ctx, tickers, start, end)
	if err != nil {
		return nil, err
	}
	bench := benchmark.NewService(benchmark.WithRiskFreeRate(riskFree))
	benchCurve, err := bench.EqualWeight(panel, result.Summary.InitialCapital)
	if err != nil {
		return nil, err
	}
	stratCurve, benchCurve, err := bench.NormalizeToCommonDates(result.EquityCurve, benchCurve)
	if err != nil {
		return nil, err
	}
	stratMetrics, err := bench.ComputePerformanceMetrics(stratCurve)
	if err != nil {
		return nil, err
	}
	benchMetrics, err := bench.ComputePerformanceMetrics(benchCurve)
	if err != nil {
		return nil, err
	}
	return &models.BenchmarkComparison{
		Name:      name,
		Strategy:  stratMetrics,
		Benchmark: benchMetrics,
		Relative:  bench.ComputeRelativePerformance(stratMetrics, benchMetrics),
	}, nil
}
