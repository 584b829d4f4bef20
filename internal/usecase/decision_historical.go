package usecase

import (
	"context"
	"fmt"
	"time"

	"AlphaWalk/internal/domain/models"
	"AlphaWalk/internal/services/cluster"
	"AlphaWalk/internal/services/features"
	"AlphaWalk/internal/services/optimizer"
	applogger "AlphaWalk/pkg/logger"
	"AlphaWalk/pkg/util"
)

// HistoricalStrategy is the non-predictive decision path: indicator features,
// k-means diagnostics over the latest month, and a max-Sharpe allocation on
// annualized historical mean returns.
type HistoricalStrategy struct {
	cfg       models.SimulationConfig
	extractor *features.Extractor
	clusterer *cluster.Service
	estimator *optimizer.Estimator
	opt       *optimizer.Optimizer
	l         *applogger.Logger
}

func NewHistoricalStrategy(
	cfg models.SimulationConfig,
	extractor *features.Extractor,
	clusterer *cluster.Service,
	estimator *optimizer.Estimator,
) *HistoricalStrategy {
	return &HistoricalStrategy{
		cfg:       cfg,
		extractor: extractor,
		clusterer: clusterer,
		estimator: estimator,
		opt: optimizer.New(
			optimizer.WithRiskFreeRate(cfg.RiskFreeRate),
			optimizer.WithWeightBounds(cfg.MinWeight, cfg.MaxWeight),
		),
	}
}

// SetLogger sets the logger for per-rebalance diagnostics.
func (h *HistoricalStrategy) SetLogger(l *applogger.Logger) { h.l = l }

// Decide builds an allocation from the lookback window ending strictly
// before date.
func (h *HistoricalStrategy) Decide(ctx context.Context, panel *models.PricePanel, date time.Time) (*models.Allocation, error) {
	window := panel.Slice(util.AddMonths(date, -h.cfg.LookbackMonths), date)
	if window.IsEmpty() {
		return nil, fmt.Errorf("%w: no bars in lookback window before %s", models.ErrDataInsufficiency, util.FormatDate(date))
	}
	return h.decideOnWindow(ctx, window, date)
}

// decideOnWindow optimizes on an already-sliced window. The predictive path
// reuses it as its fallback.
func (h *HistoricalStrategy) decideOnWindow(ctx context.Context, window *models.PricePanel, date time.Time) (*models.Allocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, err := h.extractor.Compute(window)
	if err != nil {
		return nil, fmt.Errorf("features at %s: %w", util.FormatDate(date), err)
	}

	// clustering is diagnostic only; its failure never skips a rebalance
	clusters, clErr := h.clusterer.Cluster(table, h.cfg.NClusters)
	if clErr != nil && h.l != nil {
		h.l.Debug("clustering unavailable",
			applogger.Date("date", date),
			applogger.Error(clErr),
		)
	}

	universe, err := h.estimator.EstimateUniverse(window)
	if err != nil {
		return nil, fmt.Errorf("universe at %s: %w", util.FormatDate(date), err)
	}
	muByTicker := optimizer.MeanHistoricalReturns(window, universe)
	mu := make([]float64, len(universe))
	for i, tk := range universe {
		mu[i] = muByTicker[tk]
	}
	cov, err := h.estimator.Covariance(window, universe)
	if err != nil {
		return nil, fmt.Errorf("covariance at %s: %w", util.FormatDate(date), err)
	}

	weights, perf, err := h.opt.MaxSharpe(universe, optimizer.ShiftPositive(mu), cov)
	if err != nil {
		return nil, fmt.Errorf("optimize at %s: %w", util.FormatDate(date), err)
	}

	return &models.Allocation{
		Date:           date,
		Weights:        weights,
		ExpectedReturn: perf.ExpectedReturn,
		Volatility:     perf.Volatility,
		Sharpe:         perf.Sharpe,
		Clusters:       clusters,
	}, nil
}
