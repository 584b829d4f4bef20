package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"AlphaWalk/internal/domain/models"
	drepo "AlphaWalk/internal/domain/repository"
	"AlphaWalk/internal/services/optimizer"
	applogger "AlphaWalk/pkg/logger"
	"AlphaWalk/pkg/util"

	"gonum.org/v1/gonum/stat"
)

const tradingDaysPerYear = 252

// DecisionFunc computes the target allocation for one rebalance date. It
// must use only data strictly before the date; the simulator does not
// re-check causality.
type DecisionFunc func(ctx context.Context, panel *models.PricePanel, date time.Time) (*models.Allocation, error)

// ProgressEvent is one rebalance-boundary progress notification.
type ProgressEvent struct {
	RunID   string    `json:"run_id"`
	Stage   string    `json:"stage"`
	Step    int       `json:"step"`
	Total   int       `json:"total"`
	Date    time.Time `json:"date,omitempty"`
	Message string    `json:"message,omitempty"`
}

// Progress receives rebalance-boundary events during a run. Optional.
type Progress func(ev ProgressEvent)

// Simulator runs the walk-forward loop: schedule generation, per-rebalance
// decision, transaction costing, holding-period compounding and summary
// statistics. The decision itself is injected, so the historical and
// predictive paths share one loop.
type Simulator struct {
	publisher drepo.EventPublisher
	metrics   drepo.Metrics
	l         *applogger.Logger
}

// NewSimulator creates a Simulator. Publisher and metrics may be nil.
func NewSimulator(publisher drepo.EventPublisher, metrics drepo.Metrics) *Simulator {
	return &Simulator{publisher: publisher, metrics: metrics}
}

// SetLogger sets the logger used for boundary logging.
func (s *Simulator) SetLogger(l *applogger.Logger) { s.l = l }

// Run executes one walk-forward simulation over the panel. Decision failures
// at a single rebalance skip that rebalance and hold the previous weights;
// configuration errors and an unusable schedule abort the run.
func (s *Simulator) Run(
	ctx context.Context,
	runID, kind string,
	panel *models.PricePanel,
	cfg models.SimulationConfig,
	decide DecisionFunc,
	progress Progress,
) (*models.RunResult, error) {
	start := time.Now()
	if s.metrics != nil {
		s.metrics.RecordRunStarted(kind)
	}

	result, err := s.run(ctx, runID, kind, panel, cfg, decide, progress)
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordRunFailed(kind)
		}
		s.notify(progress, ProgressEvent{RunID: runID, Stage: "failed", Message: err.Error()})
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.RecordRunCompleted(kind, time.Since(start).Seconds())
	}
	if s.publisher != nil {
		if pubErr := s.publisher.PublishRunSummary(ctx, runID, result.Summary); pubErr != nil {
			s.warn("run summary publish failed", applogger.String("run_id", runID), applogger.Error(pubErr))
		}
	}
	s.notify(progress, ProgressEvent{RunID: runID, Stage: "completed", Step: len(result.Rebalances), Total: len(result.Rebalances)})
	return result, nil
}

func (s *Simulator) run(
	ctx context.Context,
	runID, kind string,
	panel *models.PricePanel,
	cfg models.SimulationConfig,
	decide DecisionFunc,
	progress Progress,
) (*models.RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	schedule, err := BuildSchedule(panel, cfg.LookbackMonths, cfg.RebalanceFreq)
	if err != nil {
		return nil, err
	}

	s.info("walk-forward run started",
		applogger.String("run_id", runID),
		applogger.String("kind", kind),
		applogger.Int("tickers", len(panel.Tickers())),
		applogger.Int("rebalances", len(schedule)),
	)

	value := cfg.InitialCapital
	var weights map[string]float64
	var equity []models.EquityPoint
	var records []models.RebalanceRecord
	var totalCosts, totalTurnover float64
	var executed int

	for i, date := range schedule {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("run cancelled: %w", err)
		}
		periodEnd := panel.End()
		if i+1 < len(schedule) {
			periodEnd = schedule[i+1]
		}

		alloc, decideErr := decide(ctx, panel, date)
		if decideErr != nil {
			if errors.Is(decideErr, models.ErrConfiguration) {
				return nil, decideErr
			}
			rec := models.RebalanceRecord{
				Date:           date,
				Weights:        weights,
				NStocks:        len(weights),
				PortfolioValue: value,
				Skipped:        true,
				SkipReason:     decideErr.Error(),
			}
			records = append(records, rec)
			if s.metrics != nil {
				s.metrics.RecordRebalanceSkipped(kind, skipReason(decideErr))
			}
			s.warn("rebalance skipped, holding previous weights",
				applogger.String("run_id", runID),
				applogger.Date("date", date),
				applogger.Error(decideErr),
			)
			s.emit(ctx, runID, rec)
			s.notify(progress, ProgressEvent{RunID: runID, Stage: "rebalance", Step: i + 1, Total: len(schedule), Date: date, Message: "skipped: " + decideErr.Error()})
			equity, value = holdPeriod(panel, weights, date, periodEnd, value, equity)
			continue
		}

		turnover := computeTurnover(weights, alloc.Weights)
		cost := turnover * value * cfg.TransactionCostBps / 10000
		value -= cost
		weights = alloc.Weights
		totalCosts += cost
		totalTurnover += turnover
		executed++

		rec := models.RebalanceRecord{
			Date:            date,
			Weights:         alloc.Weights,
			NStocks:         len(alloc.Weights),
			Turnover:        turnover,
			TransactionCost: cost,
			PortfolioValue:  value,
			ExpectedReturn:  alloc.ExpectedReturn,
			Volatility:      alloc.Volatility,
			Sharpe:          alloc.Sharpe,
		}
		records = append(records, rec)
		if s.metrics != nil {
			s.metrics.RecordRebalance(kind)
		}
		holdings := optimizer.SortedTickers(alloc.Weights)
		if len(holdings) > 3 {
			holdings = holdings[:3]
		}
		s.info("rebalanced",
			applogger.String("run_id", runID),
			applogger.Date("date", date),
			applogger.Int("n_stocks", rec.NStocks),
			applogger.Float64("turnover", turnover),
			applogger.Float64("portfolio_value", value),
			applogger.Strings("top_holdings", holdings),
		)
		s.emit(ctx, runID, rec)
		s.notify(progress, ProgressEvent{RunID: runID, Stage: "rebalance", Step: i + 1, Total: len(schedule), Date: date})

		equity, value = holdPeriod(panel, weights, date, periodEnd, value, equity)
	}

	if len(equity) < 2 {
		return nil, fmt.Errorf("%w: equity curve has %d points", models.ErrDataInsufficiency, len(equity))
	}

	summary := summarize(cfg, equity, executed, totalCosts, totalTurnover)
	return &models.RunResult{
		Summary:     summary,
		EquityCurve: equity,
		Rebalances:  records,
	}, nil
}

// holdPeriod compounds the portfolio value with daily returns over
// (from, to], renormalizing weights over the tickers priced on each day.
// The entry point at from is recorded at the post-cost value.
func holdPeriod(
	panel *models.PricePanel,
	weights map[string]float64,
	from, to time.Time,
	value float64,
	equity []models.EquityPoint,
) ([]models.EquityPoint, float64) {
	if n := len(equity); n > 0 && equity[n-1].Date.Equal(from) {
		equity[n-1].Value = value
	} else {
		equity = append(equity, models.EquityPoint{Date: from, Value: value})
	}

	window := panel.SliceInclusive(from, to)
	dates := window.Dates()
	if len(dates) < 2 {
		return equity, value
	}

	priceAt := make(map[string]map[time.Time]float64, len(weights))
	for tk := range weights {
		ds, ps := window.AdjCloseSeries(tk)
		m := make(map[time.Time]float64, len(ds))
		for i, d := range ds {
			m[d] = ps[i]
		}
		priceAt[tk] = m
	}

	for i := 1; i < len(dates); i++ {
		prev, cur := dates[i-1], dates[i]
		var ret, avail float64
		for tk, w := range weights {
			p0, ok0 := priceAt[tk][prev]
			p1, ok1 := priceAt[tk][cur]
			if !ok0 || !ok1 || p0 <= 0 {
				continue
			}
			ret += w * (p1/p0 - 1)
			avail += w
		}
		if avail > 0 {
			value *= 1 + ret/avail
		}
		equity = append(equity, models.EquityPoint{Date: cur, Value: value})
	}
	return equity, value
}

// computeTurnover is the L1 distance between consecutive weight vectors.
// The first deployment from cash turns over the full weight sum.
func computeTurnover(old, new map[string]float64) float64 {
	var t float64
	for tk, w := range new {
		t += math.Abs(w - old[tk])
	}
	for tk, w := range old {
		if _, ok := new[tk]; !ok {
			t += math.Abs(w)
		}
	}
	return t
}

func summarize(cfg models.SimulationConfig, equity []models.EquityPoint, executed int, totalCosts, totalTurnover float64) models.SummaryMetrics {
	initial := cfg.InitialCapital
	final := equity[len(equity)-1].Value
	n := len(equity) - 1
	years := util.YearsBetween(n, tradingDaysPerYear)

	m := models.SummaryMetrics{
		InitialCapital:        initial,
		FinalValue:            final,
		NRebalances:           executed,
		TotalTransactionCosts: totalCosts,
	}
	if initial > 0 {
		m.TotalReturn = final/initial - 1
		m.TransactionCostsPct = totalCosts / initial
		if final > 0 && years > 0 {
			m.AnnualizedReturn = math.Pow(final/initial, 1/years) - 1
		}
	}

	returns := make([]float64, 0, n)
	for i := 1; i < len(equity); i++ {
		if equity[i-1].Value > 0 {
			returns = append(returns, equity[i].Value/equity[i-1].Value-1)
		}
	}
	sd := stdDev(returns)
	m.Volatility = sd * math.Sqrt(tradingDaysPerYear)
	if sd > 0 {
		// daily excess over the de-annualized risk-free rate, annualized
		// by sqrt(252)
		rfDaily := math.Pow(1+cfg.RiskFreeRate, 1.0/tradingDaysPerYear) - 1
		m.SharpeRatio = (stat.Mean(returns, nil) - rfDaily) / sd * math.Sqrt(tradingDaysPerYear)
	}
	m.MaxDrawdown = maxDrawdown(equity)
	if executed > 0 {
		m.AvgTurnover = totalTurnover / float64(executed)
	}
	return m
}

func maxDrawdown(equity []models.EquityPoint) float64 {
	peak := equity[0].Value
	var dd float64
	for _, p := range equity {
		if p.Value > peak {
			peak = p.Value
		}
		if peak > 0 {
			if d := 1 - p.Value/peak; d > dd {
				dd = d
			}
		}
	}
	return dd
}

func stdDev(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, models.ErrDataInsufficiency):
		return "insufficient_data"
	case errors.Is(err, models.ErrModelFit):
		return "model_fit"
	case errors.Is(err, models.ErrOptimizationInfeasible):
		return "optimization_infeasible"
	default:
		return "other"
	}
}

func (s *Simulator) emit(ctx context.Context, runID string, rec models.RebalanceRecord) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishRebalance(ctx, runID, rec); err != nil {
		s.warn("rebalance publish failed", applogger.String("run_id", runID), applogger.Error(err))
	}
}

func (s *Simulator) notify(progress Progress, ev ProgressEvent) {
	if progress != nil {
		progress(ev)
	}
}

func (s *Simulator) info(msg string, fields ...applogger.Field) {
	if s.l != nil {
		s.l.Info(msg, fields...)
	}
}

func (s *Simulator) warn(msg string, fields ...applogger.Field) {
	if s.l != nil {
		s.l.Warn(msg, fields...)
	}
}
