package usecase

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"AlphaWalk/internal/domain/models"
	drepo "AlphaWalk/internal/domain/repository"
	"AlphaWalk/internal/domain/service"
	"AlphaWalk/internal/services/alpha"
	"AlphaWalk/internal/services/features"
	"AlphaWalk/internal/services/optimizer"
	applogger "AlphaWalk/pkg/logger"
	"AlphaWalk/pkg/util"
)

const (
	minTrainingDates   = 6
	minTrainingSamples = 30
	cvSplits           = 5
	importanceTopN     = 10
	defaultRidgeAlpha  = 1.0
)

// PredictiveStrategy is the model-driven decision path: a short alpha window
// trains a forward-return model whose forecasts replace historical means,
// while a longer risk window estimates covariance. When the training data is
// too thin it falls back to the historical path on the risk window.
//
// A strategy instance is scoped to one run; it accumulates IC, forecast and
// importance histories across its Decide calls.
type PredictiveStrategy struct {
	cfg        models.PredictiveConfig
	extractor  *features.Extractor
	historical *HistoricalStrategy
	estimator  *optimizer.Estimator
	opt        *optimizer.Optimizer
	metrics    drepo.Metrics
	l          *applogger.Logger

	icHistory         []models.ICRecord
	forecastHistory   []models.ForecastRecord
	importanceHistory []models.ImportanceRecord
}

func NewPredictiveStrategy(
	cfg models.PredictiveConfig,
	extractor *features.Extractor,
	historical *HistoricalStrategy,
	estimator *optimizer.Estimator,
	metrics drepo.Metrics,
) *PredictiveStrategy {
	return &PredictiveStrategy{
		cfg:        cfg,
		extractor:  extractor,
		historical: historical,
		estimator:  estimator,
		metrics:    metrics,
		opt: optimizer.New(
			optimizer.WithRiskFreeRate(cfg.RiskFreeRate),
			optimizer.WithWeightBounds(cfg.MinWeight, cfg.MaxWeight),
		),
	}
}

// SetLogger sets the logger for per-rebalance diagnostics.
func (p *PredictiveStrategy) SetLogger(l *applogger.Logger) { p.l = l }

// Decide builds a forecast-driven allocation for one rebalance date.
func (p *PredictiveStrategy) Decide(ctx context.Context, panel *models.PricePanel, date time.Time) (*models.Allocation, error) {
	alphaWin := panel.Slice(util.AddMonths(date, -p.cfg.AlphaLookbackMonths), date)
	riskWin := panel.Slice(util.AddMonths(date, -p.cfg.RiskLookbackMonths), date)
	if alphaWin.IsEmpty() || riskWin.IsEmpty() {
		return nil, fmt.Errorf("%w: no bars before %s", models.ErrDataInsufficiency, util.FormatDate(date))
	}
	return p.allocate(ctx, alphaWin, riskWin, date)
}

// Recommend computes the forward-looking allocation anchored at the panel's
// last date, using all data up to and including it.
func (p *PredictiveStrategy) Recommend(ctx context.Context, panel *models.PricePanel) (*models.Recommendation, error) {
	if panel.IsEmpty() {
		return nil, fmt.Errorf("%w: empty panel", models.ErrDataInsufficiency)
	}
	asOf := panel.End()
	alphaWin := panel.SliceInclusive(util.AddMonths(asOf, -p.cfg.AlphaLookbackMonths), asOf)
	riskWin := panel.SliceInclusive(util.AddMonths(asOf, -p.cfg.RiskLookbackMonths), asOf)

	alloc, err := p.allocate(ctx, alphaWin, riskWin, asOf)
	if err != nil {
		return nil, err
	}
	return &models.Recommendation{
		AsOf:           asOf,
		HorizonMonths:  p.cfg.ForecastHorizonMonths,
		TargetDate:     util.AddMonths(asOf, p.cfg.ForecastHorizonMonths),
		Weights:        alloc.Weights,
		Forecasts:      alloc.Forecasts,
		ExpectedReturn: alloc.ExpectedReturn,
		Volatility:     alloc.Volatility,
		Sharpe:         alloc.Sharpe,
	}, nil
}

func (p *PredictiveStrategy) allocate(ctx context.Context, alphaWin, riskWin *models.PricePanel, date time.Time) (*models.Allocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	table, err := p.extractor.Compute(alphaWin)
	if err != nil {
		return nil, fmt.Errorf("features at %s: %w", util.FormatDate(date), err)
	}

	candidates := trainingDates(table)
	if len(candidates) < minTrainingDates {
		return p.fallback(ctx, riskWin, date, fmt.Sprintf("%d training dates", len(candidates)))
	}

	model, err := p.newModel()
	if err != nil {
		return nil, err
	}
	set, err := model.PrepareTrainingData(table, alphaWin, candidates)
	if err != nil {
		return p.fallback(ctx, riskWin, date, fmt.Sprintf("training data: %v", err))
	}
	if set.Len() < minTrainingSamples {
		return p.fallback(ctx, riskWin, date, fmt.Sprintf("%d training samples", set.Len()))
	}

	cv, err := model.TrainWithCrossValidation(set, cvSplits)
	if err != nil {
		return p.fallback(ctx, riskWin, date, fmt.Sprintf("cross-validation: %v", err))
	}
	p.icHistory = append(p.icHistory, models.ICRecord{Date: date, MeanIC: cv.MeanIC, StdIC: cv.StdIC})
	if p.metrics != nil {
		p.metrics.RecordMeanIC(cv.MeanIC)
	}

	if _, err := model.Train(set.X, set.Y); err != nil {
		return p.fallback(ctx, riskWin, date, fmt.Sprintf("final fit: %v", err))
	}

	forecasts, err := forecastLatest(model, table)
	if err != nil {
		return p.fallback(ctx, riskWin, date, fmt.Sprintf("forecast: %v", err))
	}
	p.forecastHistory = append(p.forecastHistory, models.ForecastRecord{Date: date, Forecasts: forecasts})
	if imp := model.FeatureImportance(set.Names, importanceTopN); len(imp) > 0 {
		p.importanceHistory = append(p.importanceHistory, models.ImportanceRecord{Date: date, Features: imp})
	}

	universe, err := p.estimator.EstimateUniverse(riskWin)
	if err != nil {
		return p.fallback(ctx, riskWin, date, fmt.Sprintf("risk universe: %v", err))
	}
	var tickers []string
	for _, tk := range universe {
		if _, ok := forecasts[tk]; ok {
			tickers = append(tickers, tk)
		}
	}
	if len(tickers) == 0 {
		return p.fallback(ctx, riskWin, date, "no forecastable tickers in risk universe")
	}
	mu := make([]float64, len(tickers))
	for i, tk := range tickers {
		mu[i] = forecasts[tk]
	}
	cov, err := p.estimator.Covariance(riskWin, tickers)
	if err != nil {
		return p.fallback(ctx, riskWin, date, fmt.Sprintf("covariance: %v", err))
	}

	weights, perf, err := p.opt.MaxSharpe(tickers, optimizer.ShiftPositive(mu), cov)
	if err != nil {
		return p.fallback(ctx, riskWin, date, fmt.Sprintf("optimize: %v", err))
	}

	if p.l != nil {
		p.l.Info("predictive allocation",
			applogger.Date("date", date),
			applogger.Int("n_stocks", len(weights)),
			applogger.Float64("cv_ic", cv.MeanIC),
		)
	}
	return &models.Allocation{
		Date:           date,
		Weights:        weights,
		ExpectedReturn: perf.ExpectedReturn,
		Volatility:     perf.Volatility,
		Sharpe:         perf.Sharpe,
		Forecasts:      forecasts,
	}, nil
}

// fallback reverts to historical-mean optimization on the risk window.
func (p *PredictiveStrategy) fallback(ctx context.Context, riskWin *models.PricePanel, date time.Time, reason string) (*models.Allocation, error) {
	if p.l != nil {
		p.l.Warn("predictive path unavailable, using historical means",
			applogger.Date("date", date),
			applogger.String("reason", reason),
		)
	}
	return p.historical.decideOnWindow(ctx, riskWin, date)
}

func (p *PredictiveStrategy) newModel() (service.AlphaModel, error) {
	if p.cfg.UseEnsemble {
		return alpha.NewEnsembleModel(p.cfg.ForecastHorizonMonths, alpha.EnsembleMean)
	}
	return alpha.NewPredictiveModel(p.cfg.ModelType, p.cfg.ForecastHorizonMonths, defaultRidgeAlpha)
}

// Histories returns the diagnostics accumulated across the run.
func (p *PredictiveStrategy) Histories() ([]models.ICRecord, []models.ForecastRecord, []models.ImportanceRecord) {
	return p.icHistory, p.forecastHistory, p.importanceHistory
}

// ForecastQuality summarizes the accumulated IC history, or nil if none.
func (p *PredictiveStrategy) ForecastQuality() *models.ForecastQuality {
	if len(p.icHistory) == 0 {
		return nil
	}
	ics := make([]float64, len(p.icHistory))
	for i, r := range p.icHistory {
		ics[i] = r.MeanIC
	}
	sort.Float64s(ics)

	var sum, positive float64
	for _, v := range ics {
		sum += v
		if v > 0 {
			positive++
		}
	}
	n := float64(len(ics))
	mean := sum / n
	var ss float64
	for _, v := range ics {
		d := v - mean
		ss += d * d
	}

	q := &models.ForecastQuality{
		MeanIC:          mean,
		StdIC:           math.Sqrt(ss / n),
		MinIC:           ics[0],
		MaxIC:           ics[len(ics)-1],
		PositiveICRatio: positive / n,
		NumPeriods:      len(ics),
	}
	if len(ics)%2 == 1 {
		q.MedianIC = ics[len(ics)/2]
	} else {
		q.MedianIC = (ics[len(ics)/2-1] + ics[len(ics)/2]) / 2
	}
	return q
}

// trainingDates returns the feature dates that precede the most recent
// month, oldest first. The current month is excluded because its forward
// return is still mostly unrealized.
func trainingDates(table *models.FeatureTable) []time.Time {
	dates := table.Dates()
	if len(dates) == 0 {
		return nil
	}
	latest := dates[len(dates)-1]
	cutoff := time.Date(latest.Year(), latest.Month(), 1, 0, 0, 0, 0, latest.Location())
	var out []time.Time
	for _, d := range dates {
		if d.Before(cutoff) {
			out = append(out, d)
		}
	}
	return out
}

// forecastLatest predicts forward returns for the most recent feature rows.
func forecastLatest(model service.AlphaModel, table *models.FeatureTable) (map[string]float64, error) {
	_, rows := table.Latest()
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no feature rows to forecast", models.ErrDataInsufficiency)
	}
	X := make([][]float64, len(rows))
	for i, r := range rows {
		x := make([]float64, len(r.Values))
		copy(x, r.Values)
		X[i] = x
	}
	preds, err := model.Predict(X)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(rows))
	for i, r := range rows {
		out[r.Ticker] = preds[i]
	}
	return out, nil
}
