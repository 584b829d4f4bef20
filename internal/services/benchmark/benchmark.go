package benchmark

import (
	"fmt"
	"math"
	"time"

	"AlphaWalk/internal/domain/models"
	"AlphaWalk/pkg/util"

	"gonum.org/v1/gonum/stat"
)

const tradingDaysPerYear = 252

// Option configures Service.
type Option func(*Service)

// WithRiskFreeRate overrides the annual risk-free rate used in Sharpe ratios.
func WithRiskFreeRate(rate float64) Option {
	return func(s *Service) {
		s.riskFree = rate
	}
}

// Service builds benchmark equity curves and compares them against the
// simulator's curve.
type Service struct {
	riskFree float64
}

func NewService(opts ...Option) *Service {
	s := &Service{riskFree: 0.05}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// BuyAndHold builds the equity curve of holding one ticker from its first
// available bar, scaled to initialCapital.
func (s *Service) BuyAndHold(panel *models.PricePanel, ticker string, initialCapital float64) ([]models.EquityPoint, error) {
	dates, prices := panel.AdjCloseSeries(ticker)
	if len(prices) == 0 {
		return nil, fmt.Errorf("%w: no bars for %s", models.ErrDataInsufficiency, ticker)
	}
	if prices[0] <= 0 {
		return nil, fmt.Errorf("%w: non-positive first price for %s", models.ErrDataInsufficiency, ticker)
	}
	curve := make([]models.EquityPoint, len(prices))
	for i := range prices {
		curve[i] = models.EquityPoint{Date: dates[i], Value: initialCapital * prices[i] / prices[0]}
	}
	return curve, nil
}

// EqualWeight builds an equal-weight buy-and-hold curve over the panel's
// universe. Only dates where every ticker has a bar enter the curve.
func (s *Service) EqualWeight(panel *models.PricePanel, initialCapital float64) ([]models.EquityPoint, error) {
	if panel.IsEmpty() {
		return nil, fmt.Errorf("%w: empty panel", models.ErrDataInsufficiency)
	}

	tickers := panel.Tickers()
	priceAt := make(map[string]map[time.Time]float64, len(tickers))
	for _, tk := range tickers {
		dates, prices := panel.AdjCloseSeries(tk)
		m := make(map[time.Time]float64, len(dates))
		for i, d := range dates {
			m[d] = prices[i]
		}
		priceAt[tk] = m
	}

	var common []time.Time
	for _, d := range panel.Dates() {
		ok := true
		for _, tk := range tickers {
			if _, present := priceAt[tk][d]; !present {
				ok = false
				break
			}
		}
		if ok {
			common = append(common, d)
		}
	}
	if len(common) < 2 {
		return nil, fmt.Errorf("%w: %d common dates across %d tickers", models.ErrDataInsufficiency, len(common), len(tickers))
	}

	curve := make([]models.EquityPoint, len(common))
	for i, d := range common {
		var sum float64
		for _, tk := range tickers {
			base := priceAt[tk][common[0]]
			if base <= 0 {
				return nil, fmt.Errorf("%w: non-positive base price for %s", models.ErrDataInsufficiency, tk)
			}
			sum += priceAt[tk][d] / base
		}
		curve[i] = models.EquityPoint{Date: d, Value: initialCapital * sum / float64(len(tickers))}
	}
	return curve, nil
}

// NormalizeToCommonDates restricts both curves to their shared dates and
// rebases the benchmark to the strategy's starting value, so the two curves
// are directly comparable.
func (s *Service) NormalizeToCommonDates(strategy, bench []models.EquityPoint) ([]models.EquityPoint, []models.EquityPoint, error) {
	benchAt := make(map[time.Time]float64, len(bench))
	for _, p := range bench {
		benchAt[p.Date] = p.Value
	}

	var outStrat, outBench []models.EquityPoint
	for _, p := range strategy {
		v, ok := benchAt[p.Date]
		if !ok {
			continue
		}
		outStrat = append(outStrat, p)
		outBench = append(outBench, models.EquityPoint{Date: p.Date, Value: v})
	}
	if len(outStrat) < 2 {
		return nil, nil, fmt.Errorf("%w: %d common dates between curves", models.ErrDataInsufficiency, len(outStrat))
	}

	scale := outStrat[0].Value / outBench[0].Value
	for i := range outBench {
		outBench[i].Value *= scale
	}
	return outStrat, outBench, nil
}

// ComputePerformanceMetrics derives return, risk and drawdown statistics
// from an equity curve.
func (s *Service) ComputePerformanceMetrics(curve []models.EquityPoint) (*models.PerformanceMetrics, error) {
	if len(curve) < 2 {
		return nil, fmt.Errorf("%w: %d equity points", models.ErrDataInsufficiency, len(curve))
	}

	initial := curve[0].Value
	final := curve[len(curve)-1].Value
	n := len(curve) - 1
	years := util.YearsBetween(n, tradingDaysPerYear)

	returns := make([]float64, 0, n)
	for i := 1; i < len(curve); i++ {
		if curve[i-1].Value > 0 {
			returns = append(returns, curve[i].Value/curve[i-1].Value-1)
		}
	}

	m := &models.PerformanceMetrics{
		InitialCapital: initial,
		FinalValue:     final,
		NPeriods:       len(curve),
		NYears:         years,
		Curve:          curve,
	}
	if initial > 0 {
		m.TotalReturn = final/initial - 1
		if final > 0 && years > 0 {
			m.AnnualizedReturn = math.Pow(final/initial, 1/years) - 1
		}
	}
	sd := sampleStd(returns)
	m.Volatility = sd * math.Sqrt(tradingDaysPerYear)
	if sd > 0 {
		// daily excess over the de-annualized risk-free rate, annualized
		// by sqrt(252)
		rfDaily := math.Pow(1+s.riskFree, 1.0/tradingDaysPerYear) - 1
		m.SharpeRatio = (stat.Mean(returns, nil) - rfDaily) / sd * math.Sqrt(tradingDaysPerYear)
	}
	m.MaxDrawdown, m.MaxDrawdownDuration = drawdown(curve)
	return m, nil
}

// ComputeRelativePerformance compares a strategy's metrics against a
// benchmark's.
func (s *Service) ComputeRelativePerformance(strategy, bench *models.PerformanceMetrics) *models.RelativePerformance {
	rel := &models.RelativePerformance{
		Alpha:         strategy.AnnualizedReturn - bench.AnnualizedReturn,
		TrackingError: math.Abs(strategy.Volatility - bench.Volatility),
		SharpeDiff:    strategy.SharpeRatio - bench.SharpeRatio,
	}
	if rel.TrackingError > 0 {
		rel.InformationRatio = rel.Alpha / rel.TrackingError
	}
	return rel
}

// drawdown returns the worst peak-to-trough loss and the longest stretch in
// calendar days spent below a prior peak.
func drawdown(curve []models.EquityPoint) (float64, int) {
	peak := curve[0].Value
	peakDate := curve[0].Date
	var maxDD float64
	var maxDays int
	for _, p := range curve {
		if p.Value >= peak {
			peak = p.Value
			peakDate = p.Date
			continue
		}
		if peak > 0 {
			if dd := 1 - p.Value/peak; dd > maxDD {
				maxDD = dd
			}
		}
		if days := int(p.Date.Sub(peakDate).Hours() / 24); days > maxDays {
			maxDays = days
		}
	}
	return maxDD, maxDays
}

func sampleStd(xs []float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	return stat.StdDev(xs, nil)
}
