package alpha

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"AlphaWalk/internal/domain/models"
)

const (
	tradingDaysPerMonth = 21
	forwardReturnClip   = 0.5
)

// PredictiveModel fits one regressor family to (feature, forward return)
// pairs. Instances are scoped to a single rebalance and never reused.
type PredictiveModel struct {
	modelType     models.ModelType
	horizonMonths int
	ridgeAlpha    float64

	reg    regressor
	scaler RobustScaler
	imp    []float64
}

// NewPredictiveModel validates the model type eagerly so configuration
// errors surface before any data work.
func NewPredictiveModel(modelType models.ModelType, horizonMonths int, ridgeAlpha float64) (*PredictiveModel, error) {
	reg, err := newRegressor(modelType, ridgeAlpha)
	if err != nil {
		return nil, err
	}
	return &PredictiveModel{
		modelType:     modelType,
		horizonMonths: horizonMonths,
		ridgeAlpha:    ridgeAlpha,
		reg:           reg,
	}, nil
}

// ModelType returns the configured family.
func (m *PredictiveModel) ModelType() models.ModelType { return m.modelType }

// PrepareTrainingData pairs each candidate date's feature rows with realized
// forward returns. Samples whose forward endpoint falls past the end of the
// price history are dropped, which is what keeps labels causal.
func (m *PredictiveModel) PrepareTrainingData(features *models.FeatureTable, prices *models.PricePanel, candidateDates []time.Time) (*models.TrainingSet, error) {
	if features.IsEmpty() {
		return nil, fmt.Errorf("%w: empty feature table", models.ErrDataInsufficiency)
	}

	set := &models.TrainingSet{Names: features.Names}
	for _, d := range candidateDates {
		rows := features.At(d)
		for _, row := range rows {
			fwd, ok := forwardReturn(prices.Series(row.Ticker), d, m.horizonMonths)
			if !ok {
				continue
			}
			x := make([]float64, len(row.Values))
			copy(x, row.Values)
			set.X = append(set.X, x)
			set.Y = append(set.Y, fwd)
			set.Dates = append(set.Dates, d)
			set.Tickers = append(set.Tickers, row.Ticker)
		}
	}

	if set.Len() == 0 {
		return nil, fmt.Errorf("%w: no training samples with realized forward returns", models.ErrDataInsufficiency)
	}

	imputeMedian(set.X)
	return set, nil
}

// forwardReturn looks ahead horizonMonths*21 bars from the bar at date.
func forwardReturn(bars []models.Bar, date time.Time, horizonMonths int) (float64, bool) {
	start := -1
	for i, b := range bars {
		if b.Date.Equal(date) {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, false
	}
	end := start + horizonMonths*tradingDaysPerMonth
	if end >= len(bars) {
		return 0, false
	}
	startPrice := bars[start].AdjClose
	endPrice := bars[end].AdjClose
	if startPrice <= 0 {
		return 0, false
	}
	r := endPrice/startPrice - 1
	if r > forwardReturnClip {
		r = forwardReturnClip
	}
	if r < -forwardReturnClip {
		r = -forwardReturnClip
	}
	return r, true
}

// TrainWithCrossValidation scores the family with a forward-chaining split.
// Each fold refits a fresh scaler and regressor on its training prefix. The
// results are diagnostic; the final fit happens in Train.
func (m *PredictiveModel) TrainWithCrossValidation(set *models.TrainingSet, nSplits int) (models.CVResults, error) {
	var out models.CVResults

	order := dateOrder(set.Dates)
	X := reorderMatrix(set.X, order)
	y := reorderVector(set.Y, order)

	folds, err := timeSeriesSplit(len(y), nSplits)
	if err != nil {
		return out, fmt.Errorf("%w: %v", models.ErrModelFit, err)
	}

	ics := make([]float64, 0, nSplits)
	rmses := make([]float64, 0, nSplits)
	r2s := make([]float64, 0, nSplits)
	for _, f := range folds {
		xTrain, yTrain := X[:f.testStart], y[:f.testStart]
		xTest, yTest := X[f.testStart:f.testEnd], y[f.testStart:f.testEnd]

		var scaler RobustScaler
		xTrainScaled, err := scaler.FitTransform(xTrain)
		if err != nil {
			return out, fmt.Errorf("%w: %v", models.ErrModelFit, err)
		}
		xTestScaled, err := scaler.Transform(xTest)
		if err != nil {
			return out, fmt.Errorf("%w: %v", models.ErrModelFit, err)
		}

		reg, err := newRegressor(m.modelType, m.ridgeAlpha)
		if err != nil {
			return out, err
		}
		if err := reg.fit(xTrainScaled, yTrain); err != nil {
			return out, fmt.Errorf("%w: %v", models.ErrModelFit, err)
		}

		pred := reg.predict(xTestScaled)
		ics = append(ics, pearson(pred, yTest))
		rmses = append(rmses, rmse(pred, yTest))
		r2s = append(r2s, r2(pred, yTest))
	}

	out.MeanIC, out.StdIC = meanStd(ics)
	out.MeanRMSE, _ = meanStd(rmses)
	out.MeanR2, _ = meanStd(r2s)
	return out, nil
}

// Train fits the final model on the full set and returns the in-sample IC.
func (m *PredictiveModel) Train(X [][]float64, y []float64) (float64, error) {
	scaled, err := m.scaler.FitTransform(X)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrModelFit, err)
	}
	if err := m.reg.fit(scaled, y); err != nil {
		return 0, fmt.Errorf("%w: %v", models.ErrModelFit, err)
	}
	m.imp = m.reg.importance()
	return pearson(m.reg.predict(scaled), y), nil
}

// Predict scores feature rows with the fitted model. Missing values are
// zero-filled before scaling, matching the median-imputed training scale.
func (m *PredictiveModel) Predict(X [][]float64) ([]float64, error) {
	filled := make([][]float64, len(X))
	for i, row := range X {
		r := make([]float64, len(row))
		for j, v := range row {
			if math.IsNaN(v) {
				v = 0
			}
			r[j] = v
		}
		filled[i] = r
	}
	scaled, err := m.scaler.Transform(filled)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrModelFit, err)
	}
	return m.reg.predict(scaled), nil
}

// FeatureImportance ranks features by fitted weight. Nil when the family has
// no native importance.
func (m *PredictiveModel) FeatureImportance(names []string, topN int) []models.FeatureImportance {
	return rankImportance(m.imp, names, topN)
}

func rankImportance(imp []float64, names []string, topN int) []models.FeatureImportance {
	if imp == nil {
		return nil
	}
	out := make([]models.FeatureImportance, 0, len(imp))
	for i, v := range imp {
		name := fmt.Sprintf("feature_%d", i)
		if i < len(names) {
			name = names[i]
		}
		out = append(out, models.FeatureImportance{Feature: name, Importance: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	if topN > 0 && len(out) > topN {
		out = out[:topN]
	}
	return out
}

func imputeMedian(X [][]float64) {
	if len(X) == 0 {
		return
	}
	cols := len(X[0])
	col := make([]float64, 0, len(X))
	for j := 0; j < cols; j++ {
		col = col[:0]
		for _, row := range X {
			if !math.IsNaN(row[j]) {
				col = append(col, row[j])
			}
		}
		med := 0.0
		if len(col) > 0 {
			sort.Float64s(col)
			med = percentile(col, 0.5)
		}
		for _, row := range X {
			if math.IsNaN(row[j]) {
				row[j] = med
			}
		}
	}
}

func dateOrder(dates []time.Time) []int {
	order := make([]int, len(dates))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool { return dates[order[a]].Before(dates[order[b]]) })
	return order
}

func reorderMatrix(X [][]float64, order []int) [][]float64 {
	out := make([][]float64, len(order))
	for i, idx := range order {
		out[i] = X[idx]
	}
	return out
}

func reorderVector(y []float64, order []int) []float64 {
	out := make([]float64, len(order))
	for i, idx := range order {
		out[i] = y[idx]
	}
	return out
}

func pearson(pred, actual []float64) float64 {
	if len(pred) < 2 {
		return 0
	}
	c := stat.Correlation(pred, actual, nil)
	if math.IsNaN(c) {
		return 0
	}
	return c
}
