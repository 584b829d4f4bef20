package alpha

import (
	"fmt"
	"sort"
	"time"

	"AlphaWalk/internal/domain/models"
)

// EnsembleMethod selects how member forecasts are combined.
type EnsembleMethod string

const (
	EnsembleMean     EnsembleMethod = "mean"
	EnsembleMedian   EnsembleMethod = "median"
	EnsembleWeighted EnsembleMethod = "weighted"
)

// EnsembleModel combines several PredictiveModels behind the same contract
// as a single model. Weighted combination derives weights from CV ICs,
// clipped at zero; if no member has a positive IC the members get equal
// weight.
type EnsembleModel struct {
	members []*PredictiveModel
	method  EnsembleMethod
	weights []float64
}

// NewEnsembleModel builds the default three-member ensemble: ridge, elastic
// net and random forest.
func NewEnsembleModel(horizonMonths int, method EnsembleMethod) (*EnsembleModel, error) {
	types := []models.ModelType{models.ModelRidge, models.ModelElasticNet, models.ModelRandomForest}
	members := make([]*PredictiveModel, 0, len(types))
	for _, mt := range types {
		m, err := NewPredictiveModel(mt, horizonMonths, 1.0)
		if err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	switch method {
	case EnsembleMean, EnsembleMedian, EnsembleWeighted:
	case "":
		method = EnsembleMean
	default:
		return nil, fmt.Errorf("%w: unknown ensemble method %q", models.ErrConfiguration, method)
	}
	return &EnsembleModel{members: members, method: method}, nil
}

// PrepareTrainingData delegates to the first member; all members share the
// same training set.
func (e *EnsembleModel) PrepareTrainingData(features *models.FeatureTable, prices *models.PricePanel, candidateDates []time.Time) (*models.TrainingSet, error) {
	return e.members[0].PrepareTrainingData(features, prices, candidateDates)
}

// TrainWithCrossValidation cross-validates each member and aggregates their
// mean fold metrics. Weighted ensembles fix their weights here.
func (e *EnsembleModel) TrainWithCrossValidation(set *models.TrainingSet, nSplits int) (models.CVResults, error) {
	ics := make([]float64, 0, len(e.members))
	rmses := make([]float64, 0, len(e.members))
	r2s := make([]float64, 0, len(e.members))
	for _, m := range e.members {
		res, err := m.TrainWithCrossValidation(set, nSplits)
		if err != nil {
			return models.CVResults{}, err
		}
		ics = append(ics, res.MeanIC)
		rmses = append(rmses, res.MeanRMSE)
		r2s = append(r2s, res.MeanR2)
	}

	if e.method == EnsembleWeighted {
		e.weights = icWeights(ics)
	}

	var out models.CVResults
	out.MeanIC, out.StdIC = meanStd(ics)
	out.MeanRMSE, _ = meanStd(rmses)
	out.MeanR2, _ = meanStd(r2s)
	return out, nil
}

// Train fits every member on the full set and returns the mean in-sample IC.
// Weighted ensembles that skipped CV derive weights from in-sample ICs.
func (e *EnsembleModel) Train(X [][]float64, y []float64) (float64, error) {
	ics := make([]float64, 0, len(e.members))
	for _, m := range e.members {
		ic, err := m.Train(X, y)
		if err != nil {
			return 0, err
		}
		ics = append(ics, ic)
	}
	if e.method == EnsembleWeighted && e.weights == nil {
		e.weights = icWeights(ics)
	}
	mu, _ := meanStd(ics)
	return mu, nil
}

// Predict combines member forecasts per the configured method.
func (e *EnsembleModel) Predict(X [][]float64) ([]float64, error) {
	preds := make([][]float64, len(e.members))
	for i, m := range e.members {
		p, err := m.Predict(X)
		if err != nil {
			return nil, err
		}
		preds[i] = p
	}

	out := make([]float64, len(X))
	tmp := make([]float64, len(e.members))
	for i := range out {
		for mi := range e.members {
			tmp[mi] = preds[mi][i]
		}
		switch e.method {
		case EnsembleMedian:
			out[i] = median(tmp)
		case EnsembleWeighted:
			w := e.weights
			if w == nil {
				w = equalWeights(len(e.members))
			}
			var s float64
			for mi, p := range tmp {
				s += p * w[mi]
			}
			out[i] = s
		default:
			out[i] = mean(tmp)
		}
	}
	return out, nil
}

// FeatureImportance averages importance over members that expose one.
func (e *EnsembleModel) FeatureImportance(names []string, topN int) []models.FeatureImportance {
	var agg []float64
	var count int
	for _, m := range e.members {
		imp := m.reg.importance()
		if imp == nil {
			continue
		}
		if agg == nil {
			agg = make([]float64, len(imp))
		}
		for i, v := range imp {
			agg[i] += v
		}
		count++
	}
	if count == 0 {
		return nil
	}
	for i := range agg {
		agg[i] /= float64(count)
	}
	return rankImportance(agg, names, topN)
}

func icWeights(ics []float64) []float64 {
	w := make([]float64, len(ics))
	var total float64
	for i, ic := range ics {
		if ic > 0 {
			w[i] = ic
			total += ic
		}
	}
	if total == 0 {
		return equalWeights(len(ics))
	}
	for i := range w {
		w[i] /= total
	}
	return w
}

func equalWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}

func median(xs []float64) float64 {
	sorted := make([]float64, len(xs))
	copy(sorted, xs)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
