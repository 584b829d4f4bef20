package service

import (
	"time"

	"AlphaWalk/internal/domain/models"
)

// AlphaModel maps feature vectors to forward-return forecasts. A model
// instance is scoped to a single rebalance: it is constructed, trained and
// queried once, then discarded, so no state leaks across periods. The
// ensemble satisfies the same contract and is substitutable anywhere a
// single model is expected.
type AlphaModel interface {
	// PrepareTrainingData builds (X, y) pairs for the candidate dates,
	// dropping samples whose forward-return endpoint falls outside history.
	PrepareTrainingData(features *models.FeatureTable, prices *models.PricePanel, candidateDates []time.Time) (*models.TrainingSet, error)

	// TrainWithCrossValidation evaluates the model with a forward-chaining
	// time-series split. Diagnostic only; it does not alter the final fit.
	TrainWithCrossValidation(set *models.TrainingSet, nSplits int) (models.CVResults, error)

	// Train fits on the full training window and returns the in-sample IC.
	Train(X [][]float64, y []float64) (float64, error)

	// Predict returns one forward-return forecast per input row.
	Predict(X [][]float64) ([]float64, error)

	// FeatureImportance returns the top-N ranked features, or nil for model
	// families without a native importance notion.
	FeatureImportance(names []string, topN int) []models.FeatureImportance
}
