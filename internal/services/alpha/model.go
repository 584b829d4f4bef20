package alpha

import (
	"fmt"

	"AlphaWalk/internal/domain/models"
)

// regressor is the fitting primitive behind PredictiveModel. Implementations
// are single-use: fit once, predict, discard.
type regressor interface {
	fit(X [][]float64, y []float64) error
	predict(X [][]float64) []float64
	// importance returns per-feature weights, or nil when the family has no
	// native notion of importance.
	importance() []float64
}

const defaultSeed = 42

// newRegressor builds a regressor for a registered model type. Unknown types
// fail fast so a config typo cannot silently fall back to a default model.
func newRegressor(modelType models.ModelType, ridgeAlpha float64) (regressor, error) {
	switch modelType {
	case models.ModelRidge:
		return &ridgeRegressor{alpha: ridgeAlpha}, nil
	case models.ModelLasso:
		return &coordinateDescentRegressor{alpha: ridgeAlpha, l1Ratio: 1.0, maxIter: 10000, tol: 1e-4}, nil
	case models.ModelElasticNet:
		return &coordinateDescentRegressor{alpha: ridgeAlpha, l1Ratio: 0.5, maxIter: 10000, tol: 1e-4}, nil
	case models.ModelRandomForest:
		return &forestRegressor{
			nTrees:      100,
			maxDepth:    5,
			minSplit:    20,
			minLeaf:     10,
			sqrtFeature: true,
			seed:        defaultSeed,
		}, nil
	case models.ModelGradientBoosting:
		return &boostingRegressor{
			nTrees:       100,
			learningRate: 0.05,
			maxDepth:     3,
			minSplit:     20,
			minLeaf:      10,
			subsample:    0.8,
			seed:         defaultSeed,
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown model type %q", models.ErrConfiguration, modelType)
	}
}
