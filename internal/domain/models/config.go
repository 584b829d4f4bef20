package models

import (
	"fmt"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
)

// RebalanceFreq is the cadence of the rebalance schedule.
type RebalanceFreq string

const (
	FreqMonthly   RebalanceFreq = "monthly"
	FreqQuarterly RebalanceFreq = "quarterly"
	FreqWeekly    RebalanceFreq = "weekly"
)

// ModelType selects the alpha model family.
type ModelType string

const (
	ModelRidge            ModelType = "ridge"
	ModelLasso            ModelType = "lasso"
	ModelElasticNet       ModelType = "elastic_net"
	ModelRandomForest     ModelType = "random_forest"
	ModelGradientBoosting ModelType = "gradient_boosting"
)

var configValidator = validator.New()

// SimulationConfig parameterizes one walk-forward run. Field bounds mirror
// what the engine can actually honor; anything outside them is a fatal
// configuration error before the run starts.
type SimulationConfig struct {
	LookbackMonths     int           `json:"lookback_months" default:"24" validate:"gte=12,lte=120"`
	RebalanceFreq      RebalanceFreq `json:"rebalance_freq" default:"monthly" validate:"oneof=monthly quarterly weekly"`
	NClusters          int           `json:"n_clusters" default:"4" validate:"gte=2,lte=20"`
	RiskFreeRate       float64       `json:"risk_free_rate" default:"0.05" validate:"gte=0,lte=0.25"`
	MaxWeight          float64       `json:"max_weight" default:"0.17" validate:"gt=0,lte=1"`
	MinWeight          float64       `json:"min_weight" validate:"gte=0,ltefield=MaxWeight"`
	TransactionCostBps float64       `json:"transaction_cost_bps" default:"15" validate:"gte=0,lte=500"`
	InitialCapital     float64       `json:"initial_capital" default:"100000" validate:"gt=0"`
}

// PredictiveConfig extends SimulationConfig with the alpha-model knobs.
type PredictiveConfig struct {
	SimulationConfig `yaml:",inline"`

	ModelType             ModelType `json:"model_type" default:"ridge" validate:"oneof=ridge lasso elastic_net random_forest gradient_boosting"`
	ForecastHorizonMonths int       `json:"forecast_horizon_months" default:"3" validate:"gte=1,lte=6"`
	UseEnsemble           bool      `json:"use_ensemble"`
	AlphaLookbackMonths   int       `json:"alpha_lookback_months" default:"12" validate:"gte=6,lte=60"`
	RiskLookbackMonths    int       `json:"risk_lookback_months" default:"36" validate:"gte=24,lte=120"`
}

// ApplyDefaults fills zero fields with their defaults.
func (c *SimulationConfig) ApplyDefaults() error { return defaults.Set(c) }

// Validate checks field bounds; failures are configuration errors.
func (c *SimulationConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	return nil
}

// ApplyDefaults fills zero fields with their defaults.
func (c *PredictiveConfig) ApplyDefaults() error { return defaults.Set(c) }

// Validate checks field bounds; failures are configuration errors.
func (c *PredictiveConfig) Validate() error {
	if err := configValidator.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrConfiguration, err)
	}
	if c.RiskLookbackMonths < c.AlphaLookbackMonths {
		return fmt.Errorf("%w: risk lookback (%dm) must not be shorter than alpha lookback (%dm)",
			ErrConfiguration, c.RiskLookbackMonths, c.AlphaLookbackMonths)
	}
	return nil
}

// StepMonths returns the schedule step in months, or 0 for weekly.
func (f RebalanceFreq) StepMonths() int {
	switch f {
	case FreqQuarterly:
		return 3
	case FreqWeekly:
		return 0
	default:
		return 1
	}
}
