package models

// Requests for the simulation HTTP endpoints. Defined in domain for
// consistency and reuse.

// PanelRequest selects the price history a run operates on.
type PanelRequest struct {
	Tickers   []string `json:"tickers" validate:"required,min=1,dive,required"`
	StartDate string   `json:"start_date" validate:"required,datetime=2006-01-02"`
	EndDate   string   `json:"end_date" validate:"required,datetime=2006-01-02"`
}

// OptimizeRequest drives the one-shot optimize endpoint: features,
// clustering, max-Sharpe allocation and a static-weights backtest.
type OptimizeRequest struct {
	PanelRequest
	NClusters      int     `json:"n_clusters" default:"4" validate:"gte=2,lte=20"`
	RiskFreeRate   float64 `json:"risk_free_rate" default:"0.05" validate:"gte=0,lte=0.25"`
	MaxWeight      float64 `json:"max_weight" default:"1" validate:"gt=0,lte=1"`
	InitialCapital float64 `json:"initial_capital" default:"100000" validate:"gt=0"`
}

// WalkForwardRequest drives the base walk-forward simulation.
type WalkForwardRequest struct {
	PanelRequest
	Config    SimulationConfig `json:"config"`
	Benchmark string           `json:"benchmark,omitempty" validate:"omitempty,oneof=NIFTY50 NIFTYBANK"`
}

// PredictiveWalkForwardRequest drives the predictive simulation.
type PredictiveWalkForwardRequest struct {
	PanelRequest
	Config    PredictiveConfig `json:"config"`
	Benchmark string           `json:"benchmark,omitempty" validate:"omitempty,oneof=NIFTY50 NIFTYBANK"`
}
