package models

import "time"

// TrainingSet is the aligned sample matrix the alpha models train on. Rows
// share one index: X[i] was observed at Dates[i] for Tickers[i], and Y[i]
// is that observation's realized forward return.
type TrainingSet struct {
	X       [][]float64
	Y       []float64
	Dates   []time.Time
	Tickers []string
	Names   []string // feature names, same order as X columns
}

// Len returns the number of samples.
func (s *TrainingSet) Len() int { return len(s.Y) }

// CVResults aggregates fold metrics from time-series cross-validation.
type CVResults struct {
	MeanIC   float64 `json:"mean_ic"`
	StdIC    float64 `json:"std_ic"`
	MeanRMSE float64 `json:"mean_rmse"`
	MeanR2   float64 `json:"mean_r2"`
}
