package alpha

import (
	"fmt"
	"math"
	"sort"
)

// RobustScaler centers on the per-column median and scales by the
// interquartile range, which keeps winsorization-surviving outliers from
// dominating the fit. Columns with zero IQR pass through unscaled.
type RobustScaler struct {
	center []float64
	scale  []float64
}

// Fit learns per-column median and IQR.
func (s *RobustScaler) Fit(X [][]float64) error {
	if len(X) == 0 {
		return fmt.Errorf("scaler fit: empty matrix")
	}
	cols := len(X[0])
	s.center = make([]float64, cols)
	s.scale = make([]float64, cols)

	col := make([]float64, 0, len(X))
	for j := 0; j < cols; j++ {
		col = col[:0]
		for _, row := range X {
			if !math.IsNaN(row[j]) {
				col = append(col, row[j])
			}
		}
		if len(col) == 0 {
			s.center[j] = 0
			s.scale[j] = 1
			continue
		}
		sort.Float64s(col)
		s.center[j] = percentile(col, 0.50)
		iqr := percentile(col, 0.75) - percentile(col, 0.25)
		if iqr == 0 {
			iqr = 1
		}
		s.scale[j] = iqr
	}
	return nil
}

// Transform applies the learned centering and scaling.
func (s *RobustScaler) Transform(X [][]float64) ([][]float64, error) {
	if s.center == nil {
		return nil, fmt.Errorf("scaler transform: not fitted")
	}
	out := make([][]float64, len(X))
	for i, row := range X {
		if len(row) != len(s.center) {
			return nil, fmt.Errorf("scaler transform: row width %d != %d", len(row), len(s.center))
		}
		scaled := make([]float64, len(row))
		for j, v := range row {
			scaled[j] = (v - s.center[j]) / s.scale[j]
		}
		out[i] = scaled
	}
	return out, nil
}

// FitTransform fits and transforms in one pass.
func (s *RobustScaler) FitTransform(X [][]float64) ([][]float64, error) {
	if err := s.Fit(X); err != nil {
		return nil, err
	}
	return s.Transform(X)
}

// percentile interpolates linearly on a sorted slice.
func percentile(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}
