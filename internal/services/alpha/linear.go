package alpha

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ridgeRegressor solves the L2-penalized least squares problem in closed
// form. The intercept is fitted by centering and left unpenalized.
type ridgeRegressor struct {
	alpha     float64
	coef      []float64
	intercept float64
}

func (r *ridgeRegressor) fit(X [][]float64, y []float64) error {
	n, p, err := checkShape(X, y)
	if err != nil {
		return err
	}

	xMean, yMean := columnMeans(X), mean(y)

	// normal equations on centered data: (XcT Xc + alpha I) w = XcT yc
	a := mat.NewSymDense(p, nil)
	b := mat.NewVecDense(p, nil)
	for j := 0; j < p; j++ {
		for k := j; k < p; k++ {
			var s float64
			for i := 0; i < n; i++ {
				s += (X[i][j] - xMean[j]) * (X[i][k] - xMean[k])
			}
			if j == k {
				s += r.alpha
			}
			a.SetSym(j, k, s)
		}
		var s float64
		for i := 0; i < n; i++ {
			s += (X[i][j] - xMean[j]) * (y[i] - yMean)
		}
		b.SetVec(j, s)
	}

	var chol mat.Cholesky
	if !chol.Factorize(a) {
		return fmt.Errorf("ridge fit: normal equations not positive definite")
	}
	var w mat.VecDense
	if err := chol.SolveVecTo(&w, b); err != nil {
		return fmt.Errorf("ridge fit: %w", err)
	}

	r.coef = make([]float64, p)
	r.intercept = yMean
	for j := 0; j < p; j++ {
		r.coef[j] = w.AtVec(j)
		r.intercept -= r.coef[j] * xMean[j]
	}
	return nil
}

func (r *ridgeRegressor) predict(X [][]float64) []float64 {
	return linearPredict(X, r.coef, r.intercept)
}

func (r *ridgeRegressor) importance() []float64 {
	return absCoef(r.coef)
}

// coordinateDescentRegressor fits lasso (l1Ratio=1) and elastic net on the
// scaled objective 1/(2n) ||y - Xw||^2 + alpha * l1Ratio ||w||_1 +
// alpha * (1-l1Ratio)/2 ||w||^2.
type coordinateDescentRegressor struct {
	alpha     float64
	l1Ratio   float64
	maxIter   int
	tol       float64
	coef      []float64
	intercept float64
}

func (r *coordinateDescentRegressor) fit(X [][]float64, y []float64) error {
	n, p, err := checkShape(X, y)
	if err != nil {
		return err
	}

	xMean, yMean := columnMeans(X), mean(y)
	xc := make([][]float64, n)
	yc := make([]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, p)
		for j := 0; j < p; j++ {
			row[j] = X[i][j] - xMean[j]
		}
		xc[i] = row
		yc[i] = y[i] - yMean
	}

	colNorm := make([]float64, p)
	for j := 0; j < p; j++ {
		for i := 0; i < n; i++ {
			colNorm[j] += xc[i][j] * xc[i][j]
		}
	}

	nf := float64(n)
	l1 := r.alpha * r.l1Ratio * nf
	l2 := r.alpha * (1 - r.l1Ratio) * nf

	w := make([]float64, p)
	resid := make([]float64, n)
	copy(resid, yc)

	for iter := 0; iter < r.maxIter; iter++ {
		var maxDelta float64
		for j := 0; j < p; j++ {
			if colNorm[j] == 0 {
				continue
			}
			// partial residual correlation with column j
			var rho float64
			for i := 0; i < n; i++ {
				rho += xc[i][j] * (resid[i] + xc[i][j]*w[j])
			}
			newW := softThreshold(rho, l1) / (colNorm[j] + l2)
			if delta := newW - w[j]; delta != 0 {
				for i := 0; i < n; i++ {
					resid[i] -= xc[i][j] * delta
				}
				if ad := math.Abs(delta); ad > maxDelta {
					maxDelta = ad
				}
				w[j] = newW
			}
		}
		if maxDelta < r.tol {
			break
		}
	}

	r.coef = w
	r.intercept = yMean
	for j := 0; j < p; j++ {
		r.intercept -= w[j] * xMean[j]
	}
	return nil
}

func (r *coordinateDescentRegressor) predict(X [][]float64) []float64 {
	return linearPredict(X, r.coef, r.intercept)
}

func (r *coordinateDescentRegressor) importance() []float64 {
	return absCoef(r.coef)
}

func softThreshold(x, lambda float64) float64 {
	switch {
	case x > lambda:
		return x - lambda
	case x < -lambda:
		return x + lambda
	default:
		return 0
	}
}

func linearPredict(X [][]float64, coef []float64, intercept float64) []float64 {
	out := make([]float64, len(X))
	for i, row := range X {
		s := intercept
		for j, c := range coef {
			s += c * row[j]
		}
		out[i] = s
	}
	return out
}

func absCoef(coef []float64) []float64 {
	if coef == nil {
		return nil
	}
	out := make([]float64, len(coef))
	for i, c := range coef {
		out[i] = math.Abs(c)
	}
	return out
}

func checkShape(X [][]float64, y []float64) (n, p int, err error) {
	n = len(X)
	if n == 0 || n != len(y) {
		return 0, 0, fmt.Errorf("fit: %d rows vs %d targets", n, len(y))
	}
	p = len(X[0])
	if p == 0 {
		return 0, 0, fmt.Errorf("fit: zero-width feature matrix")
	}
	return n, p, nil
}

func columnMeans(X [][]float64) []float64 {
	p := len(X[0])
	out := make([]float64, p)
	for _, row := range X {
		for j, v := range row {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(X))
	}
	return out
}

func mean(xs []float64) float64 {
	var s float64
	for _, x := range xs {
		s += x
	}
	return s / float64(len(xs))
}
