package cluster

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	"AlphaWalk/internal/domain/models"

	"gonum.org/v1/gonum/stat"
)

const (
	defaultSeed = 42
	nInit       = 10
	maxIter     = 300
)

// Option configures Service.
type Option func(*Service)

// WithSeed overrides the deterministic seed.
func WithSeed(seed int64) Option {
	return func(s *Service) {
		s.seed = seed
	}
}

// Service groups the latest month's tickers by indicator similarity using
// k-means++ with restarts. Return columns are excluded so clusters reflect
// current indicator state, not trailing performance.
type Service struct {
	seed int64
}

func NewService(opts ...Option) *Service {
	s := &Service{seed: defaultSeed}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cluster runs k-means on the latest feature rows and reports labels,
// silhouette and per-cluster stats.
func (s *Service) Cluster(table *models.FeatureTable, nClusters int) (*models.ClusterResult, error) {
	if table.IsEmpty() {
		return nil, fmt.Errorf("%w: empty feature table", models.ErrDataInsufficiency)
	}
	_, rows := table.Latest()
	if len(rows) < nClusters {
		return nil, fmt.Errorf("%w: %d tickers for %d clusters", models.ErrDataInsufficiency, len(rows), nClusters)
	}

	cols := clusterColumns(table.Names)
	X := make([][]float64, len(rows))
	tickers := make([]string, len(rows))
	for i, r := range rows {
		x := make([]float64, len(cols))
		for j, c := range cols {
			x[j] = r.Values[c]
		}
		X[i] = x
		tickers[i] = r.Ticker
	}
	standardize(X)

	rng := rand.New(rand.NewSource(s.seed))
	var bestLabels []int
	bestInertia := math.Inf(1)
	for run := 0; run < nInit; run++ {
		labels, inertia := kmeansOnce(X, nClusters, rng)
		if inertia < bestInertia {
			bestInertia = inertia
			bestLabels = labels
		}
	}

	result := &models.ClusterResult{
		NClusters:  nClusters,
		Silhouette: silhouette(X, bestLabels, nClusters),
		Labels:     bestLabels,
		Tickers:    tickers,
	}

	rsiCol := indexOf(table.Names, "rsi")
	volCol := indexOf(table.Names, "garman_klass_vol")
	for c := 0; c < nClusters; c++ {
		cs := models.ClusterStat{ClusterID: c}
		var rsiSum, volSum float64
		for i, lbl := range bestLabels {
			if lbl != c {
				continue
			}
			cs.NStocks++
			cs.Stocks = append(cs.Stocks, tickers[i])
			if rsiCol >= 0 {
				rsiSum += rows[i].Values[rsiCol]
			}
			if volCol >= 0 {
				volSum += rows[i].Values[volCol]
			}
		}
		if cs.NStocks > 0 {
			if rsiCol >= 0 {
				cs.AvgRSI = rsiSum / float64(cs.NStocks)
			}
			if volCol >= 0 {
				cs.AvgVolatility = volSum / float64(cs.NStocks)
			}
		}
		result.Stats = append(result.Stats, cs)
	}
	return result, nil
}

// clusterColumns keeps indicator columns, dropping trailing-return ones.
func clusterColumns(names []string) []int {
	var out []int
	for i, n := range names {
		if strings.HasPrefix(n, "return") {
			continue
		}
		out = append(out, i)
	}
	return out
}

func standardize(X [][]float64) {
	if len(X) == 0 {
		return
	}
	cols := len(X[0])
	col := make([]float64, len(X))
	for j := 0; j < cols; j++ {
		for i, row := range X {
			col[i] = row[j]
		}
		mean := stat.Mean(col, nil)
		sd := stat.PopStdDev(col, nil)
		if sd == 0 {
			sd = 1
		}
		for _, row := range X {
			row[j] = (row[j] - mean) / sd
		}
	}
}

// kmeansOnce runs one k-means++ seeding plus Lloyd iteration.
func kmeansOnce(X [][]float64, k int, rng *rand.Rand) ([]int, float64) {
	centroids := seedPlusPlus(X, k, rng)
	labels := make([]int, len(X))

	for iter := 0; iter < maxIter; iter++ {
		changed := false
		for i, x := range X {
			best, bestDist := 0, math.Inf(1)
			for c, cent := range centroids {
				if d := sqDist(x, cent); d < bestDist {
					best, bestDist = c, d
				}
			}
			if labels[i] != best {
				labels[i] = best
				changed = true
			}
		}
		if !changed && iter > 0 {
			break
		}

		counts := make([]int, k)
		next := make([][]float64, k)
		for c := range next {
			next[c] = make([]float64, len(X[0]))
		}
		for i, x := range X {
			c := labels[i]
			counts[c]++
			for j, v := range x {
				next[c][j] += v
			}
		}
		for c := range next {
			if counts[c] == 0 {
				// re-seed empty cluster at the farthest point
				next[c] = farthestPoint(X, centroids)
				continue
			}
			for j := range next[c] {
				next[c][j] /= float64(counts[c])
			}
		}
		centroids = next
	}

	var inertia float64
	for i, x := range X {
		inertia += sqDist(x, centroids[labels[i]])
	}
	return labels, inertia
}

func seedPlusPlus(X [][]float64, k int, rng *rand.Rand) [][]float64 {
	centroids := make([][]float64, 0, k)
	centroids = append(centroids, X[rng.Intn(len(X))])

	dists := make([]float64, len(X))
	for len(centroids) < k {
		var total float64
		for i, x := range X {
			d := math.Inf(1)
			for _, c := range centroids {
				if v := sqDist(x, c); v < d {
					d = v
				}
			}
			dists[i] = d
			total += d
		}
		if total == 0 {
			centroids = append(centroids, X[rng.Intn(len(X))])
			continue
		}
		target := rng.Float64() * total
		var acc float64
		pick := len(X) - 1
		for i, d := range dists {
			acc += d
			if acc >= target {
				pick = i
				break
			}
		}
		centroids = append(centroids, X[pick])
	}
	return centroids
}

func farthestPoint(X [][]float64, centroids [][]float64) []float64 {
	best, bestDist := 0, -1.0
	for i, x := range X {
		d := math.Inf(1)
		for _, c := range centroids {
			if v := sqDist(x, c); v < d {
				d = v
			}
		}
		if d > bestDist {
			best, bestDist = i, d
		}
	}
	out := make([]float64, len(X[best]))
	copy(out, X[best])
	return out
}

// silhouette computes the mean silhouette coefficient over all samples.
func silhouette(X [][]float64, labels []int, k int) float64 {
	n := len(X)
	if n < 2 || k < 2 {
		return 0
	}

	var total float64
	var counted int
	for i := 0; i < n; i++ {
		sumByCluster := make([]float64, k)
		countByCluster := make([]int, k)
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			d := math.Sqrt(sqDist(X[i], X[j]))
			sumByCluster[labels[j]] += d
			countByCluster[labels[j]]++
		}

		own := labels[i]
		if countByCluster[own] == 0 {
			continue
		}
		a := sumByCluster[own] / float64(countByCluster[own])

		b := math.Inf(1)
		for c := 0; c < k; c++ {
			if c == own || countByCluster[c] == 0 {
				continue
			}
			if v := sumByCluster[c] / float64(countByCluster[c]); v < b {
				b = v
			}
		}
		if math.IsInf(b, 1) {
			continue
		}

		denom := math.Max(a, b)
		if denom > 0 {
			total += (b - a) / denom
		}
		counted++
	}
	if counted == 0 {
		return 0
	}
	return total / float64(counted)
}

func sqDist(a, b []float64) float64 {
	var s float64
	for i := range a {
		d := a[i] - b[i]
		s += d * d
	}
	return s
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}
