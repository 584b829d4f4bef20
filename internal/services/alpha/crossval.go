package alpha

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// fold is one forward-chaining split: train on [0, testStart), test on
// [testStart, testEnd).
type fold struct {
	testStart int
	testEnd   int
}

// timeSeriesSplit partitions n samples into nSplits expanding-window folds.
// The first fold's training prefix absorbs the remainder so every test block
// has equal size.
func timeSeriesSplit(n, nSplits int) ([]fold, error) {
	if nSplits < 2 {
		return nil, fmt.Errorf("need at least 2 splits, got %d", nSplits)
	}
	nFolds := nSplits + 1
	testSize := n / nFolds
	if testSize < 2 {
		return nil, fmt.Errorf("%d samples too few for %d splits", n, nSplits)
	}
	firstTrain := testSize + n%nFolds

	folds := make([]fold, 0, nSplits)
	for i := 0; i < nSplits; i++ {
		start := firstTrain + i*testSize
		folds = append(folds, fold{testStart: start, testEnd: start + testSize})
	}
	return folds, nil
}

func rmse(pred, actual []float64) float64 {
	var s float64
	for i := range pred {
		d := pred[i] - actual[i]
		s += d * d
	}
	return math.Sqrt(s / float64(len(pred)))
}

func r2(pred, actual []float64) float64 {
	m := mean(actual)
	var ssRes, ssTot float64
	for i := range pred {
		d := actual[i] - pred[i]
		ssRes += d * d
		t := actual[i] - m
		ssTot += t * t
	}
	if ssTot == 0 {
		return 0
	}
	return 1 - ssRes/ssTot
}

func meanStd(xs []float64) (mu, sigma float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	return stat.Mean(xs, nil), stat.PopStdDev(xs, nil)
}
