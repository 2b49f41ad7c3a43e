package ml

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

// Scaler standardizes features to zero mean and unit variance. It must be
// fitted on the training split only and applied identically at training and
// inference time.
type Scaler struct {
	Mean []float64 `json:"mean"`
	Std  []float64 `json:"std"`
}

// FitScaler computes per-column mean and standard deviation over X.
func FitScaler(X [][]float64) (*Scaler, error) {
	if len(X) == 0 {
		return nil, fmt.Errorf("cannot fit scaler on empty matrix")
	}
	d := len(X[0])
	col := make([]float64, len(X))
	s := &Scaler{Mean: make([]float64, d), Std: make([]float64, d)}

	for j := 0; j < d; j++ {
		for i, row := range X {
			if len(row) != d {
				return nil, fmt.Errorf("row %d has %d features, expected %d", i, len(row), d)
			}
			col[i] = row[j]
		}
		mean := stat.Mean(col, nil)
		s.Mean[j] = mean
		// Population standard deviation, matching the scaler the model was
		// originally trained with.
		n := float64(len(col))
		std := math.Sqrt(stat.Variance(col, nil) * (n - 1) / n)
		// Constant columns scale to zero offset, not NaN.
		if std == 0 || math.IsNaN(std) {
			std = 1
		}
		s.Std[j] = std
	}
	return s, nil
}

// Transform standardizes a single feature vector.
func (s *Scaler) Transform(x []float64) ([]float64, error) {
	if len(x) != len(s.Mean) {
		return nil, fmt.Errorf("expected %d features, got %d", len(s.Mean), len(x))
	}
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.Mean[j]) / s.Std[j]
	}
	return out, nil
}

// TransformAll standardizes a matrix row by row.
func (s *Scaler) TransformAll(X [][]float64) ([][]float64, error) {
	out := make([][]float64, len(X))
	for i, row := range X {
		t, err := s.Transform(row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}
