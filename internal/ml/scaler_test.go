package ml

import (
	"math"
	"testing"
)

func TestFitScaler(t *testing.T) {
	t.Parallel()

	X := [][]float64{
		{1, 10, 5},
		{2, 20, 5},
		{3, 30, 5},
		{4, 40, 5},
	}
	s, err := FitScaler(X)
	if err != nil {
		t.Fatalf("FitScaler: %v", err)
	}

	if s.Mean[0] != 2.5 || s.Mean[1] != 25 || s.Mean[2] != 5 {
		t.Errorf("unexpected means: %v", s.Mean)
	}
	// Population std of {1,2,3,4} is sqrt(1.25).
	if math.Abs(s.Std[0]-math.Sqrt(1.25)) > 1e-12 {
		t.Errorf("expected std %v, got %v", math.Sqrt(1.25), s.Std[0])
	}
	// Constant column gets std 1, not 0.
	if s.Std[2] != 1 {
		t.Errorf("constant column std: expected 1, got %v", s.Std[2])
	}

	out, err := s.Transform([]float64{2.5, 25, 5})
	if err != nil {
		t.Fatalf("Transform: %v", err)
	}
	for i, v := range out {
		if math.Abs(v) > 1e-12 {
			t.Errorf("mean row should scale to zero, feature %d = %v", i, v)
		}
	}
}

func TestScaler_DimensionMismatch(t *testing.T) {
	t.Parallel()

	s := &Scaler{Mean: []float64{0, 0}, Std: []float64{1, 1}}
	if _, err := s.Transform([]float64{1}); err == nil {
		t.Error("expected error for wrong dimension")
	}
	if _, err := FitScaler(nil); err == nil {
		t.Error("expected error for empty matrix")
	}
	if _, err := FitScaler([][]float64{{1, 2}, {1}}); err == nil {
		t.Error("expected error for ragged matrix")
	}
}

func TestScaler_TrainServeConsistency(t *testing.T) {
	t.Parallel()

	X := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	s, err := FitScaler(X)
	if err != nil {
		t.Fatal(err)
	}
	all, err := s.TransformAll(X)
	if err != nil {
		t.Fatal(err)
	}
	for i, row := range X {
		one, err := s.Transform(row)
		if err != nil {
			t.Fatal(err)
		}
		for j := range one {
			if one[j] != all[i][j] {
				t.Errorf("row %d feature %d: single %v vs batch %v", i, j, one[j], all[i][j])
			}
		}
	}
}
