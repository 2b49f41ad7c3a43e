package ml

import (
	"math"
	"math/rand"
	"testing"

	"florai-occurrence/internal/common"
)

// syntheticData builds a three-class problem that is cleanly separable on
// the first two features, mimicking the temperature/precipitation structure
// of the real dataset.
func syntheticData(n int, seed int64) (X [][]float64, y []int) {
	rng := rand.New(rand.NewSource(seed))
	centers := [common.NumClasses][2]float64{
		{5, 1},   // Low: cold and dry
		{20, 8},  // Medium
		{28, 18}, // High: tropical and wet
	}
	for i := 0; i < n; i++ {
		class := i % common.NumClasses
		c := centers[class]
		X = append(X, []float64{
			c[0] + rng.NormFloat64()*1.5,
			c[1] + rng.NormFloat64()*1.5,
			rng.Float64(), // noise feature
		})
		y = append(y, class)
	}
	return X, y
}

func smallConfig() TrainConfig {
	cfg := DefaultTrainConfig()
	cfg.Rounds = 30
	cfg.MaxDepth = 3
	return cfg
}

func TestTrain_SeparableData(t *testing.T) {
	t.Parallel()

	X, y := syntheticData(300, 1)
	m, err := Train(X, y, smallConfig())
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	if err := m.Validate(); err != nil {
		t.Fatalf("trained model fails validation: %v", err)
	}

	report, err := Evaluate(m, X, y)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if report.Accuracy < 0.95 {
		t.Errorf("expected >=95%% training accuracy on separable data, got %.3f", report.Accuracy)
	}
}

func TestModel_ProbabilityContract(t *testing.T) {
	t.Parallel()

	X, y := syntheticData(150, 2)
	m, err := Train(X, y, smallConfig())
	if err != nil {
		t.Fatal(err)
	}

	for _, x := range X[:30] {
		probs, err := m.Probabilities(x)
		if err != nil {
			t.Fatal(err)
		}
		var sum float64
		for _, p := range probs {
			if p < 0 || p > 1 {
				t.Errorf("probability out of [0,1]: %v", p)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Errorf("probabilities sum to %v, expected 1", sum)
		}
	}
}

func TestTrain_Deterministic(t *testing.T) {
	t.Parallel()

	X, y := syntheticData(90, 3)
	cfg := smallConfig()
	a, err := Train(X, y, cfg)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Train(X, y, cfg)
	if err != nil {
		t.Fatal(err)
	}
	for _, x := range X[:10] {
		pa, _ := a.Probabilities(x)
		pb, _ := b.Probabilities(x)
		for k := range pa {
			if pa[k] != pb[k] {
				t.Fatalf("seeded training not reproducible: %v vs %v", pa, pb)
			}
		}
	}
}

func TestTrain_InvalidInputs(t *testing.T) {
	t.Parallel()

	cfg := smallConfig()
	if _, err := Train(nil, nil, cfg); err == nil {
		t.Error("expected error for empty data")
	}
	if _, err := Train([][]float64{{1}}, []int{0, 1}, cfg); err == nil {
		t.Error("expected error for shape mismatch")
	}
	if _, err := Train([][]float64{{1}}, []int{5}, cfg); err == nil {
		t.Error("expected error for out-of-range label")
	}
	bad := cfg
	bad.Rounds = 0
	if _, err := Train([][]float64{{1}, {2}}, []int{0, 1}, bad); err == nil {
		t.Error("expected error for zero rounds")
	}
}

func TestEvaluate_ConfusionCounts(t *testing.T) {
	t.Parallel()

	X, y := syntheticData(120, 4)
	m, err := Train(X, y, smallConfig())
	if err != nil {
		t.Fatal(err)
	}
	report, err := Evaluate(m, X, y)
	if err != nil {
		t.Fatal(err)
	}

	total := 0
	for i := 0; i < common.NumClasses; i++ {
		for j := 0; j < common.NumClasses; j++ {
			total += report.Confusion[i][j]
		}
	}
	if total != len(X) {
		t.Errorf("confusion matrix covers %d samples, expected %d", total, len(X))
	}
	for class := 0; class < common.NumClasses; class++ {
		if report.Classes[class].Support != 40 {
			t.Errorf("class %d support: expected 40, got %d", class, report.Classes[class].Support)
		}
	}
}
