package ml

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/rs/zerolog/log"

	"florai-occurrence/internal/common"
)

// TrainConfig holds gradient-boosting hyperparameters.
type TrainConfig struct {
	Rounds          int     `yaml:"rounds"`
	MaxDepth        int     `yaml:"maxDepth"`
	LearningRate    float64 `yaml:"learningRate"`
	Subsample       float64 `yaml:"subsample"`
	ColSampleByTree float64 `yaml:"colSampleByTree"`
	Lambda          float64 `yaml:"lambda"`
	MinChildWeight  float64 `yaml:"minChildWeight"`
	Seed            int64   `yaml:"seed"`
}

// DefaultTrainConfig mirrors the hyperparameters the production model was
// trained with.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Rounds:          200,
		MaxDepth:        6,
		LearningRate:    0.1,
		Subsample:       0.8,
		ColSampleByTree: 0.8,
		Lambda:          1.0,
		MinChildWeight:  1.0,
		Seed:            common.DefaultTrainingSeed,
	}
}

// Model is a multi-class gradient-boosted tree ensemble with a softmax
// objective. Trees[r][k] is the round-r tree for class k.
type Model struct {
	Classes      int      `json:"classes"`
	Features     int      `json:"features"`
	LearningRate float64  `json:"learning_rate"`
	Trees        [][]Tree `json:"trees"`
}

// Train fits the ensemble on scaled features X and class labels y.
func Train(X [][]float64, y []int, cfg TrainConfig) (*Model, error) {
	if len(X) == 0 || len(X) != len(y) {
		return nil, fmt.Errorf("training data shape mismatch: %d rows, %d labels", len(X), len(y))
	}
	d := len(X[0])
	for i, row := range X {
		if len(row) != d {
			return nil, fmt.Errorf("row %d has %d features, expected %d", i, len(row), d)
		}
	}
	for i, label := range y {
		if label < 0 || label >= common.NumClasses {
			return nil, fmt.Errorf("label %d out of range at row %d", label, i)
		}
	}
	if cfg.Rounds <= 0 || cfg.MaxDepth <= 0 || cfg.LearningRate <= 0 {
		return nil, fmt.Errorf("invalid hyperparameters: rounds=%d depth=%d lr=%v", cfg.Rounds, cfg.MaxDepth, cfg.LearningRate)
	}

	n := len(X)
	k := common.NumClasses
	rng := rand.New(rand.NewSource(cfg.Seed))

	m := &Model{
		Classes:      k,
		Features:     d,
		LearningRate: cfg.LearningRate,
		Trees:        make([][]Tree, 0, cfg.Rounds),
	}

	// Raw scores, updated additively each round.
	raw := make([][]float64, n)
	for i := range raw {
		raw[i] = make([]float64, k)
	}
	prob := make([]float64, k)
	grad := make([]float64, n)
	hess := make([]float64, n)
	probs := make([][]float64, n)
	for i := range probs {
		probs[i] = make([]float64, k)
	}

	builder := &treeBuilder{
		X:              X,
		grad:           grad,
		hess:           hess,
		maxDepth:       cfg.MaxDepth,
		lambda:         cfg.Lambda,
		minChildWeight: cfg.MinChildWeight,
	}

	for round := 0; round < cfg.Rounds; round++ {
		for i := range X {
			softmaxInto(probs[i], raw[i])
		}

		rows := sampleRows(rng, n, cfg.Subsample)
		roundTrees := make([]Tree, k)

		for class := 0; class < k; class++ {
			for i := range X {
				p := probs[i][class]
				target := 0.0
				if y[i] == class {
					target = 1
				}
				grad[i] = p - target
				hess[i] = math.Max(p*(1-p), 1e-16)
			}

			builder.cols = sampleCols(rng, d, cfg.ColSampleByTree)
			tree := builder.fit(rows)
			roundTrees[class] = tree

			for i := range X {
				raw[i][class] += cfg.LearningRate * tree.Predict(X[i])
			}
		}
		m.Trees = append(m.Trees, roundTrees)

		if (round+1)%50 == 0 {
			correct := 0
			for i := range X {
				softmaxInto(prob, raw[i])
				if argmax(prob) == y[i] {
					correct++
				}
			}
			log.Debug().
				Int("round", round+1).
				Float64("train_accuracy", float64(correct)/float64(n)).
				Msg("boosting progress")
		}
	}

	return m, nil
}

// Probabilities returns the softmax class distribution for one scaled
// feature vector.
func (m *Model) Probabilities(x []float64) ([]float64, error) {
	if len(x) != m.Features {
		return nil, fmt.Errorf("expected %d features, got %d", m.Features, len(x))
	}
	raw := make([]float64, m.Classes)
	for _, roundTrees := range m.Trees {
		for class := range roundTrees {
			raw[class] += m.LearningRate * roundTrees[class].Predict(x)
		}
	}
	out := make([]float64, m.Classes)
	softmaxInto(out, raw)
	return out, nil
}

// Validate checks structural consistency of a loaded model.
func (m *Model) Validate() error {
	if m.Classes != common.NumClasses {
		return fmt.Errorf("model has %d classes, expected %d", m.Classes, common.NumClasses)
	}
	if m.Features <= 0 {
		return fmt.Errorf("model has no features")
	}
	if len(m.Trees) == 0 {
		return fmt.Errorf("model has no trees")
	}
	for r, roundTrees := range m.Trees {
		if len(roundTrees) != m.Classes {
			return fmt.Errorf("round %d has %d trees, expected %d", r, len(roundTrees), m.Classes)
		}
		for class, tree := range roundTrees {
			if len(tree.Nodes) == 0 {
				return fmt.Errorf("round %d class %d tree is empty", r, class)
			}
		}
	}
	if m.LearningRate <= 0 {
		return fmt.Errorf("model learning rate %v is invalid", m.LearningRate)
	}
	return nil
}

func softmaxInto(dst, raw []float64) {
	maxRaw := raw[0]
	for _, v := range raw[1:] {
		if v > maxRaw {
			maxRaw = v
		}
	}
	var sum float64
	for i, v := range raw {
		dst[i] = math.Exp(v - maxRaw)
		sum += dst[i]
	}
	for i := range dst {
		dst[i] /= sum
	}
}

func argmax(v []float64) int {
	best := 0
	for i, x := range v {
		if x > v[best] {
			best = i
		}
	}
	return best
}

func sampleRows(rng *rand.Rand, n int, frac float64) []int {
	if frac >= 1 || frac <= 0 {
		rows := make([]int, n)
		for i := range rows {
			rows[i] = i
		}
		return rows
	}
	keep := int(math.Ceil(float64(n) * frac))
	perm := rng.Perm(n)
	return perm[:keep]
}

func sampleCols(rng *rand.Rand, d int, frac float64) []int {
	if frac >= 1 || frac <= 0 {
		cols := make([]int, d)
		for i := range cols {
			cols[i] = i
		}
		return cols
	}
	keep := int(math.Ceil(float64(d) * frac))
	perm := rng.Perm(d)
	return perm[:keep]
}
