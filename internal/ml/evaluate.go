package ml

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"florai-occurrence/internal/common"
)

// ClassMetrics holds per-class evaluation results.
type ClassMetrics struct {
	Precision float64
	Recall    float64
	Support   int
}

// Report is the held-out evaluation of a trained model.
type Report struct {
	Accuracy  float64
	Classes   [common.NumClasses]ClassMetrics
	Confusion [common.NumClasses][common.NumClasses]int // [true][predicted]
	Samples   int
}

// Evaluate scores the model over scaled features X with true labels y.
func Evaluate(m *Model, X [][]float64, y []int) (Report, error) {
	var r Report
	if len(X) != len(y) {
		return r, fmt.Errorf("evaluation shape mismatch: %d rows, %d labels", len(X), len(y))
	}
	r.Samples = len(X)

	correct := 0
	for i, x := range X {
		probs, err := m.Probabilities(x)
		if err != nil {
			return r, fmt.Errorf("row %d: %w", i, err)
		}
		pred := argmax(probs)
		r.Confusion[y[i]][pred]++
		if pred == y[i] {
			correct++
		}
	}
	if r.Samples > 0 {
		r.Accuracy = float64(correct) / float64(r.Samples)
	}

	for class := 0; class < common.NumClasses; class++ {
		var truePos, predicted, support int
		for other := 0; other < common.NumClasses; other++ {
			predicted += r.Confusion[other][class]
			support += r.Confusion[class][other]
		}
		truePos = r.Confusion[class][class]

		cm := &r.Classes[class]
		cm.Support = support
		if predicted > 0 {
			cm.Precision = float64(truePos) / float64(predicted)
		}
		if support > 0 {
			cm.Recall = float64(truePos) / float64(support)
		}
	}
	return r, nil
}

// Log writes the report in the structured format the training binary emits.
func (r Report) Log() {
	log.Info().
		Int("samples", r.Samples).
		Float64("accuracy", r.Accuracy).
		Msg("held-out evaluation")

	for class := 0; class < common.NumClasses; class++ {
		cm := r.Classes[class]
		log.Info().
			Str("class", common.Likelihood(class).String()).
			Float64("precision", cm.Precision).
			Float64("recall", cm.Recall).
			Int("support", cm.Support).
			Msg("class metrics")
	}
	for t := 0; t < common.NumClasses; t++ {
		log.Info().
			Str("true", common.Likelihood(t).String()).
			Ints("predicted_low_medium_high", []int{r.Confusion[t][0], r.Confusion[t][1], r.Confusion[t][2]}).
			Msg("confusion row")
	}
}
