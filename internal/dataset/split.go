package dataset

import (
	"math"
	"math/rand"

	"florai-occurrence/internal/common"
)

// StratifiedSplit partitions samples into train and test sets preserving the
// class proportions of the labels. The split is seeded so training runs are
// reproducible.
func StratifiedSplit(samples []Sample, testFraction float64, seed int64) (train, test []Sample) {
	if testFraction <= 0 {
		return samples, nil
	}
	if testFraction >= 1 {
		return nil, samples
	}

	rng := rand.New(rand.NewSource(seed))

	byClass := make(map[common.Likelihood][]int, common.NumClasses)
	for i, s := range samples {
		byClass[s.Label] = append(byClass[s.Label], i)
	}

	train = make([]Sample, 0, len(samples))
	test = make([]Sample, 0, int(float64(len(samples))*testFraction)+common.NumClasses)

	// Iterate classes in label order so the split is deterministic for a
	// given seed regardless of map iteration.
	for label := common.Likelihood(0); label < common.NumClasses; label++ {
		idx := byClass[label]
		if len(idx) == 0 {
			continue
		}
		rng.Shuffle(len(idx), func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })

		nTest := int(math.Round(float64(len(idx)) * testFraction))
		if nTest == 0 && len(idx) > 1 {
			nTest = 1
		}
		for k, i := range idx {
			if k < nTest {
				test = append(test, samples[i])
			} else {
				train = append(train, samples[i])
			}
		}
	}

	rng.Shuffle(len(train), func(i, j int) { train[i], train[j] = train[j], train[i] })
	rng.Shuffle(len(test), func(i, j int) { test[i], test[j] = test[j], test[i] })
	return train, test
}
