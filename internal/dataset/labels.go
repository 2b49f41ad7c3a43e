package dataset

import (
	"florai-occurrence/internal/common"
	"florai-occurrence/internal/geo"
)

// Density thresholds: cells with 2-5 presences are Medium, 6+ are High.
const (
	mediumMinCount = 2
	highMinCount   = 6
)

type gridCell struct {
	lat, lon float64
}

// AssignLabels quantizes spatial presence density into the three likelihood
// classes. Coordinates are snapped onto a grid of cell degrees and presences
// counted per cell; each presence sample inherits its cell's count.
//
// Absence samples are always Low, whatever the density around them —
// absence semantics are decoupled from spatial clustering. Deterministic.
func AssignLabels(samples []Sample, cell float64) {
	counts := make(map[gridCell]int)
	for _, s := range samples {
		if s.Presence == 0 {
			continue
		}
		counts[cellOf(s, cell)]++
	}

	for i := range samples {
		s := &samples[i]
		if s.Presence == 0 {
			s.Label = common.Low
			continue
		}
		switch n := counts[cellOf(*s, cell)]; {
		case n >= highMinCount:
			s.Label = common.High
		case n >= mediumMinCount:
			s.Label = common.Medium
		default:
			s.Label = common.Low // isolated occurrence
		}
	}
}

func cellOf(s Sample, cell float64) gridCell {
	return gridCell{
		lat: geo.SnapToGrid(s.Obs.Latitude, cell),
		lon: geo.SnapToGrid(s.Obs.Longitude, cell),
	}
}
