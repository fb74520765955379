package scoring

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidLevels is returned by NewLeveler for inconsistent thresholds or labels.
var ErrInvalidLevels = errors.New("scoring: invalid level configuration")

// Leveler maps a similarity score to a discrete achievement level.
// With thresholds [t0,t1,t2] and labels [L0..L3]: s < t0 is L0, t0 <= s < t1 is L1,
// t1 <= s < t2 is L2 and s >= t2 is L3.
type Leveler struct {
	thresholds []float64
	labels     []string
}

// NewLeveler validates that thresholds are strictly increasing within [0,1] and that there is
// exactly one more label than thresholds.
func NewLeveler(thresholds []float64, labels []string) (*Leveler, error) {
	if len(thresholds) == 0 {
		return nil, fmt.Errorf("%w: no thresholds", ErrInvalidLevels)
	}

	if len(labels) != len(thresholds)+1 {
		return nil, fmt.Errorf("%w: %d thresholds need %d labels, got %d",
			ErrInvalidLevels, len(thresholds), len(thresholds)+1, len(labels))
	}

	for i, t := range thresholds {
		if math.IsNaN(t) || t < 0 || t > 1 {
			return nil, fmt.Errorf("%w: threshold %d out of [0,1]", ErrInvalidLevels, i)
		}

		if i > 0 && t <= thresholds[i-1] {
			return nil, fmt.Errorf("%w: thresholds must be strictly increasing", ErrInvalidLevels)
		}
	}

	for i, l := range labels {
		if l == "" {
			return nil, fmt.Errorf("%w: label %d is empty", ErrInvalidLevels, i)
		}
	}

	return &Leveler{
		thresholds: append([]float64(nil), thresholds...),
		labels:     append([]string(nil), labels...),
	}, nil
}

// LevelOf returns the label for score. NaN maps to the lowest level.
func (l *Leveler) LevelOf(score float64) string {
	if math.IsNaN(score) {
		return l.labels[0]
	}

	for i, t := range l.thresholds {
		if score < t {
			return l.labels[i]
		}
	}

	return l.labels[len(l.labels)-1]
}

// Lowest is the label assigned to unknown questions and empty answers.
func (l *Leveler) Lowest() string {
	return l.labels[0]
}

// Labels returns a copy of the ordered labels, lowest first.
func (l *Leveler) Labels() []string {
	return append([]string(nil), l.labels...)
}
