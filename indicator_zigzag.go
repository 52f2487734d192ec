package zigzag

import (
	"fmt"
	"math"

	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
	"gonum.org/v1/gonum/floats"
)

type PivotKind int

const (
	Valley PivotKind = iota
	Peak
)

func (k PivotKind) String() string {
	switch k {
	case Peak:
		return "peak"
	case Valley:
		return "valley"
	default:
		return "BOH"
	}
}

func (k PivotKind) opposite() PivotKind {
	if k == Peak {
		return Valley
	}
	return Peak
}

// Pivot is a confirmed turning point of the series.
type Pivot struct {
	Index int
	Value float64
	Kind  PivotKind
}

func (p Pivot) String() string {
	return fmt.Sprintf("{%6s @%d %v}", p.Kind, p.Index, p.Value)
}

// Pivots is an ordered ZigZag: kinds alternate and indices increase.
type Pivots []Pivot

// XY returns the pivots as parallel coordinate arrays, ready to be plotted.
func (p Pivots) XY() ([]int, []float64) {
	xs := make([]int, len(p))
	ys := make([]float64, len(p))
	for i, pivot := range p {
		xs[i] = pivot.Index
		ys[i] = pivot.Value
	}
	return xs, ys
}

func (p Pivots) Values() []float64 {
	_, ys := p.XY()
	return ys
}

// push appends a pivot on top of the stack
func (p *Pivots) push(pivot Pivot) {
	*p = append(*p, pivot)
}

// replaceTop swaps the last pivot with a more extreme one of the same kind
func (p *Pivots) replaceTop(pivot Pivot) {
	(*p)[len(*p)-1] = pivot
}

func (p Pivots) top() Pivot {
	return p[len(p)-1]
}

// ValidateParams rejects the parameters ZigZag can't work with.
func ValidateParams(depth int, deviation float64) error {
	if depth < 1 {
		return configErrorf("depth must be >= 1, got %d", depth)
	}
	if math.IsNaN(deviation) || math.IsInf(deviation, 0) || deviation <= 0 {
		return configErrorf("deviation must be a positive number, got %v", deviation)
	}
	return nil
}

// ZigZag extracts the alternating peaks and valleys of the series.
//
// Highs separated by at least depth bars are peak candidates, lows are valley
// candidates. Consecutive candidates of the same kind collapse into the most
// extreme one, then legs whose relative amplitude is below deviation percent of
// the total range of the series are pruned.
// A series too short for depth returns no pivots and no error.
func ZigZag(series Series, depth int, deviation float64) (Pivots, error) {
	if err := ValidateParams(depth, deviation); err != nil {
		return nil, err
	}
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}

	if len(series) < 2*depth+1 {
		return Pivots{}, nil
	}

	minDeviation, err := MinDeviation(series, deviation)
	if err != nil {
		return nil, err
	}

	highs := series.High()
	lows := series.Low()
	highIdx := FindPeaks(highs, depth)
	lowIdx := FindPeaks(floats.ScaleTo(make([]float64, len(lows)), -1, lows), depth)

	pivots := alternate(highs, lows, highIdx, lowIdx)
	return Prune(pivots, minDeviation)
}

// MinDeviation is the smallest relative leg amplitude that survives pruning:
// deviation percent of (max(high) - min(low)) / min(low).
func MinDeviation(series Series, deviation float64) (float64, error) {
	if len(series) == 0 {
		return 0, ErrEmptySeries
	}

	maxHigh := floats.Max(series.High())
	minLow := floats.Min(series.Low())
	if minLow == 0 {
		return 0, errors.Wrap(ErrArithmeticDegenerate, "min(low) is zero")
	}

	totalRange := (maxHigh - minLow) / minLow
	return math.Abs(totalRange * deviation / 100), nil
}

// alternate walks the merged candidates left to right and keeps the kinds alternating.
func alternate(highs, lows []float64, highIdx, lowIdx []int) Pivots {
	pivots := Pivots{}

	var last PivotKind
	switch {
	case len(highIdx) == 0 && len(lowIdx) == 0:
		return pivots
	case len(lowIdx) == 0:
		last = Peak
	case len(highIdx) == 0:
		last = Valley
	case highIdx[0] < lowIdx[0]:
		last = Peak
	default:
		last = Valley
	}

	all := make([]int, 0, len(highIdx)+len(lowIdx))
	all = append(all, highIdx...)
	all = append(all, lowIdx...)
	slices.Sort(all)
	all = slices.Compact(all)

	valueOf := func(i int, kind PivotKind) float64 {
		if kind == Peak {
			return highs[i]
		}
		return lows[i]
	}

	for _, i := range all {
		if len(pivots) == 0 {
			pivots.push(Pivot{Index: i, Value: valueOf(i, last), Kind: last})
			continue
		}

		_, isHigh := slices.BinarySearch(highIdx, i)
		_, isLow := slices.BinarySearch(lowIdx, i)

		switch {
		case isHigh && last == Peak:
			if highs[i] >= pivots.top().Value {
				pivots.replaceTop(Pivot{Index: i, Value: highs[i], Kind: Peak})
			}
		case isLow && last == Valley:
			if lows[i] <= pivots.top().Value {
				pivots.replaceTop(Pivot{Index: i, Value: lows[i], Kind: Valley})
			}
		default:
			last = last.opposite()
			pivots.push(Pivot{Index: i, Value: valueOf(i, last), Kind: last})
		}
	}

	return pivots
}

// Prune removes, walking backward, every adjacent pair of pivots whose relative
// change |v[i]-v[i-1]|/v[i] is below minDeviation. After a removal the newly
// adjacent pair is checked too. The first pivot is never removed.
// The input is not modified.
func Prune(pivots Pivots, minDeviation float64) (Pivots, error) {
	p := slices.Clone(pivots)
	if p == nil {
		p = Pivots{}
	}

	i := len(p) - 1
	for i >= 2 {
		current, previous := p[i].Value, p[i-1].Value
		if current == 0 {
			return nil, errors.Wrapf(ErrArithmeticDegenerate, "pivot %d has a zero value", p[i].Index)
		}

		if math.Abs((current-previous)/current) < minDeviation {
			p = slices.Delete(p, i-1, i+1)
			if i-1 > len(p)-1 {
				i = len(p) - 1
				continue
			}
		}
		i--
	}

	return p, nil
}
