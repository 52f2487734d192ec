package zigzag

import "sort"

// FindPeaks returns the indices of the local maxima of values, in increasing order.
//
// The first and the last sample are never a peak. A flat top is reported at the
// middle of the plateau (rounded down). When distance > 1, peaks are visited from
// the highest to the lowest and every peak closer than distance samples to an
// already kept one is dropped.
func FindPeaks(values []float64, distance int) []int {
	peaks := localMaxima(values)
	if distance <= 1 || len(peaks) < 2 {
		return peaks
	}
	return selectByDistance(peaks, values, distance)
}

func localMaxima(x []float64) []int {
	var peaks []int
	last := len(x) - 1

	i := 1
	for i < last {
		if x[i-1] < x[i] {
			ahead := i + 1
			for ahead < last && x[ahead] == x[i] {
				ahead++
			}

			if x[ahead] < x[i] {
				left, right := i, ahead-1
				peaks = append(peaks, (left+right)/2)
				i = ahead
			}
		}
		i++
	}
	return peaks
}

func selectByDistance(peaks []int, values []float64, distance int) []int {
	keep := make([]bool, len(peaks))
	for i := range keep {
		keep[i] = true
	}

	// order[0] is the lowest peak; equal heights keep their position order
	order := make([]int, len(peaks))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return values[peaks[order[a]]] < values[peaks[order[b]]]
	})

	for o := len(order) - 1; o >= 0; o-- {
		j := order[o]
		if !keep[j] {
			continue
		}

		for k := j - 1; k >= 0 && peaks[j]-peaks[k] < distance; k-- {
			keep[k] = false
		}
		for k := j + 1; k < len(peaks) && peaks[k]-peaks[j] < distance; k++ {
			keep[k] = false
		}
	}

	var selected []int
	for i, p := range peaks {
		if keep[i] {
			selected = append(selected, p)
		}
	}
	return selected
}
