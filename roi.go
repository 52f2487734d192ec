package zigzag

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// DefaultFee is the flat cost of a single trade, as a fraction of the traded value.
const DefaultFee = 0.002

// ROI estimates the theoretical return of trading every interior leg of the zigzag:
// the sum of |v[i]-v[i-1]|/v[i-1] - fee. The leg leaving the first pivot and the
// leg reaching the last pivot are not closed round trips and are not counted.
// The fee is taken as is, Config.Validate bounds it.
func ROI(pivots Pivots, fee float64) (float64, error) {
	if len(pivots) < 3 {
		return 0, nil
	}

	legs := make([]float64, 0, len(pivots))
	for i := 2; i < len(pivots)-1; i++ {
		from, to := pivots[i-1].Value, pivots[i].Value
		if from == 0 {
			return 0, errors.Wrapf(ErrArithmeticDegenerate, "pivot %d has a zero value", pivots[i-1].Index)
		}
		legs = append(legs, math.Abs((to-from)/from)-fee)
	}

	return floats.Sum(legs), nil
}
