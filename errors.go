package zigzag

import "github.com/pkg/errors"

var (
	// ErrConfiguration is returned when a parameter is rejected before any computation starts.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrArithmeticDegenerate is returned when a price used as divisor is zero.
	ErrArithmeticDegenerate = errors.New("degenerate price series")

	// ErrEmptySeries is returned when the datafeed produced no candle.
	ErrEmptySeries = errors.New("empty price series")
)

func configErrorf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConfiguration, format, args...)
}
