package zigzag

import "github.com/pkg/errors"

// Series is an ordered sequence of candles; the index is the time axis.
type Series []Candle

// TimeAggregation aggregate the candles from a channel and write the output in a separate channel
type TimeAggregation func(<-chan Candle) <-chan Candle

func NoAggregation(inputCandleChan <-chan Candle) <-chan Candle {
	outchan := make(chan Candle, 1)

	go func() {
		defer close(outchan)
		for candle := range inputCandleChan {
			outchan <- candle
		}
	}()
	return outchan
}

// AggregateBars merges every n consecutive candles into one.
// A trailing incomplete group is dropped.
func AggregateBars(n int) TimeAggregation {
	if n <= 1 {
		return NoAggregation
	}

	return func(inputCandleChan <-chan Candle) <-chan Candle {
		outchan := make(chan Candle, 1024)

		go func() {
			defer close(outchan)
			i := 0
			aggregated := Candle{}
			for candle := range inputCandleChan {
				aggregated = mergeCandles(aggregated, candle)
				i++
				if i == n {
					outchan <- aggregated
					aggregated = Candle{}
					i = 0
				}
			}
		}()
		return outchan
	}
}

// mergeCandles suppose that a is before b.
func mergeCandles(a Candle, b Candle) Candle {
	merged := Candle{Symbol: b.Symbol}

	merged.Open = a.Open
	if a.Open == 0 {
		merged.Open = b.Open
	}

	merged.Close = b.Close

	if a.High > b.High {
		merged.High = a.High
	} else {
		merged.High = b.High
	}

	if a.Low > 0 && a.Low < b.Low {
		merged.Low = a.Low
	} else {
		merged.Low = b.Low
	}

	merged.Time = b.Time
	merged.Volume = a.Volume + b.Volume

	return merged
}

// Collect drains the datafeed through the aggregation and keeps the latest lookback candles.
// A lookback <= 0 keeps everything.
func Collect(feed DataFeed, aggregation TimeAggregation, lookback int) (Series, error) {
	if aggregation == nil {
		aggregation = NoAggregation
	}

	basefeed, err := feed.Run()
	if err != nil {
		return nil, errors.Wrap(err, "error consuming base feed")
	}

	var series Series
	for candle := range aggregation(basefeed) {
		series = append(series, candle)
		if lookback > 0 && len(series) > 2*lookback {
			series = append(series[:0], series[len(series)-lookback:]...)
		}
	}

	if lookback > 0 && len(series) > lookback {
		series = series[len(series)-lookback:]
	}

	if len(series) == 0 {
		return nil, ErrEmptySeries
	}
	return series, nil
}

func (s Series) Open() []float64 {
	res := make([]float64, len(s))
	for i, c := range s {
		res[i] = c.Open
	}
	return res
}

func (s Series) Close() []float64 {
	res := make([]float64, len(s))
	for i, c := range s {
		res[i] = c.Close
	}
	return res
}

func (s Series) High() []float64 {
	res := make([]float64, len(s))
	for i, c := range s {
		res[i] = c.High
	}
	return res
}

func (s Series) Low() []float64 {
	res := make([]float64, len(s))
	for i, c := range s {
		res[i] = c.Low
	}
	return res
}
