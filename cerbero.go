package zigzag

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// ScoreResult is the outcome of one grid point.
type ScoreResult struct {
	Depth     int     `json:"depth"`
	Deviation float64 `json:"deviation"`
	ROI       float64 `json:"roi"`
	Pivots    int     `json:"pivots"`
}

func (r ScoreResult) String() string {
	return fmt.Sprintf("{depth:%d deviation:%v%% roi:%.6f pivots:%d}", r.Depth, r.Deviation, r.ROI, r.Pivots)
}

type ExecutionResult struct {
	TotalTime       time.Duration `json:"total_time"`
	TotalTimeString string        `json:"total_time_S"`
	Symbol          Symbol        `json:"symbol"`
	Bars            int           `json:"bars"`
	Evaluated       int           `json:"evaluated"`
	Best            ScoreResult   `json:"best"`

	// Pivots of the best grid point
	Pivots  Pivots        `json:"-"`
	Series  Series        `json:"-"`
	Results []ScoreResult `json:"-"`
}

// Cerbero is in honor to https://www.backtrader.com/
// It looks for the (depth, deviation) pair whose zigzag has the best theoretical ROI.
type Cerbero struct {
	Config   Config
	DataFeed DataFeed
	Logger   *zap.Logger
}

// Run reads the series from the datafeed and optimizes it.
func (cerbero *Cerbero) Run(ctx context.Context) (ExecutionResult, error) {
	if cerbero.DataFeed == nil {
		return ExecutionResult{}, configErrorf("datafeed is required")
	}
	if err := cerbero.Config.Validate(); err != nil {
		return ExecutionResult{}, err
	}

	series, err := Collect(cerbero.DataFeed, AggregateBars(cerbero.Config.TimeframeBars), cerbero.Config.LookbackCount)
	if err != nil {
		return ExecutionResult{}, errors.Wrapf(err, "loading %s", cerbero.Config.Symbol)
	}
	return cerbero.Optimize(ctx, series)
}

type gridJob struct {
	slot  int
	point ScoreResult
}

type gridOutcome struct {
	result ScoreResult
	pivots Pivots
	err    error
}

// Optimize evaluates every grid point against the series.
// Grid points run in parallel; among equal ROIs the first point in grid order wins.
func (cerbero *Cerbero) Optimize(ctx context.Context, series Series) (ExecutionResult, error) {
	if cerbero.Logger == nil {
		cerbero.Logger = zap.NewNop()
	}
	if err := cerbero.Config.Validate(); err != nil {
		return ExecutionResult{}, err
	}
	if len(series) == 0 {
		return ExecutionResult{}, ErrEmptySeries
	}

	start := time.Now()
	log := cerbero.Logger.With(zap.String("symbol", string(cerbero.Config.Symbol)))
	points := cerbero.Config.Grid.Points()
	outcomes := make([]gridOutcome, len(points))
	fee := cerbero.Config.FeeFraction

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan gridJob)
	var wg sync.WaitGroup
	for w := 0; w < cerbero.Config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				outcomes[job.slot] = cerbero.evaluate(ctx, series, job.point, fee)
				if outcomes[job.slot].err != nil {
					cancel()
				}
			}
		}()
	}

	log.Info("starting grid search", zap.Int("bars", len(series)), zap.Int("points", len(points)))

feed:
	for i, p := range points {
		select {
		case <-ctx.Done():
			break feed
		case jobs <- gridJob{slot: i, point: p}:
		}
	}
	close(jobs)
	wg.Wait()

	for _, o := range outcomes {
		if o.err != nil {
			return ExecutionResult{}, o.err
		}
	}
	if err := ctx.Err(); err != nil {
		return ExecutionResult{}, errors.Wrap(err, "grid search interrupted")
	}

	best := 0
	results := make([]ScoreResult, len(outcomes))
	for i, o := range outcomes {
		results[i] = o.result
		if o.result.ROI > outcomes[best].result.ROI {
			best = i
		}
	}

	res := ExecutionResult{
		Symbol:    cerbero.Config.Symbol,
		Bars:      len(series),
		Evaluated: len(results),
		Best:      results[best],
		Pivots:    outcomes[best].pivots,
		Series:    series,
		Results:   results,
	}
	res.TotalTime = time.Since(start)
	res.TotalTimeString = res.TotalTime.String()

	recordBest(ctx, cerbero.Config.Symbol, res.Best)
	log.Info("grid search completed",
		zap.Int("depth", res.Best.Depth),
		zap.Float64("deviation", res.Best.Deviation),
		zap.Float64("roi", res.Best.ROI),
		zap.Int("pivots", res.Best.Pivots),
		zap.Duration("elapsed", res.TotalTime))

	return res, nil
}

func (cerbero *Cerbero) evaluate(ctx context.Context, series Series, point ScoreResult, fee float64) gridOutcome {
	pivots, err := ZigZag(series, point.Depth, point.Deviation)
	if err != nil {
		return gridOutcome{err: errors.Wrapf(err, "zigzag depth=%d deviation=%v", point.Depth, point.Deviation)}
	}

	roi, err := ROI(pivots, fee)
	if err != nil {
		return gridOutcome{err: errors.Wrapf(err, "roi depth=%d deviation=%v", point.Depth, point.Deviation)}
	}

	point.ROI = roi
	point.Pivots = len(pivots)
	recordPoint(ctx, cerbero.Config.Symbol, point)
	cerbero.Logger.Debug("grid point evaluated", zap.Stringer("result", point))

	return gridOutcome{result: point, pivots: pivots}
}
