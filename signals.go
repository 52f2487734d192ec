package zigzag

import (
	"context"
	"fmt"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	MROI        = stats.Float64("zigzag/roi", "theoretical roi of a grid point", stats.UnitDimensionless)
	MPivots     = stats.Int64("zigzag/pivots", "pivots found for a grid point", stats.UnitDimensionless)
	MGridPoints = stats.Int64("zigzag/grid_points", "grid points evaluated", stats.UnitDimensionless)
	MBestROI    = stats.Float64("zigzag/best_roi", "roi of the winning grid point", stats.UnitDimensionless)

	KeySymbol, _ = tag.NewKey("symbol")
	KeyParams, _ = tag.NewKey("params") // depth/deviation of a grid point

	DefaultViews = []*view.View{
		{Measure: MROI, Aggregation: view.Distribution(0, 0.5, 1, 2, 5), TagKeys: []tag.Key{KeySymbol}},
		{Measure: MPivots, Aggregation: view.LastValue(), TagKeys: []tag.Key{KeySymbol, KeyParams}},
		{Measure: MGridPoints, Aggregation: view.Count(), TagKeys: []tag.Key{KeySymbol}},
		{Measure: MBestROI, Aggregation: view.LastValue(), TagKeys: []tag.Key{KeySymbol, KeyParams}},
	}
)

// RegisterViews registers the views with opencensus; with no argument DefaultViews are registered.
func RegisterViews(views ...*view.View) error {
	if len(views) == 0 {
		views = DefaultViews
	}
	return view.Register(views...)
}

func paramsTag(depth int, deviation float64) string {
	return fmt.Sprintf("%d/%g", depth, deviation)
}

// GetNewContext returns a context tagged with the symbol and, if depth > 0, the grid point.
func GetNewContext(ctx context.Context, symbol Symbol, depth int, deviation float64) context.Context {
	mutators := []tag.Mutator{tag.Upsert(KeySymbol, string(symbol))}
	if depth > 0 {
		mutators = append(mutators, tag.Upsert(KeyParams, paramsTag(depth, deviation)))
	}

	tagged, err := tag.New(ctx, mutators...)
	if err != nil {
		panic(err) // This should never happen, really
	}
	return tagged
}

func recordPoint(ctx context.Context, symbol Symbol, res ScoreResult) {
	ctx = GetNewContext(ctx, symbol, res.Depth, res.Deviation)
	stats.Record(ctx, MROI.M(res.ROI), MPivots.M(int64(res.Pivots)), MGridPoints.M(1))
}

func recordBest(ctx context.Context, symbol Symbol, res ScoreResult) {
	ctx = GetNewContext(ctx, symbol, res.Depth, res.Deviation)
	stats.Record(ctx, MBestROI.M(res.ROI))
}
