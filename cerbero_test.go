package zigzag

import (
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/pkg/errors"
)

var smallGrid = Grid{DepthMin: 1, DepthMax: 3, DeviationMin: 1, DeviationMax: 3, DeviationStep: 1}

func testConfig(symbol Symbol) Config {
	cfg := DefaultConfig()
	cfg.Symbol = symbol
	cfg.Workers = 4
	cfg.Grid = smallGrid
	cfg.DataFolder = testFolder
	return cfg
}

func TestCerbero_Optimize(t *testing.T) {
	t.Parallel()

	cerbero := Cerbero{Config: testConfig("OPTIMIZE")}
	res, err := cerbero.Optimize(context.Background(), zigSeries)
	if err != nil {
		t.Fatal(err)
	}

	// depth 1 and 2 find the same 5 pivots at every deviation, depth 3 only 3:
	// the first point of the grid wins the tie
	roi := (3.0/5 - 0.002) + (5.0/8 - 0.002)
	want := ScoreResult{Depth: 1, Deviation: 1, ROI: roi, Pivots: 5}
	if diff := cmp.Diff(want, res.Best, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("best mismatch (-want +got):\n%s", diff)
	}

	if res.Evaluated != 9 || len(res.Results) != 9 {
		t.Errorf("expected 9 evaluated points, got %d", res.Evaluated)
	}
	if res.Bars != 7 {
		t.Errorf("expected 7 bars, got %d", res.Bars)
	}

	for i, p := range smallGrid.Points() {
		got := res.Results[i]
		if got.Depth != p.Depth || got.Deviation != p.Deviation {
			t.Errorf("result %d is %v, expected grid point %v", i, got, p)
		}
		if got.Depth == 3 && got.ROI != 0 {
			t.Errorf("depth 3 should score 0, got %v", got)
		}
	}

	pivots, err := ZigZag(zigSeries, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(pivots, res.Pivots); diff != "" {
		t.Errorf("pivots of the best point mismatch (-want +got):\n%s", diff)
	}
}

func TestCerbero_OptimizeSingleWorker(t *testing.T) {
	t.Parallel()

	cfg := testConfig("SINGLE")
	cfg.Workers = 1
	parallel := testConfig("PARALLEL")

	single, err := (&Cerbero{Config: cfg}).Optimize(context.Background(), waveSeries(200))
	if err != nil {
		t.Fatal(err)
	}
	many, err := (&Cerbero{Config: parallel}).Optimize(context.Background(), waveSeries(200))
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(single.Results, many.Results); diff != "" {
		t.Errorf("results depend on the number of workers (-single +parallel):\n%s", diff)
	}
	if diff := cmp.Diff(single.Best, many.Best); diff != "" {
		t.Errorf("best depends on the number of workers (-single +parallel):\n%s", diff)
	}
}

func TestCerbero_OptimizeFlatSeries(t *testing.T) {
	t.Parallel()

	series := makeSeries(
		[]float64{10, 11, 12, 13, 14, 15, 16},
		[]float64{9, 10, 11, 12, 13, 14, 15},
	)

	res, err := (&Cerbero{Config: testConfig("FLAT")}).Optimize(context.Background(), series)
	if err != nil {
		t.Fatal(err)
	}

	want := ScoreResult{Depth: 1, Deviation: 1}
	if diff := cmp.Diff(want, res.Best); diff != "" {
		t.Errorf("best mismatch (-want +got):\n%s", diff)
	}
	if len(res.Pivots) != 0 {
		t.Errorf("expected no pivots, got %v", res.Pivots)
	}
}

func TestCerbero_OptimizeDegenerate(t *testing.T) {
	t.Parallel()

	series := makeSeries(
		[]float64{5, 7, 6, 8, 4, 9, 3},
		[]float64{4, 6, 5, 7, 3, 8, 0},
	)

	_, err := (&Cerbero{Config: testConfig("ZERO")}).Optimize(context.Background(), series)
	if errors.Cause(err) != ErrArithmeticDegenerate {
		t.Errorf("expected ErrArithmeticDegenerate, got %v", err)
	}
}

func TestCerbero_OptimizeCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := (&Cerbero{Config: testConfig("CANCEL")}).Optimize(ctx, zigSeries)
	if errors.Cause(err) != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCerbero_OptimizeInvalid(t *testing.T) {
	t.Parallel()

	cfg := testConfig("INVALID")
	cfg.Grid.DepthMin = 0

	_, err := (&Cerbero{Config: cfg}).Optimize(context.Background(), zigSeries)
	if errors.Cause(err) != ErrConfiguration {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}

	_, err = (&Cerbero{Config: testConfig("EMPTY")}).Optimize(context.Background(), nil)
	if errors.Cause(err) != ErrEmptySeries {
		t.Errorf("expected ErrEmptySeries, got %v", err)
	}
}

func TestCerbero_Run(t *testing.T) {
	t.Parallel()

	cfg := testConfig(testSymbol)
	cerbero := Cerbero{
		Config: cfg,
		DataFeed: &CSVFeed{
			DataFolder: cfg.DataFolder,
			Sday:       testSday,
			Symbol:     cfg.Symbol,
		},
	}

	res, err := cerbero.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if res.Bars != 7 || res.Symbol != testSymbol {
		t.Errorf("unexpected result %+v", res)
	}

	// same shape as zigSeries, shifted around 265
	roi := (math.Abs(268-265)/265 - 0.002) + (math.Abs(263-268)/268 - 0.002)
	want := ScoreResult{Depth: 1, Deviation: 1, ROI: roi, Pivots: 5}
	if diff := cmp.Diff(want, res.Best, cmpopts.EquateApprox(0, 1e-12)); diff != "" {
		t.Errorf("best mismatch (-want +got):\n%s", diff)
	}
}

func TestCerbero_RunWithoutFeed(t *testing.T) {
	t.Parallel()

	_, err := (&Cerbero{Config: testConfig("NOFEED")}).Run(context.Background())
	if errors.Cause(err) != ErrConfiguration {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}
