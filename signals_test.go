package zigzag

import (
	"context"
	"testing"

	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

func findRow(t *testing.T, name string, symbol Symbol) *view.Row {
	t.Helper()

	rows, err := view.RetrieveData(name)
	if err != nil {
		t.Fatalf("can't retrieve %s: %v", name, err)
	}
	for _, row := range rows {
		for _, tg := range row.Tags {
			if tg.Key == KeySymbol && tg.Value == string(symbol) {
				return row
			}
		}
	}
	t.Fatalf("no %s row for %s", name, symbol)
	return nil
}

func TestDefaultViewsRegister(t *testing.T) {
	for _, v := range DefaultViews {
		if err := view.Register(v); err != nil {
			t.Errorf("view %s: %v", v.Measure.Name(), err)
		}
	}
}

func TestGridMetrics(t *testing.T) {
	if err := RegisterViews(); err != nil {
		t.Fatal(err)
	}

	const symbol = Symbol("METRICS")
	res, err := (&Cerbero{Config: testConfig(symbol)}).Optimize(context.Background(), zigSeries)
	if err != nil {
		t.Fatal(err)
	}

	points := findRow(t, MGridPoints.Name(), symbol).Data.(*view.CountData)
	if points.Value != 9 {
		t.Errorf("expected 9 grid points recorded, got %d", points.Value)
	}

	best := findRow(t, MBestROI.Name(), symbol).Data.(*view.LastValueData)
	if best.Value != res.Best.ROI {
		t.Errorf("expected best roi %v, got %v", res.Best.ROI, best.Value)
	}

	dist := findRow(t, MROI.Name(), symbol).Data.(*view.DistributionData)
	if dist.Count != 9 {
		t.Errorf("expected 9 roi samples, got %d", dist.Count)
	}
	// depth 3 scores 0, the best point is the max
	if dist.Min != 0 || dist.Max != res.Best.ROI {
		t.Errorf("expected roi samples in [0, %v], got [%v, %v]", res.Best.ROI, dist.Min, dist.Max)
	}
}

func TestGetNewContext(t *testing.T) {
	t.Parallel()

	tags := tag.FromContext(GetNewContext(context.Background(), "EURUSD", 5, 2.5))
	if v, ok := tags.Value(KeySymbol); !ok || v != "EURUSD" {
		t.Errorf("unexpected symbol tag %q", v)
	}
	if v, ok := tags.Value(KeyParams); !ok || v != "5/2.5" {
		t.Errorf("unexpected params tag %q", v)
	}

	tags = tag.FromContext(GetNewContext(context.Background(), "EURUSD", 0, 0))
	if _, ok := tags.Value(KeyParams); ok {
		t.Errorf("params tag without a grid point")
	}
}
