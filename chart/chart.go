// Package chart builds the plotly figure of a zigzag drawn over its OHLC candles.
package chart

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cinar/indicator"
	"github.com/pkg/errors"
	"github.com/totomz/zigzag"
)

const zigzagColor = "rgba(4,59,92, .8)"

type Options struct {
	Title string
	// TimeAxis plots the candle time (unix ms) on x instead of the bar index
	TimeAxis bool
	// PSAR adds a Parabolic SAR trace, useful to eyeball the legs of the zigzag
	PSAR bool
}

type Marker struct {
	Color string `json:"color,omitempty"`
	Size  int    `json:"size,omitempty"`
}

// Trace is a plotly trace. Only the fields used by ohlc and scatter traces are modeled.
type Trace struct {
	Type   string    `json:"type"`
	Name   string    `json:"name"`
	Mode   string    `json:"mode,omitempty"`
	X      []int64   `json:"x"`
	Y      []float64 `json:"y,omitempty"`
	Open   []float64 `json:"open,omitempty"`
	High   []float64 `json:"high,omitempty"`
	Low    []float64 `json:"low,omitempty"`
	Close  []float64 `json:"close,omitempty"`
	Marker *Marker   `json:"marker,omitempty"`
}

type Layout struct {
	Title string `json:"title,omitempty"`
}

type Figure struct {
	Data   []Trace `json:"data"`
	Layout Layout  `json:"layout"`
}

// New returns the figure with the candles and the zigzag of the given pivots.
func New(series zigzag.Series, pivots zigzag.Pivots, opts Options) Figure {
	xOf := func(i int) int64 {
		if opts.TimeAxis {
			return series[i].Time.UnixMilli()
		}
		return int64(i)
	}

	candles := Trace{
		Type:  "ohlc",
		Name:  "Stock Data",
		X:     make([]int64, len(series)),
		Open:  series.Open(),
		High:  series.High(),
		Low:   series.Low(),
		Close: series.Close(),
	}
	for i := range series {
		candles.X[i] = xOf(i)
	}

	xs, ys := pivots.XY()
	zz := Trace{
		Type:   "scatter",
		Name:   "ZigZag",
		Mode:   "lines+markers",
		X:      make([]int64, len(xs)),
		Y:      ys,
		Marker: &Marker{Color: zigzagColor},
	}
	for i, x := range xs {
		zz.X[i] = xOf(x)
	}

	fig := Figure{
		Data:   []Trace{candles, zz},
		Layout: Layout{Title: opts.Title},
	}

	if opts.PSAR && len(series) > 2 {
		psar, _ := indicator.ParabolicSar(series.High(), series.Low(), series.Close())
		fig.Data = append(fig.Data, Trace{
			Type:   "scatter",
			Name:   "PSAR",
			Mode:   "markers",
			X:      candles.X,
			Y:      psar,
			Marker: &Marker{Size: 3},
		})
	}

	return fig
}

func (f Figure) JSON() ([]byte, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, errors.Wrap(err, "can't marshal the figure")
	}
	return b, nil
}

// WriteFile writes the figure as json, creating the parent folder if needed.
func (f Figure) WriteFile(path string) error {
	b, err := f.JSON()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "can't create the folder of %s", path)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return errors.Wrapf(err, "can't write %s", path)
	}
	return nil
}

// ReadFile loads a figure written by WriteFile.
func ReadFile(path string) (Figure, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Figure{}, errors.Wrapf(err, "can't read %s", path)
	}

	var fig Figure
	if err := json.Unmarshal(b, &fig); err != nil {
		return Figure{}, errors.Wrapf(err, "invalid figure %s", path)
	}
	return fig, nil
}
