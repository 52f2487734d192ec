package zigzag

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Symbol string

type Candle struct {
	Open   float64
	High   float64
	Close  float64
	Low    float64
	Volume int64
	Symbol Symbol
	Time   time.Time
}

func (candle Candle) TimeStr() string {
	return fmt.Sprintf(" %-5s %v", candle.Symbol, candle.Time.Format("15:04:05"))
}

func (candle Candle) String() string {
	return fmt.Sprintf("[%-5s %v] open:%v high:%v close:%v low:%v volume:%v", candle.Symbol, candle.Time.Format("15:04:05"), candle.Open, candle.High, candle.Close, candle.Low, candle.Volume)
}

// DataFeed provides a stream of Candle.
type DataFeed interface {

	// Run starts a go routine that poll the data source, and push the candles in the returned channel.
	// The channel is closed once the source is exhausted.
	Run() (chan Candle, error)
}

// <editor-fold desc="CSVFeed" >

const csvTimeLayout = "20060102 15:04:05"

// CSVFeed reads the candles of one symbol for one day from
// <DataFolder>/<yyyymmdd>-<symbol>.csv. Each row is
// `20060102 15:04:05,open,high,low,close,volume`.
type CSVFeed struct {
	DataFolder string
	Sday       time.Time
	Symbol     Symbol
	Logger     *zap.Logger
}

func (d *CSVFeed) Path() string {
	return filepath.Join(d.DataFolder, fmt.Sprintf("%s-%s.csv", d.Sday.Format("20060102"), d.Symbol))
}

func (d *CSVFeed) Run() (chan Candle, error) {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	file := d.Path()
	f, err := os.Open(file)
	if err != nil {
		return nil, errors.Wrapf(err, "can't open datafeed %s", file)
	}
	d.Logger.Debug("opened csv datafeed", zap.String("file", file))

	stream := make(chan Candle, 1024)

	go func() {
		defer close(stream)
		defer func() { _ = f.Close() }()

		latest := time.Time{}
		scanner := bufio.NewScanner(f)
		line := 0
		for scanner.Scan() {
			line++
			text := strings.TrimSpace(scanner.Text())
			if text == "" {
				continue
			}

			candle, err := parseCSVCandle(text, d.Symbol)
			if err != nil {
				d.Logger.Warn("skipping invalid row", zap.Int("line", line), zap.Error(err))
				continue
			}

			// Rows in the past happen in some exported files
			if !candle.Time.After(latest) {
				d.Logger.Debug("skipping candle in the past",
					zap.Time("last", latest), zap.Time("new", candle.Time))
				continue
			}
			latest = candle.Time
			stream <- candle
		}

		if err := scanner.Err(); err != nil {
			d.Logger.Error("datafeed interrupted", zap.String("file", file), zap.Error(err))
		}
		d.Logger.Debug("closing datafeed", zap.String("file", file))
	}()

	return stream, nil
}

func parseCSVCandle(row string, symbol Symbol) (Candle, error) {
	parts := strings.Split(row, ",")
	if len(parts) < 6 {
		return Candle{}, errors.Errorf("expected 6 columns, got %d", len(parts))
	}

	inst, err := time.ParseInLocation(csvTimeLayout, parts[0], time.Local)
	if err != nil {
		return Candle{}, errors.Wrap(err, "can't parse the datetime")
	}

	var values [4]float64
	for i := range values {
		values[i], err = strconv.ParseFloat(strings.TrimSpace(parts[i+1]), 64)
		if err != nil {
			return Candle{}, errors.Wrapf(err, "can't parse column %d", i+1)
		}
	}

	volume, err := strconv.ParseInt(strings.TrimSpace(parts[5]), 10, 64)
	if err != nil {
		return Candle{}, errors.Wrap(err, "can't parse the volume")
	}

	return Candle{
		Symbol: symbol,
		Time:   inst,
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: volume,
	}, nil
}

// </editor-fold>
