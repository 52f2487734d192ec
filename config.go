package zigzag

import (
	"math"
	"os"
	"runtime"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Grid is the rectangle of (depth, deviation) points evaluated by Cerbero.
// Bounds are inclusive.
type Grid struct {
	DepthMin      int     `yaml:"depth_min"`
	DepthMax      int     `yaml:"depth_max"`
	DeviationMin  float64 `yaml:"deviation_min"`
	DeviationMax  float64 `yaml:"deviation_max"`
	DeviationStep float64 `yaml:"deviation_step"`
}

// DefaultGrid covers depth 5..19 and deviation 5%..29%.
var DefaultGrid = Grid{
	DepthMin:      5,
	DepthMax:      19,
	DeviationMin:  5,
	DeviationMax:  29,
	DeviationStep: 1,
}

func (g Grid) Validate() error {
	if g.DepthMin < 1 || g.DepthMax < g.DepthMin {
		return configErrorf("depth range [%d, %d] is empty or not positive", g.DepthMin, g.DepthMax)
	}
	for _, v := range []float64{g.DeviationMin, g.DeviationMax, g.DeviationStep} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return configErrorf("deviation range [%v, %v] step %v must be positive", g.DeviationMin, g.DeviationMax, g.DeviationStep)
		}
	}
	if g.DeviationMax < g.DeviationMin {
		return configErrorf("deviation range [%v, %v] is empty", g.DeviationMin, g.DeviationMax)
	}
	return nil
}

// Deviations lists the deviation values of the grid, in increasing order.
func (g Grid) Deviations() []float64 {
	var res []float64
	min := decimal.NewFromFloat(g.DeviationMin)
	max := decimal.NewFromFloat(g.DeviationMax)
	step := decimal.NewFromFloat(g.DeviationStep)
	for d := min; d.LessThanOrEqual(max); d = d.Add(step) {
		res = append(res, d.InexactFloat64())
	}
	return res
}

// Points lists the grid points in canonical order: depth is the slower-varying loop.
func (g Grid) Points() []ScoreResult {
	deviations := g.Deviations()
	points := make([]ScoreResult, 0, (g.DepthMax-g.DepthMin+1)*len(deviations))
	for depth := g.DepthMin; depth <= g.DepthMax; depth++ {
		for _, deviation := range deviations {
			points = append(points, ScoreResult{Depth: depth, Deviation: deviation})
		}
	}
	return points
}

type Config struct {
	Symbol        Symbol  `yaml:"symbol"`
	TimeframeBars int     `yaml:"timeframe_bars"` // base candles merged in one bar
	LookbackCount int     `yaml:"lookback_count"`
	FeeFraction   float64 `yaml:"fee_fraction"`
	Workers       int     `yaml:"workers"`
	Grid          Grid    `yaml:"grid"`

	DataFolder string `yaml:"data_folder"`
	Day        string `yaml:"day"` // yyyymmdd of the csv datafeed
	ChartFile  string `yaml:"chart_file"`
	Schedule   string `yaml:"schedule"` // cron expression with seconds, empty runs once
	LogLevel   string `yaml:"log_level"`

	AlpacaKey    string `yaml:"alpaca_key"`
	AlpacaSecret string `yaml:"alpaca_secret"`
}

func DefaultConfig() Config {
	return Config{
		Symbol:        "EURUSD",
		TimeframeBars: 1,
		LookbackCount: 1000,
		FeeFraction:   DefaultFee,
		Workers:       runtime.NumCPU(),
		Grid:          DefaultGrid,
		DataFolder:    "datasets",
		ChartFile:     "plotly/zigzag.json",
		LogLevel:      "info",
	}
}

// LoadConfig reads the yaml file at path (a missing file is not an error),
// then the .env file of the working directory, then the ZIGZAG_* environment variables.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return cfg, errors.Wrap(err, "read config")
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return cfg, errors.Wrapf(ErrConfiguration, "parse config %s: %v", path, err)
			}
		}
	}

	// .env never overrides variables already set in the environment
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return cfg, errors.Wrap(err, "read .env")
	}

	if err := cfg.applyEnv(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("ZIGZAG_SYMBOL"); v != "" {
		c.Symbol = Symbol(v)
	}
	if v := os.Getenv("ZIGZAG_DATA_FOLDER"); v != "" {
		c.DataFolder = v
	}
	if v := os.Getenv("ZIGZAG_DAY"); v != "" {
		c.Day = v
	}
	if v := os.Getenv("ZIGZAG_CHART_FILE"); v != "" {
		c.ChartFile = v
	}
	if v := os.Getenv("ZIGZAG_SCHEDULE"); v != "" {
		c.Schedule = v
	}
	if v := os.Getenv("ZIGZAG_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		c.AlpacaKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		c.AlpacaSecret = v
	}

	ints := map[string]*int{
		"ZIGZAG_TIMEFRAME_BARS": &c.TimeframeBars,
		"ZIGZAG_LOOKBACK":       &c.LookbackCount,
		"ZIGZAG_WORKERS":        &c.Workers,
	}
	for key, dst := range ints {
		v := os.Getenv(key)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(ErrConfiguration, "%s=%q is not an integer", key, v)
		}
		*dst = n
	}

	if v := os.Getenv("ZIGZAG_FEE"); v != "" {
		fee, err := decimal.NewFromString(v)
		if err != nil {
			return errors.Wrapf(ErrConfiguration, "ZIGZAG_FEE=%q is not a number", v)
		}
		c.FeeFraction = fee.InexactFloat64()
	}

	return nil
}

// Validate checks the configuration before any computation.
func (c Config) Validate() error {
	if c.Symbol == "" {
		return configErrorf("symbol is required")
	}
	if c.TimeframeBars < 1 {
		return configErrorf("timeframe_bars must be >= 1, got %d", c.TimeframeBars)
	}
	if c.LookbackCount < 1 {
		return configErrorf("lookback_count must be >= 1, got %d", c.LookbackCount)
	}
	if math.IsNaN(c.FeeFraction) || c.FeeFraction < 0 || c.FeeFraction >= 1 {
		return configErrorf("fee_fraction must be in [0, 1), got %v", c.FeeFraction)
	}
	if c.Workers < 1 {
		return configErrorf("workers must be >= 1, got %d", c.Workers)
	}
	return c.Grid.Validate()
}

// Sday parses Day; an empty Day means today.
func (c Config) Sday() (time.Time, error) {
	if c.Day == "" {
		now := time.Now()
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local), nil
	}
	sday, err := time.ParseInLocation("20060102", c.Day, time.Local)
	if err != nil {
		return time.Time{}, errors.Wrapf(ErrConfiguration, "day %q is not yyyymmdd", c.Day)
	}
	return sday, nil
}
