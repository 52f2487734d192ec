package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/totomz/zigzag"
	alpacafeed "github.com/totomz/zigzag/alpaca"
	"github.com/totomz/zigzag/chart"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	configPath := flag.String("config", "zigzag.yaml", "yaml configuration file")
	source := flag.String("source", "csv", "price source: csv | alpaca")
	symbol := flag.String("symbol", "", "override the configured symbol")
	day := flag.String("day", "", "override the day of the csv datafeed (yyyymmdd)")
	psar := flag.Bool("psar", false, "overlay a Parabolic SAR on the chart")
	flag.Parse()

	cfg, err := zigzag.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "can't load the configuration: %v\n", err)
		os.Exit(1)
	}
	if *symbol != "" {
		cfg.Symbol = zigzag.Symbol(*symbol)
	}
	if *day != "" {
		cfg.Day = *day
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "can't create the logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	if err := zigzag.RegisterViews(); err != nil {
		logger.Fatal("can't register the metric views", zap.Error(err))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	job := func() {
		if err := run(ctx, cfg, *source, *psar, logger); err != nil {
			logger.Error("optimization failed", zap.Error(err))
		}
	}

	if cfg.Schedule == "" {
		if err := run(ctx, cfg, *source, *psar, logger); err != nil {
			logger.Fatal("optimization failed", zap.Error(err))
		}
		return
	}

	scheduler := cron.New(cron.WithSeconds())
	if _, err := scheduler.AddFunc(cfg.Schedule, job); err != nil {
		logger.Fatal("invalid schedule", zap.String("schedule", cfg.Schedule), zap.Error(err))
	}
	logger.Info("scheduler started", zap.String("schedule", cfg.Schedule))
	scheduler.Start()

	<-ctx.Done()
	<-scheduler.Stop().Done()
	logger.Info("scheduler stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	cfg := zap.NewProductionConfig()
	if lvl == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	return cfg.Build()
}

func newDataFeed(cfg zigzag.Config, source string, logger *zap.Logger) (zigzag.DataFeed, error) {
	switch source {
	case "csv":
		sday, err := cfg.Sday()
		if err != nil {
			return nil, err
		}
		return &zigzag.CSVFeed{
			DataFolder: cfg.DataFolder,
			Sday:       sday,
			Symbol:     cfg.Symbol,
			Logger:     logger,
		}, nil
	case "alpaca":
		client := alpacafeed.NewClient(cfg.AlpacaKey, cfg.AlpacaSecret, "")
		feed := alpacafeed.NewBarsFeed(client, cfg.Symbol, cfg.LookbackCount*cfg.TimeframeBars)
		feed.Logger = logger
		return feed, nil
	default:
		return nil, errors.Wrapf(zigzag.ErrConfiguration, "unknown source %q", source)
	}
}

func run(ctx context.Context, cfg zigzag.Config, source string, psar bool, logger *zap.Logger) error {
	feed, err := newDataFeed(cfg, source, logger)
	if err != nil {
		return err
	}

	service := zigzag.Cerbero{
		Config:   cfg,
		DataFeed: feed,
		Logger:   logger,
	}

	result, err := service.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("*** Best ROI calculated: %s (depth %d, deviation %v%%, %d pivots, %d bars, %s)\n",
		decimal.NewFromFloat(result.Best.ROI).Round(6).String(),
		result.Best.Depth, result.Best.Deviation, result.Best.Pivots, result.Bars, result.TotalTimeString)

	if cfg.ChartFile == "" {
		return nil
	}

	title := fmt.Sprintf("%s ZigZag depth=%d deviation=%v%%", cfg.Symbol, result.Best.Depth, result.Best.Deviation)
	fig := chart.New(result.Series, result.Pivots, chart.Options{Title: title, PSAR: psar})
	if err := fig.WriteFile(cfg.ChartFile); err != nil {
		return err
	}
	logger.Info("chart written", zap.String("file", cfg.ChartFile))
	return nil
}
