package alpacafeed

import (
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v2/marketdata"
	"github.com/pkg/errors"
	"github.com/totomz/zigzag"
	"go.uber.org/zap"
)

// BarsClient is the subset of the alpaca market data client used by BarsFeed.
type BarsClient interface {
	GetBars(symbol string, params marketdata.GetBarsParams) ([]marketdata.Bar, error)
}

// BarsFeed is a zigzag.DataFeed over the historical bars of alpaca.
type BarsFeed struct {
	Client    BarsClient
	Symbol    zigzag.Symbol
	TimeFrame marketdata.TimeFrame
	Start     time.Time
	End       time.Time
	Logger    *zap.Logger
}

func NewClient(apiKey, apiSecret, baseUrl string) BarsClient {
	return marketdata.NewClient(marketdata.ClientOpts{
		ApiKey:    apiKey,
		ApiSecret: apiSecret,
		BaseURL:   baseUrl,
	})
}

// NewBarsFeed returns a feed of the 1-minute bars of the last lookback minutes.
func NewBarsFeed(client BarsClient, symbol zigzag.Symbol, lookback int) *BarsFeed {
	end := time.Now()
	return &BarsFeed{
		Client:    client,
		Symbol:    symbol,
		TimeFrame: marketdata.NewTimeFrame(1, marketdata.Min),
		Start:     end.Add(-time.Duration(lookback) * time.Minute),
		End:       end,
	}
}

func (feed *BarsFeed) Run() (chan zigzag.Candle, error) {
	if feed.Logger == nil {
		feed.Logger = zap.NewNop()
	}

	bars, err := feed.Client.GetBars(string(feed.Symbol), marketdata.GetBarsParams{
		TimeFrame: feed.TimeFrame,
		Start:     feed.Start,
		End:       feed.End,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "can't get the bars of %s", feed.Symbol)
	}
	feed.Logger.Info("alpaca bars loaded", zap.String("symbol", string(feed.Symbol)), zap.Int("bars", len(bars)))

	stream := make(chan zigzag.Candle, len(bars))
	for _, bar := range bars {
		stream <- CandleMap(feed.Symbol, bar)
	}
	close(stream)

	return stream, nil
}

func CandleMap(symbol zigzag.Symbol, bar marketdata.Bar) zigzag.Candle {
	return zigzag.Candle{
		Open:   bar.Open,
		High:   bar.High,
		Close:  bar.Close,
		Low:    bar.Low,
		Volume: int64(bar.Volume),
		Symbol: symbol,
		Time:   bar.Timestamp,
	}
}
