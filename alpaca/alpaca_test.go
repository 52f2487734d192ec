package alpacafeed

import (
	"errors"
	"testing"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v2/marketdata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/totomz/zigzag"
)

type fakeClient struct {
	bars   []marketdata.Bar
	err    error
	symbol string
	params marketdata.GetBarsParams
}

func (c *fakeClient) GetBars(symbol string, params marketdata.GetBarsParams) ([]marketdata.Bar, error) {
	c.symbol = symbol
	c.params = params
	return c.bars, c.err
}

var t0 = time.Date(2021, 6, 15, 13, 30, 0, 0, time.UTC)

func TestBarsFeed_Run(t *testing.T) {
	client := &fakeClient{bars: []marketdata.Bar{
		{Timestamp: t0, Open: 10, High: 11, Low: 9.5, Close: 10.5, Volume: 300},
		{Timestamp: t0.Add(time.Minute), Open: 10.5, High: 12, Low: 10, Close: 11.5, Volume: 200},
	}}

	feed := NewBarsFeed(client, "AAPL", 60)
	candles, err := feed.Run()
	require.NoError(t, err)

	var got []zigzag.Candle
	for c := range candles {
		got = append(got, c)
	}

	require.Len(t, got, 2)
	assert.Equal(t, zigzag.Candle{Open: 10, High: 11, Low: 9.5, Close: 10.5, Volume: 300, Symbol: "AAPL", Time: t0}, got[0])
	assert.Equal(t, 12.0, got[1].High)

	assert.Equal(t, "AAPL", client.symbol)
	assert.Equal(t, marketdata.NewTimeFrame(1, marketdata.Min), client.params.TimeFrame)
	assert.Equal(t, 60*time.Minute, client.params.End.Sub(client.params.Start))
}

func TestBarsFeed_RunError(t *testing.T) {
	feed := NewBarsFeed(&fakeClient{err: errors.New("forbidden")}, "AAPL", 60)

	candles, err := feed.Run()
	assert.Error(t, err)
	assert.Nil(t, candles)
}

func TestBarsFeed_Collect(t *testing.T) {
	bars := make([]marketdata.Bar, 10)
	for i := range bars {
		v := float64(100 + i)
		bars[i] = marketdata.Bar{Timestamp: t0.Add(time.Duration(i) * time.Minute), Open: v, High: v + 1, Low: v - 1, Close: v, Volume: 1}
	}

	feed := NewBarsFeed(&fakeClient{bars: bars}, "AAPL", 10)
	series, err := zigzag.Collect(feed, zigzag.AggregateBars(5), 0)
	require.NoError(t, err)

	require.Len(t, series, 2)
	assert.Equal(t, 105.0, series[0].High)
	assert.Equal(t, 99.0, series[0].Low)
	assert.Equal(t, int64(5), series[1].Volume)
}
