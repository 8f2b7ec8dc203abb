package yahoo_test

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"marketbrief/internal/marketdata"
	"marketbrief/internal/marketdata/yahoo"
)

// sessionChart is a 1d chart whose trading periods are placed around now.
func sessionChart(pre, regular [2]time.Time, price, prevClose float64) map[string]any {
	span := func(p [2]time.Time) map[string]any {
		return map[string]any{"start": p[0].Unix(), "end": p[1].Unix()}
	}
	return map[string]any{
		"chart": map[string]any{
			"result": []any{
				map[string]any{
					"meta": map[string]any{
						"symbol":             "AAPL",
						"regularMarketPrice": price,
						"previousClose":      prevClose,
						"currentTradingPeriod": map[string]any{
							"pre":     span(pre),
							"regular": span(regular),
							"post":    span([2]time.Time{regular[1], regular[1].Add(4 * time.Hour)}),
						},
					},
				},
			},
		},
	}
}

func TestSource_Snapshot(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tests := []struct {
		name    string
		pre     [2]time.Time
		regular [2]time.Time
		live    bool
		state   string
	}{
		{
			name:    "regular session",
			pre:     [2]time.Time{now.Add(-7 * time.Hour), now.Add(-time.Hour)},
			regular: [2]time.Time{now.Add(-time.Hour), now.Add(5 * time.Hour)},
			live:    true,
			state:   marketdata.StateRegular,
		},
		{
			name:    "pre-market",
			pre:     [2]time.Time{now.Add(-time.Hour), now.Add(time.Hour)},
			regular: [2]time.Time{now.Add(time.Hour), now.Add(7 * time.Hour)},
			state:   marketdata.StatePre,
		},
		{
			name:    "closed",
			pre:     [2]time.Time{now.Add(-20 * time.Hour), now.Add(-18 * time.Hour)},
			regular: [2]time.Time{now.Add(-18 * time.Hour), now.Add(-12 * time.Hour)},
			state:   marketdata.StateClosed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			// Arrange: a client answering with a 1d chart for the session
			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().
				Do(gomock.Any()).
				DoAndReturn(func(req *http.Request) (*http.Response, error) {
					require.Equal(t, "1d", req.URL.Query().Get("range"))
					return chartResponse(t, sessionChart(tt.pre, tt.regular, 190, 188)), nil
				}).
				Times(1)

			client, err := yahoo.NewChartAPIClient(yahoo.WithHTTPClient(httpClient))
			require.NoError(t, err)

			// Act: take a snapshot
			snap, err := yahoo.NewSource(client).Snapshot(t.Context(), "AAPL")
			require.NoError(t, err)

			// Assert: the price is live only inside the regular session
			require.Equal(t, "AAPL", snap.Symbol)
			require.Equal(t, tt.state, snap.MarketState)
			require.InEpsilon(t, 188.0, *snap.PreviousClose, 0.0001)
			if tt.live {
				require.InEpsilon(t, 190.0, *snap.Live, 0.0001)
			} else {
				require.Nil(t, snap.Live)
			}
		})
	}
}

func TestSource_Snapshot_NoTradingPeriod(t *testing.T) {
	t.Parallel()

	// Arrange: metadata without currentTradingPeriod
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(chartResponse(t, mockChartResponse), nil).
		Times(1)

	client, err := yahoo.NewChartAPIClient(yahoo.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act: take a snapshot
	snap, err := yahoo.NewSource(client).Snapshot(t.Context(), "ES=F")
	require.NoError(t, err)

	// Assert: an unknown session never yields a live price
	require.Nil(t, snap.Live)
	require.Equal(t, marketdata.StateClosed, snap.MarketState)
	require.InEpsilon(t, 4480.0, *snap.PreviousClose, 0.0001)
	require.False(t, snap.ReceivedAt.IsZero())
}

func TestSource_Snapshot_ChartPreviousCloseFallback(t *testing.T) {
	t.Parallel()

	// Arrange: metadata without previousClose and a zero live price
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(chartResponse(t, map[string]any{
			"chart": map[string]any{
				"result": []any{
					map[string]any{
						"meta": map[string]any{
							"symbol":             "NQ=F",
							"regularMarketPrice": 0,
							"chartPreviousClose": 15800.5,
						},
					},
				},
			},
		}), nil).
		Times(1)

	client, err := yahoo.NewChartAPIClient(yahoo.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act: take a snapshot
	snap, err := yahoo.NewSource(client).Snapshot(t.Context(), "NQ=F")
	require.NoError(t, err)

	// Assert: zero reads as absent, chartPreviousClose fills in
	require.Nil(t, snap.Live)
	require.InEpsilon(t, 15800.5, *snap.PreviousClose, 0.0001)
}

func TestSource_Bars(t *testing.T) {
	t.Parallel()

	// Arrange: a client answering with the trimmed chart response
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, "5m", req.URL.Query().Get("interval"))
			require.Equal(t, "true", req.URL.Query().Get("includePrePost"))
			return chartResponse(t, mockChartResponse), nil
		}).
		Times(1)

	client, err := yahoo.NewChartAPIClient(yahoo.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act: fetch 5m bars with extended hours
	bars, err := yahoo.NewSource(client).Bars(t.Context(), "ES=F", marketdata.BarQuery{Range: "2d", Interval: "5m", PrePost: true})
	require.NoError(t, err)

	// Assert: gaps are kept and Closes skips them
	require.Len(t, bars, 3)
	require.Nil(t, bars[1].Close)
	require.Equal(t, []float64{4495.0, 4500.25}, marketdata.Closes(bars))
}

func TestSource_Bars_NoData(t *testing.T) {
	t.Parallel()

	// Arrange: a result without timestamps
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		Return(chartResponse(t, map[string]any{
			"chart": map[string]any{
				"result": []any{map[string]any{"meta": map[string]any{"symbol": "AAPL"}}},
			},
		}), nil).
		Times(1)

	client, err := yahoo.NewChartAPIClient(yahoo.WithHTTPClient(httpClient))
	require.NoError(t, err)

	// Act: fetch bars
	bars, err := yahoo.NewSource(client).Bars(t.Context(), "AAPL", marketdata.BarQuery{Range: "1d", Interval: "1m"})

	// Assert: an empty series is ErrNoData
	require.True(t, errors.Is(err, marketdata.ErrNoData))
	require.Nil(t, bars)
}
