// Package price loads monthly bitcoin prices and correlates them with complaint
// volume.
package price

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/Veraticus/crypto-complaints/internal/common"
	"golang.org/x/sync/errgroup"
)

// CoinGeckoAPI is the upstream price history API.
const CoinGeckoAPI = "https://api.coingecko.com/api/v3"

// Point is one price observation.
type Point struct {
	Time  time.Time
	Price float64
}

// Series is a monthly price history.
type Series struct {
	// Source is the endpoint that answered, or "static" for the built-in table.
	Source string
	Months []MonthlyPrice
	// Latest is the most recent observed price.
	Latest float64
	Live   bool
}

// HistoryURL returns the daily market chart URL for coin over the last days.
func HistoryURL(coin string, days int) string {
	return fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%d&interval=daily",
		CoinGeckoAPI, url.PathEscape(coin), days)
}

// DefaultEndpoints returns the upstream URL followed by mirrors of it.
func DefaultEndpoints(coin string, days int) []string {
	target := HistoryURL(coin, days)
	return []string{
		target,
		"https://corsproxy.io/?" + url.QueryEscape(target),
		"https://api.allorigins.win/raw?url=" + url.QueryEscape(target),
	}
}

// RaceFetcher requests every endpoint at once and keeps the first success.
type RaceFetcher struct {
	client    *http.Client
	endpoints []string
}

// NewRaceFetcher creates a fetcher. A zero timeout defaults to 10 seconds.
func NewRaceFetcher(endpoints []string, timeout time.Duration) *RaceFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RaceFetcher{
		endpoints: endpoints,
		client:    &http.Client{Timeout: timeout},
	}
}

// errWon stops the group once one endpoint has answered.
var errWon = errors.New("price history retrieved")

// Fetch returns the first endpoint's history converted to monthly averages. When
// every endpoint fails it returns the static table with Live unset.
func (f *RaceFetcher) Fetch(ctx context.Context) Series {
	var (
		once   sync.Once
		winner Series
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, endpoint := range f.endpoints {
		endpoint := endpoint
		g.Go(func() error {
			points, err := f.fetchOne(gctx, endpoint)
			if err != nil {
				if gctx.Err() == nil {
					slog.Debug("Price endpoint failed", "endpoint", endpoint, "error", err)
				}
				return nil
			}
			once.Do(func() {
				winner = Series{
					Source: endpoint,
					Months: MonthlyAverages(points),
					Latest: points[len(points)-1].Price,
					Live:   true,
				}
			})
			return errWon
		})
	}

	if err := g.Wait(); errors.Is(err, errWon) {
		slog.Info("Loaded live price history", "source", winner.Source, "months", len(winner.Months))
		return winner
	}

	slog.Warn("All price endpoints failed, using static prices")
	return StaticSeries()
}

type marketChart struct {
	Prices [][2]float64 `json:"prices"`
}

func (f *RaceFetcher) fetchOne(ctx context.Context, endpoint string) ([]Point, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &common.HTTPStatusError{StatusCode: resp.StatusCode, Status: resp.Status}
	}

	var chart marketChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("failed to parse price history: %w", err)
	}
	if len(chart.Prices) == 0 {
		return nil, errors.New("empty price history")
	}

	points := make([]Point, len(chart.Prices))
	for i, p := range chart.Prices {
		points[i] = Point{Time: time.UnixMilli(int64(p[0])).UTC(), Price: p[1]}
	}
	return points, nil
}
