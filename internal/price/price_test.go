package price

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chartBody(points ...[2]float64) string {
	body := `{"prices":[`
	for i, p := range points {
		if i > 0 {
			body += ","
		}
		body += fmt.Sprintf("[%d,%g]", int64(p[0]), p[1])
	}
	return body + `]}`
}

func ms(year int, month time.Month, day int) float64 {
	return float64(time.Date(year, month, day, 0, 0, 0, 0, time.UTC).UnixMilli())
}

func TestRaceFetcher_FirstSuccessWins(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		_, _ = w.Write([]byte(chartBody([2]float64{ms(2024, 1, 1), 1})))
	}))
	defer slow.Close()

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer failing.Close()

	fast := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(chartBody(
			[2]float64{ms(2024, 1, 1), 40000},
			[2]float64{ms(2024, 1, 15), 42001},
			[2]float64{ms(2024, 2, 1), 50000},
		)))
	}))
	defer fast.Close()

	f := NewRaceFetcher([]string{slow.URL, failing.URL, fast.URL}, 5*time.Second)
	start := time.Now()
	series := f.Fetch(context.Background())

	assert.Less(t, time.Since(start), 2*time.Second, "slow endpoint is abandoned")
	assert.True(t, series.Live)
	assert.Equal(t, fast.URL, series.Source)
	assert.Equal(t, []MonthlyPrice{{Month: "2024-01", Price: 41001}, {Month: "2024-02", Price: 50000}}, series.Months)
	assert.InDelta(t, 50000.0, series.Latest, 0.001)
}

func TestRaceFetcher_AllFailUsesStatic(t *testing.T) {
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"prices":[]}`))
	}))
	defer bad.Close()

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>`))
	}))
	defer broken.Close()

	series := NewRaceFetcher([]string{bad.URL, broken.URL}, time.Second).Fetch(context.Background())

	assert.False(t, series.Live)
	assert.Equal(t, "static", series.Source)
	require.NotEmpty(t, series.Months)
	assert.Equal(t, "2019-01", series.Months[0].Month)
	assert.Equal(t, StaticSeries().Months, series.Months)
}

func TestDefaultEndpoints(t *testing.T) {
	endpoints := DefaultEndpoints("bitcoin", 365)

	require.Len(t, endpoints, 3)
	assert.Equal(t, "https://api.coingecko.com/api/v3/coins/bitcoin/market_chart?vs_currency=usd&days=365&interval=daily", endpoints[0])
	for _, e := range endpoints[1:] {
		assert.Contains(t, e, "api.coingecko.com")
	}
}

func TestMonthlyAverages(t *testing.T) {
	got := MonthlyAverages([]Point{
		{Time: time.Date(2024, 3, 31, 23, 0, 0, 0, time.UTC), Price: 10.4},
		{Time: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Price: 3},
		{Time: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Price: 11},
	})

	assert.Equal(t, []MonthlyPrice{{Month: "2024-02", Price: 3}, {Month: "2024-03", Price: 11}}, got)
	assert.Empty(t, MonthlyAverages(nil))
}

func TestCorrelate(t *testing.T) {
	prices := []MonthlyPrice{
		{Month: "2024-01", Price: 100},
		{Month: "2024-02", Price: 200},
		{Month: "2024-03", Price: 300},
		{Month: "2024-04", Price: 400},
	}

	t.Run("perfect positive", func(t *testing.T) {
		r, ok := Correlate(prices, map[string]int{"2024-01": 1, "2024-02": 2, "2024-03": 3, "2024-04": 4})
		require.True(t, ok)
		assert.InDelta(t, 1.0, r, 1e-9)
	})

	t.Run("perfect negative", func(t *testing.T) {
		r, ok := Correlate(prices, map[string]int{"2024-01": 8, "2024-02": 6, "2024-03": 4, "2024-04": 2})
		require.True(t, ok)
		assert.InDelta(t, -1.0, r, 1e-9)
	})

	t.Run("months without complaints are ignored", func(t *testing.T) {
		_, ok := Correlate(prices, map[string]int{"2024-01": 1, "2024-02": 0, "2024-03": 3})
		assert.False(t, ok)
	})

	t.Run("constant counts", func(t *testing.T) {
		_, ok := Correlate(prices, map[string]int{"2024-01": 5, "2024-02": 5, "2024-03": 5})
		assert.False(t, ok)
	})
}

func TestStrength(t *testing.T) {
	assert.Equal(t, "strong", Strength(-0.8))
	assert.Equal(t, "moderate", Strength(0.4))
	assert.Equal(t, "weak", Strength(0.3))
	assert.Equal(t, "weak", Strength(0))
}
