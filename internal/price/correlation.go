package price

import (
	"math"
	"sort"
)

// MinCorrelationMonths is the fewest overlapping months Correlate will use.
const MinCorrelationMonths = 3

// MonthlyPrice is the average price over one calendar month.
type MonthlyPrice struct {
	Month string  `json:"month"` // YYYY-MM
	Price float64 `json:"price"`
}

// MonthlyAverages averages points per UTC month, rounded to whole dollars, oldest
// month first.
func MonthlyAverages(points []Point) []MonthlyPrice {
	type acc struct {
		sum float64
		n   int
	}
	byMonth := make(map[string]*acc)
	for _, p := range points {
		key := p.Time.UTC().Format("2006-01")
		a, ok := byMonth[key]
		if !ok {
			a = &acc{}
			byMonth[key] = a
		}
		a.sum += p.Price
		a.n++
	}

	out := make([]MonthlyPrice, 0, len(byMonth))
	for month, a := range byMonth {
		out = append(out, MonthlyPrice{Month: month, Price: math.Round(a.sum / float64(a.n))})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// Correlate returns the Pearson coefficient between monthly price and monthly
// complaint count, over months that have a price and a positive count. It reports
// false with fewer than MinCorrelationMonths such months or zero variance.
func Correlate(prices []MonthlyPrice, counts map[string]int) (float64, bool) {
	var xs, ys []float64
	for _, p := range prices {
		c, ok := counts[p.Month]
		if !ok || c <= 0 {
			continue
		}
		xs = append(xs, p.Price)
		ys = append(ys, float64(c))
	}

	n := float64(len(xs))
	if len(xs) < MinCorrelationMonths {
		return 0, false
	}

	var sumX, sumY, sumXY, sumX2, sumY2 float64
	for i := range xs {
		sumX += xs[i]
		sumY += ys[i]
		sumXY += xs[i] * ys[i]
		sumX2 += xs[i] * xs[i]
		sumY2 += ys[i] * ys[i]
	}

	denominator := math.Sqrt((n*sumX2 - sumX*sumX) * (n*sumY2 - sumY*sumY))
	if denominator == 0 || math.IsNaN(denominator) {
		return 0, false
	}
	return (n*sumXY - sumX*sumY) / denominator, true
}

// Strength describes the magnitude of a correlation coefficient.
func Strength(r float64) string {
	switch a := math.Abs(r); {
	case a > 0.5:
		return "strong"
	case a > 0.3:
		return "moderate"
	default:
		return "weak"
	}
}
