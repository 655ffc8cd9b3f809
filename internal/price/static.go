package price

import "sort"

// fallbackPrices are approximate monthly BTC closes in USD.
var fallbackPrices = map[string]float64{
	"2019-01": 3600, "2019-02": 3800, "2019-03": 4000, "2019-04": 5200,
	"2019-05": 7500, "2019-06": 10800, "2019-07": 10500, "2019-08": 10200,
	"2019-09": 8500, "2019-10": 8300, "2019-11": 7500, "2019-12": 7200,

	"2020-01": 8500, "2020-02": 9500, "2020-03": 6500, "2020-04": 7500,
	"2020-05": 9000, "2020-06": 9300, "2020-07": 9800, "2020-08": 11500,
	"2020-09": 10700, "2020-10": 13000, "2020-11": 17500, "2020-12": 24000,

	"2021-01": 34000, "2021-02": 46000, "2021-03": 55000, "2021-04": 57000,
	"2021-05": 40000, "2021-06": 35000, "2021-07": 33000, "2021-08": 44000,
	"2021-09": 45000, "2021-10": 55000, "2021-11": 60000, "2021-12": 48000,

	"2022-01": 41500, "2022-02": 39500, "2022-03": 44000, "2022-04": 40000,
	"2022-05": 31500, "2022-06": 21500, "2022-07": 22500, "2022-08": 21500,
	"2022-09": 19500, "2022-10": 20500, "2022-11": 17000, "2022-12": 16800,

	"2023-01": 21500, "2023-02": 23500, "2023-03": 28000, "2023-04": 29500,
	"2023-05": 27500, "2023-06": 30500, "2023-07": 29500, "2023-08": 26000,
	"2023-09": 27000, "2023-10": 34500, "2023-11": 37500, "2023-12": 42500,

	"2024-01": 43000, "2024-02": 52000, "2024-03": 70000, "2024-04": 65000,
	"2024-05": 67000, "2024-06": 62000, "2024-07": 66000, "2024-08": 59000,
	"2024-09": 63000, "2024-10": 68000, "2024-11": 90000, "2024-12": 97000,

	"2025-01": 102000, "2025-02": 96000, "2025-03": 82000, "2025-04": 84000,
	"2025-05": 103000, "2025-06": 106000, "2025-07": 97000, "2025-08": 59000,
	"2025-09": 63000, "2025-10": 69000, "2025-11": 96000, "2025-12": 94000,

	"2026-01": 102000,
}

// StaticSeries returns the built-in monthly table.
func StaticSeries() Series {
	months := make([]MonthlyPrice, 0, len(fallbackPrices))
	for month, p := range fallbackPrices {
		months = append(months, MonthlyPrice{Month: month, Price: p})
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Month < months[j].Month })

	return Series{
		Source: "static",
		Months: months,
		Latest: months[len(months)-1].Price,
	}
}
