package analysis

import (
	"sort"
	"time"

	"github.com/KaramelBytes/insightloom/internal/gateway"
)

// Direction of a forecast trend.
type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
)

// ForecastResult is a naive trend estimate for one series.
type ForecastResult struct {
	Direction  Direction `json:"direction"`
	GrowthRate float64   `json:"growth_rate"`
	Prediction string    `json:"prediction"`
}

// SalesTrendKey is the forecast key of the daily sales series.
const SalesTrendKey = "sales_trend"

// trendWindow is the number of days averaged at each end of the series.
const trendWindow = 7

// Forecast compares the mean daily sales of the last trendWindow days with
// the first trendWindow days. It needs more than trendWindow distinct dates.
func Forecast(tables gateway.Tables) (map[string]ForecastResult, error) {
	out := map[string]ForecastResult{}
	t, ok := tables.Get(gateway.SalesTransactions)
	if !ok || t.Len() == 0 {
		return out, nil
	}
	total := column{t, "total", true}
	if err := total.check(); err != nil {
		return nil, err
	}
	byDay := map[time.Time]float64{}
	for i, r := range t.Rows {
		ts, ok := r.Time("date")
		if !ok {
			continue
		}
		v, ok, err := total.at(i)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		y, m, d := ts.Date()
		byDay[time.Date(y, m, d, 0, 0, 0, 0, time.UTC)] += v
	}
	if len(byDay) <= trendWindow {
		return out, nil
	}
	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	series := make([]float64, len(days))
	for i, d := range days {
		series[i] = byDay[d]
	}
	previous := meanOf(series[:trendWindow])
	recent := meanOf(series[len(series)-trendWindow:])
	growth := 0.0
	if previous > 0 {
		growth = (recent - previous) / previous * 100
	}
	growth = round2(growth)
	res := ForecastResult{Direction: Down, GrowthRate: growth, Prediction: "Sales are declining"}
	if growth > 0 {
		res.Direction, res.Prediction = Up, "Sales are trending upward"
	}
	out[SalesTrendKey] = res
	return out, nil
}
