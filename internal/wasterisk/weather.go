package wasterisk

import (
	"math"

	"github.com/andresuchdata/ecoagent/backend-go/internal/domain"
)

// weather scores each store from its latest observation. Stores with no rows
// are listed as missing.
func (c *Calculator) weather(stores []string, byStore map[string][]domain.WeatherRecord, optimalTemp float64, report *RiskScoreReport) *WeatherBreakdown {
	b := &WeatherBreakdown{
		Policy:      WeatherPolicy,
		OptimalTemp: optimalTemp,
		Locations:   make([]LocationWeather, 0, len(stores)),
	}
	ceiling := c.cfg.MaxPrecipitationCeiling
	usedCeiling := false

	for _, store := range stores {
		rows := byStore[store]
		if len(rows) == 0 {
			b.MissingStores = append(b.MissingStores, store)
			continue
		}

		latest := rows[0]
		windowMax := rows[0].Precipitation
		for _, r := range rows[1:] {
			if !r.Date.Before(latest.Date) {
				latest = r
			}
			windowMax = math.Max(windowMax, r.Precipitation)
		}

		loc := LocationWeather{
			StoreID:          store,
			Date:             latest.Date.Format("2006-01-02"),
			ForecastTemp:     (latest.TempHigh + latest.TempLow) / 2,
			Precipitation:    latest.Precipitation,
			MaxPrecipitation: windowMax,
			SpecialEvent:     latest.SpecialEvent,
		}
		if ceiling > 0 {
			loc.MaxPrecipitation = ceiling
			usedCeiling = true
		}

		// temp_effect = max(0, 1 - forecast / optimal)
		loc.TempEffect = math.Max(0, 1-loc.ForecastTemp/optimalTemp)
		// precip_effect = precipitation / max precipitation, capped at 1 against a ceiling
		if loc.MaxPrecipitation > 0 {
			loc.PrecipEffect = math.Min(1, loc.Precipitation/loc.MaxPrecipitation)
		}
		if loc.SpecialEvent == domain.EventNegative {
			loc.EventEffect = 1
		}

		w := c.cfg.WeatherWeights
		loc.Score = w.Temp*loc.TempEffect + w.Precip*loc.PrecipEffect + w.Event*loc.EventEffect
		b.Locations = append(b.Locations, loc)
	}

	if usedCeiling {
		report.Assumptions = append(report.Assumptions, Assumption{
			Field:  "max_precipitation",
			Value:  ceiling,
			Reason: "configured precipitation ceiling used instead of observed maximum",
		})
	}
	return b
}
