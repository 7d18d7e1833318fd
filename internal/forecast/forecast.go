// Package forecast produces a short randomized weather outlook.
package forecast

import (
	"math/rand/v2"
	"time"
)

// Days is the number of forecasts Generate returns.
const Days = 5

// Summaries lists every summary a forecast can carry.
var Summaries = []string{
	"Freezing", "Bracing", "Chilly", "Cool", "Mild",
	"Warm", "Balmy", "Hot", "Sweltering", "Scorching",
}

type Forecast struct {
	Date         string `json:"date"`
	TemperatureC int    `json:"temperatureC"`
	TemperatureF int    `json:"temperatureF"`
	Summary      string `json:"summary"`
}

// FromCelsius converts using the truncating 0.5556 approximation.
func FromCelsius(c int) int {
	return 32 + int(float64(c)/0.5556)
}

// Generate returns Days forecasts starting the day after now. Temperatures
// fall in [-20, 55). A nil rng uses the global source.
func Generate(now time.Time, rng *rand.Rand) []Forecast {
	intN := rand.IntN
	if rng != nil {
		intN = rng.IntN
	}
	out := make([]Forecast, 0, Days)
	for i := 1; i <= Days; i++ {
		c := intN(75) - 20
		out = append(out, Forecast{
			Date:         now.AddDate(0, 0, i).Format(time.DateOnly),
			TemperatureC: c,
			TemperatureF: FromCelsius(c),
			Summary:      Summaries[intN(len(Summaries))],
		})
	}
	return out
}
