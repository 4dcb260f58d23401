package store

import (
	"github.com/i474232898/airport-weather/internal/weather"
)

func batch(time string, conditions ...string) []weather.AirportSnapshot {
	codes := []struct{ name, code string }{{"인천", "RKSI"}, {"김포", "RKSS"}, {"제주", "RKPC"}}
	out := make([]weather.AirportSnapshot, 0, len(conditions))
	for i, cond := range conditions {
		out = append(out, weather.AirportSnapshot{
			Name:        codes[i].name,
			Code:        codes[i].code,
			Condition:   cond,
			Time:        time,
			Forecast12h: weather.PlaceholderTrend,
		})
	}
	return out
}
