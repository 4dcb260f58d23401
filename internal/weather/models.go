package weather

// Placeholders and markers used by the source pages.
const (
	// NoCondition is reported when no weather phrase could be derived.
	NoCondition = "-"
	// PlaceholderTrend is reported when a 12h forecast trend is unavailable.
	PlaceholderTrend = " - "
	// NoAdvisory is reported for airports without a matched special report.
	NoAdvisory = "-"

	autoObservation = "자동관측"
	windChill       = "체감"
	conditionClear  = "맑음"
)

// AirportSnapshot is the normalized observation for one airport, keyed by its ICAO code.
type AirportSnapshot struct {
	Name        string `json:"name" validate:"required"`
	Code        string `json:"code" validate:"required,len=4,alphanum"`
	Condition   string `json:"condition"`
	IconClass   string `json:"iconClass"`
	Temp        string `json:"temp"`
	WindDir     string `json:"wind_dir"`
	WindSpeed   string `json:"wind_speed"`
	Visibility  string `json:"visibility"`
	Cloud       string `json:"cloud"`
	Rain        string `json:"rain"`
	Time        string `json:"time"`
	Forecast12h string `json:"forecast_12h"`
}

// ForecastHour is one hourly entry of an airport detail forecast.
type ForecastHour struct {
	Time       string `json:"time"`
	Condition  string `json:"condition"`
	Temp       string `json:"temp"`
	WindDir    string `json:"wind_dir"`
	WindSpeed  string `json:"wind_speed"`
	Cloud      string `json:"cloud"`
	Visibility string `json:"visibility"`
}

// ForecastDay is one daily bucket of hourly entries, in page order.
type ForecastDay struct {
	Date      string         `json:"date"`
	Forecasts []ForecastHour `json:"forecasts"`
}

// SpecialReportRecord lists the advisory short codes matched for one airport.
type SpecialReportRecord struct {
	Airport       string `json:"airport"`
	ICAO          string `json:"icao"`
	SpecialReport string `json:"special_report"`
}

// Snapshot is the merged result of one full scrape.
type Snapshot struct {
	Airports       []AirportSnapshot     `json:"data"`
	SpecialReports []SpecialReportRecord `json:"special_reports"`
}

// Envelope is the response shape handed to callers of the refresh coordinator.
type Envelope struct {
	Data           []AirportSnapshot     `json:"data"`
	SpecialReports []SpecialReportRecord `json:"special_reports"`
	Error          *string               `json:"error"`
	Cached         bool                  `json:"cached"`
	LastUpdated    *string               `json:"last_updated"`
}
