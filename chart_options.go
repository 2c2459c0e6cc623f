package resourcechart

// The JSON shape of these types is the Highcharts Stock options object. Only
// the parts the resource chart sets are modelled.

type RangeButton struct {
	Type  string `json:"type"`
	Count int    `json:"count,omitempty"`
	Text  string `json:"text"`
}

type RangeSelector struct {
	Selected int           `json:"selected"`
	Buttons  []RangeButton `json:"buttons"`
}

type Tooltip struct {
	Split bool `json:"split"`
}

type Title struct {
	Text string `json:"text"`
}

type AreaSplineOptions struct {
	FillOpacity float64 `json:"fillOpacity"`
}

type PlotOptions struct {
	AreaSpline AreaSplineOptions `json:"areaspline"`
}

type Legend struct {
	Enabled bool `json:"enabled"`
}

type StockChartOptions struct {
	RangeSelector RangeSelector `json:"rangeSelector"`
	Tooltip       Tooltip       `json:"tooltip"`
	Title         Title         `json:"title"`
	PlotOptions   PlotOptions   `json:"plotOptions"`
	Legend        Legend        `json:"legend"`
	Series        []Series      `json:"series"`
}

const (
	// Index into DefaultRangeButtons, the 24h preset.
	DefaultSelectedRange = 1

	AreaFillOpacity = 0.4
)

// Returns a fresh copy of the range presets offered on every resource chart.
// The 30d preset is one calendar month and "All" has no count.
func DefaultRangeButtons() []RangeButton {
	return []RangeButton{
		{Type: "hour", Count: 12, Text: "12h"},
		{Type: "hour", Count: 24, Text: "24h"},
		{Type: "day", Count: 7, Text: "7d"},
		{Type: "month", Count: 1, Text: "30d"},
		{Type: "all", Text: "All"},
	}
}

// Builds the options for the CPU/RAM/players chart. The series are placed in
// that order and are not copied or inspected.
func NewResourceChartOptions(cpu, ram, playersOnline Series) StockChartOptions {
	return StockChartOptions{
		RangeSelector: RangeSelector{
			Selected: DefaultSelectedRange,
			Buttons:  DefaultRangeButtons(),
		},
		Tooltip: Tooltip{Split: true},
		Title:   Title{Text: ""},
		PlotOptions: PlotOptions{
			AreaSpline: AreaSplineOptions{FillOpacity: AreaFillOpacity},
		},
		Legend: Legend{Enabled: true},
		Series: []Series{cpu, ram, playersOnline},
	}
}
