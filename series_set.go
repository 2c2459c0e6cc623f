package resourcechart

// How one of the three series is labelled and drawn.
type SeriesStyle struct {
	Name        string `mapstructure:"name"`
	Type        string `mapstructure:"type"`
	Color       string `mapstructure:"color"`
	ValueSuffix string `mapstructure:"value_suffix"`
}

type SeriesSet struct {
	CPU     SeriesStyle `mapstructure:"cpu"`
	RAM     SeriesStyle `mapstructure:"ram"`
	Players SeriesStyle `mapstructure:"players"`
}

func DefaultSeriesSet() SeriesSet {
	return SeriesSet{
		CPU: SeriesStyle{
			Name:        "CPU Usage",
			Type:        SeriesTypeAreaSpline,
			Color:       "#e91e63",
			ValueSuffix: "%",
		},
		RAM: SeriesStyle{
			Name:        "RAM Usage",
			Type:        SeriesTypeAreaSpline,
			Color:       "#7a4cbb",
			ValueSuffix: " MB",
		},
		Players: SeriesStyle{
			Name:  "Players Online",
			Type:  SeriesTypeSpline,
			Color: "#1e90ff",
		},
	}
}

func (s SeriesStyle) series(points []Point) Series {
	series := Series{
		Name:  s.Name,
		Type:  s.Type,
		Color: s.Color,
		Data:  points,
	}

	if s.ValueSuffix != "" {
		series.Tooltip = &SeriesTooltip{ValueSuffix: s.ValueSuffix}
	}

	return series
}

// Splits rows into the cpu, ram and players series. Values and order are kept
// as read.
func (s SeriesSet) Build(rows []ResourceRow) (cpu, ram, players Series) {
	cpuPoints := make([]Point, 0, len(rows))
	ramPoints := make([]Point, 0, len(rows))
	playerPoints := make([]Point, 0, len(rows))

	for _, row := range rows {
		cpuPoints = append(cpuPoints, Point{Timestamp: row.Timestamp, Value: row.CPU})
		ramPoints = append(ramPoints, Point{Timestamp: row.Timestamp, Value: row.RAM})
		playerPoints = append(playerPoints, Point{Timestamp: row.Timestamp, Value: row.Players})
	}

	return s.CPU.series(cpuPoints), s.RAM.series(ramPoints), s.Players.series(playerPoints)
}
