package resourcechart

import (
	"encoding/json"
	"fmt"
)

// Series types understood by the Highcharts engine.
const (
	SeriesTypeAreaSpline = "areaspline"
	SeriesTypeSpline     = "spline"
	SeriesTypeLine       = "line"
)

// A single sample. Timestamp is in unix milliseconds, which is what the stock
// chart navigator expects on its datetime axis.
type Point struct {
	Timestamp float64
	Value     float64
}

// Points are encoded as [x, y] pairs.
func (p Point) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]float64{p.Timestamp, p.Value})
}

func (p *Point) UnmarshalJSON(data []byte) error {
	var pair []float64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}

	if len(pair) != 2 {
		return fmt.Errorf("expected [x, y] pair, got %d values", len(pair))
	}

	p.Timestamp = pair[0]
	p.Value = pair[1]
	return nil
}

type SeriesTooltip struct {
	ValueSuffix string `json:"valueSuffix,omitempty"`
}

// Series is forwarded to the charting engine as is. Nothing in this package
// inspects or changes the samples.
type Series struct {
	Name    string         `json:"name"`
	Type    string         `json:"type,omitempty"`
	Color   string         `json:"color,omitempty"`
	Tooltip *SeriesTooltip `json:"tooltip,omitempty"`
	Data    []Point        `json:"data"`
}

// The engine chokes on `data: null`, so a nil slice goes out as [].
func (s Series) MarshalJSON() ([]byte, error) {
	type plain Series

	if s.Data == nil {
		s.Data = []Point{}
	}

	return json.Marshal(plain(s))
}
