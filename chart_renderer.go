package resourcechart

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// An Engine mounts a stock chart at target. Rendering, zooming and tooltips
// are entirely up to the engine.
type Engine interface {
	StockChart(target string, options StockChartOptions) error
}

type EngineFunc func(target string, options StockChartOptions) error

func (f EngineFunc) StockChart(target string, options StockChartOptions) error {
	return f(target, options)
}

// Submits the resource chart to the engine once. Nothing is validated here: a
// bad target or malformed series is the engine's to report and its error is
// returned untouched.
func RenderResourceChart(engine Engine, target string, cpu, ram, playersOnline Series) error {
	return engine.StockChart(target, NewResourceChartOptions(cpu, ram, playersOnline))
}

// ScriptEngine emits the equivalent Highcharts call as JavaScript, for
// inlining into a page or serving as a script.
type ScriptEngine struct {
	Output io.Writer
}

func NewScriptEngine(output io.Writer) *ScriptEngine {
	return &ScriptEngine{Output: output}
}

func (e *ScriptEngine) StockChart(target string, options StockChartOptions) error {
	// json.Marshal escapes <, > and & so the result can sit inside a <script>.
	targetJSON, err := json.Marshal(target)
	if err != nil {
		return fmt.Errorf("failed to encode target: %w", err)
	}

	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("failed to encode chart options: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString("Highcharts.stockChart(")
	buf.Write(targetJSON)
	buf.WriteString(", ")
	buf.Write(optionsJSON)
	buf.WriteString(");\n")

	_, err = e.Output.Write(buf.Bytes())
	return err
}
