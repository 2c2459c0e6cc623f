package resourcechart

import (
	"html/template"
	"io"
)

const DefaultHighchartsURL = "https://code.highcharts.com/stock/highstock.js"

// PageOptions describes the HTML page hosting the chart.
type PageOptions struct {
	Title         string
	Target        string
	HighchartsURL string

	// Live pages fetch /chart.js and then follow /ws. Static pages carry the
	// script inline.
	Live   bool
	Script template.JS
}

func (p PageOptions) withDefaults() PageOptions {
	if p.HighchartsURL == "" {
		p.HighchartsURL = DefaultHighchartsURL
	}

	if p.Title == "" {
		p.Title = "Resource usage"
	}

	return p
}

var pageTemplate = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<script src="{{.HighchartsURL}}"></script>
</head>
<body>
<div id="{{.Target}}" style="height: 500px; min-width: 310px"></div>
{{- if .Live}}
<script src="chart.js"></script>
<script>
(function () {
  var scheme = window.location.protocol === "https:" ? "wss://" : "ws://";
  var ws = new WebSocket(scheme + window.location.host + "/ws");
  ws.onmessage = function (event) {
    var submission = JSON.parse(event.data);
    Highcharts.stockChart(submission.target, submission.options);
  };
})();
</script>
{{- else}}
<script>
{{.Script}}
</script>
{{- end}}
</body>
</html>
`))

// Writes the hosting page. Values are escaped by html/template; Script is
// trusted since it comes out of ScriptEngine.
func WritePage(w io.Writer, page PageOptions) error {
	return pageTemplate.Execute(w, page.withDefaults())
}
