package web

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/sweeney/gpio-tach/internal/status"
)

var indexTmpl = template.Must(template.New("index").Funcs(template.FuncMap{
	"uptime": func(d time.Duration) string {
		d = d.Truncate(time.Second)
		days := int(d.Hours()) / 24
		h := int(d.Hours()) % 24
		m := int(d.Minutes()) % 60
		s := int(d.Seconds()) % 60
		if days > 0 {
			return fmt.Sprintf("%dd %dh %dm %ds", days, h, m, s)
		}
		if h > 0 {
			return fmt.Sprintf("%dh %dm %ds", h, m, s)
		}
		if m > 0 {
			return fmt.Sprintf("%dm %ds", m, s)
		}
		return fmt.Sprintf("%ds", s)
	},
	"millis": func(ms int64) string {
		if ms == 0 {
			return "disabled"
		}
		return fmt.Sprintf("%dms", ms)
	},
}).Parse(indexHTML))

const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<meta http-equiv="refresh" content="2">
<title>GPIO Tach</title>
<style>
body { font-family: monospace; max-width: 600px; margin: 2em auto; padding: 0 1em; }
h1 { font-size: 1.4em; }
table { border-collapse: collapse; width: 100%; margin: 1em 0; }
td, th { text-align: left; padding: 4px 8px; border-bottom: 1px solid #ddd; }
th { width: 40%; }
.live { font-size: 1.6em; font-weight: bold; }
.dropped { color: red; }
.connected { color: green; }
.disconnected { color: red; }
</style>
</head>
<body>
<h1>GPIO Tach</h1>

<h2>Counter</h2>
<table>
<tr><th>Edges in last {{.Config.WindowMs}}ms</th><td id="live" class="live">{{.Reading.Live}}</td></tr>
<tr><th>Total since reset</th><td id="total">{{.Reading.Total}}</td></tr>
<tr><th>Dropped (ring full)</th><td id="dropped"{{if .Reading.Dropped}} class="dropped"{{end}}>{{.Reading.Dropped}}</td></tr>
<tr><th>Debounced</th><td>{{.Debounced}}</td></tr>
</table>
<form method="post" action="/reset"><input type="hidden" name="reset" value="1"><button type="submit">Reset total</button></form>

<h2>Connectivity</h2>
<table>
<tr><th>MQTT</th><td class="{{if .MQTTConnected}}connected{{else}}disconnected{{end}}">{{if .MQTTConnected}}connected{{else}}disconnected{{end}}</td></tr>
<tr><th>Broker</th><td>{{.Config.Broker}}</td></tr>
{{if .Network}}<tr><th>Network</th><td>{{.Network.Status}} ({{.Network.Type}}{{if .Network.SSID}}, {{.Network.SSID}}{{end}})</td></tr>
<tr><th>IP</th><td>{{.Network.IP}}</td></tr>{{end}}
</table>

<h2>System</h2>
<table>
<tr><th>Uptime</th><td>{{uptime .Uptime}}</td></tr>
<tr><th>Started</th><td>{{.StartTime.UTC.Format "2006-01-02T15:04:05Z"}}</td></tr>
<tr><th>Input</th><td>{{.Config.Chip}} line {{.Config.Line}}</td></tr>
<tr><th>Window</th><td>{{.Config.WindowMs}}ms</td></tr>
<tr><th>Capacity</th><td>{{.Config.Capacity}}</td></tr>
<tr><th>Debounce</th><td>{{millis .Config.DebounceMs}}</td></tr>
<tr><th>Report</th><td>{{millis .Config.ReportMs}}</td></tr>
<tr><th>HTTP</th><td>{{.Config.HTTPAddr}}</td></tr>
</table>

<p><a href="/index.json">JSON</a> · <a href="/count">count</a></p>
</body>
</html>
`

func renderHTML(w io.Writer, snap status.Snapshot) {
	// Snapshot has Uptime() method but template needs a Duration field.
	data := struct {
		status.Snapshot
		Uptime time.Duration
	}{
		Snapshot: snap,
		Uptime:   snap.Uptime(),
	}
	indexTmpl.Execute(w, data)
}
