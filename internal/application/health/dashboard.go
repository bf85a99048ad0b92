package health

import (
	"bytes"
	"fmt"
	"html/template"
)

var dashboardTmpl = template.Must(template.New("dashboard").Funcs(template.FuncMap{
	"field": func(v interface{}, key string) string {
		if m, ok := v.(map[string]interface{}); ok {
			if s, ok := m[key].(string); ok {
				return s
			}
		}
		return "-"
	},
	"str": func(v interface{}) string { return fmt.Sprint(v) },
	"ms": func(v interface{}) string {
		if p, ok := v.(*int64); ok && p != nil {
			return fmt.Sprint(*p)
		}
		return "-"
	},
}).Parse(`<!DOCTYPE html>
<html lang="es">
<head>
  <meta charset="UTF-8">
  <title>Registro · Estado del API</title>
  <meta name="viewport" content="width=device-width, initial-scale=1" />
  <style>
    body { font-family: system-ui, sans-serif; background: #f8f9fa; color: #1f2937; margin: 0; padding: 2rem; }
    h1 { margin-top: 0; }
    .badge { display: inline-block; padding: .25rem .75rem; border-radius: 999px; color: #fff; }
    .ok { background: #15803d; } .issue { background: #b91c1c; }
    table { border-collapse: collapse; margin: 1rem 0; min-width: 320px; }
    td, th { text-align: left; padding: .35rem .75rem; border-bottom: 1px solid #e5e7eb; }
    a { color: #0f766e; }
  </style>
</head>
<body>
  <h1>Registro · Estado del API</h1>
  {{if eq .Status "ok"}}<span class="badge ok">Todos los sistemas operativos</span>{{else}}<span class="badge issue">Servicio degradado</span>{{end}}

  <h2>Dependencias</h2>
  <table>
    <tr><th>Servicio</th><th>Estado</th><th>Ping (ms)</th></tr>
    {{range $name, $dep := .Dependencies}}<tr><td>{{$name}}</td><td>{{$dep.Status}}</td><td>{{ms $dep.PingMs}}</td></tr>
    {{end}}
  </table>

  <h2>Tráfico</h2>
  <table>
    <tr><td>Solicitudes</td><td>{{.Traffic.TotalRequests}}</td></tr>
    <tr><td>Fallidas (5xx)</td><td>{{.Traffic.FailedCount}}</td></tr>
    <tr><td>Tasa de éxito</td><td>{{.Traffic.SuccessRate}}%</td></tr>
    <tr><td>Tiempo medio (ms)</td><td>{{str .Traffic.AvgResponseTime}}</td></tr>
    <tr><td>Última</td><td>{{field .Traffic.LastRequest "method"}} {{field .Traffic.LastRequest "path"}} ({{field .Traffic.LastRequest "ip"}})</td></tr>
  </table>

  <h2>Runtime</h2>
  <table>
    <tr><td>Uptime (s)</td><td>{{.Runtime.UptimeSeconds}}</td></tr>
    <tr><td>Memoria (MB)</td><td>{{.Runtime.Memory.Alloc}}</td></tr>
    <tr><td>Goroutines</td><td>{{.Runtime.Goroutines}}</td></tr>
    <tr><td>Plataforma</td><td>{{.Runtime.Platform}} · {{.Runtime.GoVersion}}</td></tr>
  </table>

  <p><a href="/health/json">/health/json</a> · <a href="/health/errors">/health/errors</a></p>
</body>
</html>
`))

// RenderDashboardHTML returns the status page served at GET /.
func RenderDashboardHTML(health CollectResult) (string, error) {
	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, health); err != nil {
		return "", err
	}
	return buf.String(), nil
}
