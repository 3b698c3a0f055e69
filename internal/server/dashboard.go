package server

import (
	"html/template"
	"net/http"
)

// dashboardTmpl renders a static snapshot of the workforce. It is a
// human convenience view; machines use /api.
var dashboardTmpl = template.Must(template.New("dashboard").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta http-equiv="refresh" content="30">
<title>Koyomi</title>
<style>
body { font-family: ui-monospace, monospace; background: #14161a; color: #e6e6e6; margin: 2rem; }
h1 { font-size: 1.3rem; }
table { border-collapse: collapse; width: 100%; }
th, td { text-align: left; padding: 0.4rem 0.8rem; border-bottom: 1px solid #2c2f36; }
th { color: #8a919e; font-weight: normal; }
.status-idle { color: #8a919e; }
.status-running { color: #4fc1ff; }
.status-error { color: #f38ba8; }
.muted { color: #565c66; }
</style>
</head>
<body>
<h1>Koyomi — {{.AgentCount}} agents, {{.Health}}</h1>
<table>
<tr><th>agent</th><th>schedule</th><th>runs</th><th>last run</th><th>status</th></tr>
{{range .Agents}}
<tr>
<td><a href="/api/agents/{{.Name}}">{{.Name}}</a></td>
<td>{{.Schedule}}</td>
<td>{{.RunCount}}</td>
<td>{{if .LastRun}}{{.LastRun}}{{else}}<span class="muted">never</span>{{end}}</td>
<td class="status-{{.Status}}">{{.Status}}</td>
</tr>
{{end}}
</table>
</body>
</html>
`))

type dashboardData struct {
	Health     string
	AgentCount int
	Agents     []dashboardAgent
}

type dashboardAgent struct {
	Name     string
	Schedule string
	RunCount int
	LastRun  *string
	Status   string
}

// HandleDashboard serves the HTML status snapshot at the root path.
func (h *Handlers) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	health := "scheduler running"
	if !h.orch.Running() {
		health = "scheduler stopped"
	}

	statuses := h.orch.Statuses()
	data := dashboardData{
		Health:     health,
		AgentCount: len(statuses),
		Agents:     make([]dashboardAgent, 0, len(statuses)),
	}
	for _, st := range statuses {
		data.Agents = append(data.Agents, dashboardAgent{
			Name:     st.Name,
			Schedule: st.Schedule,
			RunCount: st.RunCount,
			LastRun:  st.LastRun,
			Status:   string(st.Status),
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := dashboardTmpl.Execute(w, data); err != nil {
		h.logger.Error("dashboard render failed", "error", err.Error())
	}
}
