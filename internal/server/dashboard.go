package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"
)

// Dashboard template data structures
type listData struct {
	Experiments []experimentListItem
}

type experimentListItem struct {
	ID          string
	Name        string
	Status      string
	VariantsN   int
	TotalUsers  int
	OverallRate string
	Goal        string
	CreatedAt   string
}

type detailData struct {
	ID             string
	Name           string
	Description    string
	Status         string
	Goal           string
	StartedAt      string
	Variants       []detailVariant
	Action         string
	Confidence     string
	Advice         []string
	NextSteps      []string
	Interpretation string
}

type detailVariant struct {
	Name        string
	Users       int
	Conversions int
	Rate        string
	CI          string
	Leading     bool
}

var listTemplate = template.Must(template.New("list").Parse(`<!DOCTYPE html>
<html><head><title>labrat</title><style>` + dashboardCSS + `</style></head>
<body>
<h1>labrat experiments</h1>
<table>
<tr><th>ID</th><th>Name</th><th>Status</th><th>Variants</th><th>Users</th><th>Rate</th><th>Goal</th><th>Created</th></tr>
{{range .Experiments}}
<tr>
<td><a href="/dashboard/experiment/{{.ID}}">{{.ID}}</a></td>
<td>{{.Name}}</td><td>{{.Status}}</td><td>{{.VariantsN}}</td>
<td>{{.TotalUsers}}</td><td>{{.OverallRate}}</td><td>{{.Goal}}</td><td>{{.CreatedAt}}</td>
</tr>
{{else}}
<tr><td colspan="8">No experiments yet. Create one with 'labrat create'.</td></tr>
{{end}}
</table>
<p><a href="/dashboard?logout=1">Log out</a></p>
</body></html>`))

var detailTemplate = template.Must(template.New("detail").Parse(`<!DOCTYPE html>
<html><head><title>{{.Name}} - labrat</title><style>` + dashboardCSS + `</style></head>
<body>
<p><a href="/dashboard">&larr; All experiments</a></p>
<h1>{{.Name}}</h1>
<p>{{.Description}}</p>
<p>Status: <strong>{{.Status}}</strong> &middot; Goal event: <code>{{.Goal}}</code> &middot; Started {{.StartedAt}}</p>
<table>
<tr><th>Variant</th><th>Users</th><th>Conversions</th><th>Rate</th><th>95% CI</th></tr>
{{range .Variants}}
<tr{{if .Leading}} class="leading"{{end}}>
<td>{{.Name}}{{if .Leading}} &larr; leading{{end}}</td>
<td>{{.Users}}</td><td>{{.Conversions}}</td><td>{{.Rate}}</td><td>{{.CI}}</td>
</tr>
{{end}}
</table>
<h2>Significance</h2>
<p>{{.Interpretation}}</p>
<h2>Recommendation: {{.Action}} ({{.Confidence}} confidence)</h2>
<ul>{{range .Advice}}<li>{{.}}</li>{{end}}</ul>
<h3>Next steps</h3>
<ol>{{range .NextSteps}}<li>{{.}}</li>{{end}}</ol>
</body></html>`))

const dashboardCSS = `body{font-family:sans-serif;margin:2rem;max-width:60rem}
table{border-collapse:collapse;width:100%}
th,td{border:1px solid #ccc;padding:.4rem .6rem;text-align:left}
tr.leading{background:#eef9ee}
code{background:#f4f4f4;padding:0 .2rem}`

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	// Handle logout
	if r.URL.Query().Get("logout") == "1" {
		http.SetCookie(w, &http.Cookie{
			Name:   tokenCookieName,
			Value:  "",
			Path:   "/",
			MaxAge: -1,
		})
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	ctx := r.Context()
	experiments, err := s.store.ListExperiments(ctx)
	if err != nil {
		http.Error(w, "Failed to load experiments", http.StatusInternalServerError)
		return
	}

	items := make([]experimentListItem, 0, len(experiments))
	for _, exp := range experiments {
		item := experimentListItem{
			ID:        exp.ID,
			Name:      exp.Name,
			Status:    string(exp.Status),
			VariantsN: len(exp.Variants),
			Goal:      exp.GoalEvent,
			CreatedAt: exp.CreatedAt.Format("Jan 2, 2006"),
		}

		if results, err := s.engine.Results(ctx, exp.ID); err == nil {
			item.TotalUsers = results.TotalUsers
			item.OverallRate = fmt.Sprintf("%.2f%%", results.OverallRate)
		}
		items = append(items, item)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := listTemplate.Execute(w, listData{Experiments: items}); err != nil {
		http.Error(w, "Failed to render dashboard", http.StatusInternalServerError)
	}
}

func (s *Server) handleDashboardExperiment(w http.ResponseWriter, r *http.Request) {
	id := strings.Trim(strings.TrimPrefix(r.URL.Path, "/dashboard/experiment/"), "/")
	if id == "" {
		http.Redirect(w, r, "/dashboard", http.StatusFound)
		return
	}

	ctx := r.Context()
	results, err := s.engine.Results(ctx, id)
	if err != nil {
		http.Error(w, "Experiment not found", http.StatusNotFound)
		return
	}

	data := detailData{
		ID:          results.Experiment.ID,
		Name:        results.Experiment.Name,
		Description: results.Experiment.Description,
		Status:      string(results.Experiment.Status),
		Goal:        results.Experiment.GoalEvent,
		StartedAt:   results.Experiment.StartedAt.Format("Jan 2, 2006"),
	}

	leading := ""
	bestRate := -1.0
	for _, m := range results.Variants {
		if m.ConversionRate > bestRate {
			bestRate = m.ConversionRate
			leading = m.Name
		}
	}
	for _, m := range results.Variants {
		data.Variants = append(data.Variants, detailVariant{
			Name:        m.Name,
			Users:       m.TotalUsers,
			Conversions: m.Conversions,
			Rate:        fmt.Sprintf("%.2f%%", m.ConversionRate),
			CI:          fmt.Sprintf("[%.1f%%, %.1f%%]", m.ConfidenceInterval.Lower, m.ConfidenceInterval.Upper),
			Leading:     m.Name == leading && len(results.Variants) > 1,
		})
	}

	if sig, err := s.engine.Significance(ctx, id); err == nil {
		data.Interpretation = sig.Interpretation
	}
	if rec, err := s.engine.Recommendation(ctx, id); err == nil {
		data.Action = string(rec.Action)
		data.Confidence = string(rec.Confidence)
		data.Advice = rec.Recommendations
		data.NextSteps = rec.NextSteps
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := detailTemplate.Execute(w, data); err != nil {
		http.Error(w, "Failed to render experiment", http.StatusInternalServerError)
	}
}
