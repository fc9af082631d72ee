package export

import (
	"html/template"
	"io"
	"time"

	dm "github.com/iWorld-y/markee/app/planner/pkg/model"
)

// HTMLData 用于模板渲染的数据
type HTMLData struct {
	Date    string
	Profile dm.CompanyProfile
	Plan    *dm.MarketingPlan
	Formats []dm.FormatShare
}

var reportTpl = template.Must(template.New("plan").Funcs(template.FuncMap{
	"pct":   func(v float64) int { return int(v + 0.5) },
	"share": ShareLinks,
}).Parse(htmlTpl))

// HTML 将营销方案渲染为独立的 HTML 报告
func HTML(w io.Writer, profile dm.CompanyProfile, plan *dm.MarketingPlan, now time.Time) error {
	return reportTpl.Execute(w, HTMLData{
		Date:    now.Format("2006-01-02 15:04"),
		Profile: profile,
		Plan:    plan,
		Formats: dm.FormatBreakdown(plan),
	})
}

const htmlTpl = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>Markee | Marketing Plan for {{.Profile.Name}}</title>
    <style>
        :root {
            --primary-color: #2563eb;
            --bg-color: #f8fafc;
            --card-bg: #ffffff;
            --text-main: #1e293b;
            --text-secondary: #64748b;
            --border-color: #e2e8f0;
        }
        body {
            font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, "Helvetica Neue", Arial, sans-serif;
            background-color: var(--bg-color);
            color: var(--text-main);
            line-height: 1.6;
            margin: 0;
            padding: 20px;
        }
        .container { max-width: 900px; margin: 0 auto; }
        header { text-align: center; margin-bottom: 40px; padding: 20px 0; }
        h1 { font-size: 2.2rem; margin: 0 0 10px 0; }
        .date-info { color: var(--text-secondary); }
        .card {
            background: var(--card-bg);
            border-radius: 12px;
            padding: 24px;
            margin-bottom: 30px;
            box-shadow: 0 2px 4px rgba(0,0,0,0.05);
            border: 1px solid var(--border-color);
        }
        .card h2 { margin-top: 0; border-bottom: 2px solid var(--primary-color); padding-bottom: 8px; display: inline-block; }
        .pillars { display: flex; flex-wrap: wrap; gap: 8px; padding: 0; list-style: none; }
        .pillars li { background: #eff6ff; color: #1d4ed8; padding: 4px 12px; border-radius: 20px; }
        .grid { display: grid; gap: 20px; grid-template-columns: 1fr; }
        @media (min-width: 768px) { .grid { grid-template-columns: 1fr 1fr; } }
        .persona, .campaign { background: #f8fafc; padding: 16px; border-radius: 8px; border-left: 4px solid #cbd5e1; }
        .campaign { border-left-color: #a855f7; background: #faf5ff; }
        .format { color: var(--text-secondary); font-size: 0.85em; text-transform: uppercase; }
        .bar { background: #e2e8f0; border-radius: 4px; height: 10px; margin: 4px 0 12px; }
        .share { font-size: 0.85em; margin: 4px 0 10px; }
        .share a { color: var(--primary-color); margin-right: 10px; text-decoration: none; }
        .bar span { display: block; height: 100%; background: var(--primary-color); border-radius: 4px; }
    </style>
</head>
<body>
    <div class="container">
        <header>
            <h1>Marketing Plan for {{.Profile.Name}}</h1>
            <div class="date-info">{{.Date}} • {{len .Plan.CampaignIdeas}} campaigns • {{len .Plan.ContentPlan.Ideas}} content ideas</div>
        </header>

        <div class="card">
            <h2>{{.Plan.OverallStrategy.Title}}</h2>
            <p>{{.Plan.OverallStrategy.Summary}}</p>
            <ul class="pillars">
                {{range .Plan.OverallStrategy.KeyPillars}}<li>{{.}}</li>{{end}}
            </ul>
        </div>

        <div class="card">
            <h2>Target Audience</h2>
            <p><strong>Primary Channels:</strong> {{range $i, $c := .Plan.TargetAudience.Channels}}{{if $i}}, {{end}}{{$c}}{{end}}</p>
            <div class="grid">
                {{range .Plan.TargetAudience.Personas}}
                <div class="persona">
                    <h3>{{.Name}}</h3>
                    <p>{{.Description}}</p>
                </div>
                {{end}}
            </div>
        </div>

        <div class="card">
            <h2>Content Plan</h2>
            <p><strong>Core Themes:</strong> {{range $i, $t := .Plan.ContentPlan.Themes}}{{if $i}}, {{end}}{{$t}}{{end}}</p>
            <h3>Content Mix</h3>
            {{range .Formats}}
            <div>{{.Name}} ({{.Count}}, {{pct .Percent}}%)</div>
            <div class="bar"><span style="width: {{pct .Percent}}%"></span></div>
            {{end}}
            <h3>Specific Ideas</h3>
            <ul>
                {{range .Plan.ContentPlan.Ideas}}
                <li>
                    <span class="format">{{.Format}}</span> <strong>{{.Title}}</strong>: {{.Description}}
                    <div class="share">Share: {{range share .}}<a href="{{.URL}}" target="_blank" rel="noopener noreferrer">{{.Platform}}</a>{{end}}</div>
                </li>
                {{end}}
            </ul>
        </div>

        <div class="card">
            <h2>Campaign Ideas</h2>
            <div class="grid">
                {{range .Plan.CampaignIdeas}}
                <div class="campaign">
                    <h3>{{.Name}}</h3>
                    <p><strong>Objective:</strong> {{.Objective}}</p>
                    <p>{{.Description}}</p>
                    <p><strong>KPIs:</strong> {{range $i, $k := .KPIs}}{{if $i}}, {{end}}{{$k}}{{end}}</p>
                </div>
                {{end}}
            </div>
        </div>
    </div>
</body>
</html>
`
