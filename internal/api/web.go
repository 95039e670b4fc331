package api

import (
	"encoding/json"
	"html/template"
	"net/http"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/atmoslab/fluxpro/internal/output"
	"github.com/atmoslab/fluxpro/pkg/version"
)

// ChartData contains all data for the chart page template.
type ChartData struct {
	Version string
	File    string
	Sample  int
	Series  []output.Series
}

// handleChart serves the flux chart page.
func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	data := ChartData{
		Version: version.GetShortVersion(),
		File:    filepath.Base(s.table.Path),
		Sample:  s.table.Sample,
	}
	for _, gas := range s.table.Gases {
		data.Series = append(data.Series, s.table.Series(gas))
	}

	funcMap := template.FuncMap{
		"json": jsonFunc,
	}

	tmpl := template.Must(template.New("chart").Funcs(funcMap).Parse(chartTemplate))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := tmpl.Execute(w, data); err != nil {
		s.logger.Error("Failed to render chart page", zap.Error(err))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// jsonFunc marshals a value for safe embedding in the page script.
func jsonFunc(v interface{}) (template.JS, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return template.JS(b), nil
}

const chartTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>fluxpro - {{.File}}</title>
    <script src="https://cdn.jsdelivr.net/npm/chart.js@4.4.1/dist/chart.umd.min.js"></script>
    <style>
        :root { color-scheme: dark; }
        body {
            margin: 0;
            font-family: -apple-system, "Segoe UI", Roboto, sans-serif;
            background: #0f172a;
            color: #e2e8f0;
        }
        header {
            display: flex;
            justify-content: space-between;
            align-items: baseline;
            padding: 16px 24px;
            border-bottom: 1px solid #1e293b;
        }
        header h1 { font-size: 18px; margin: 0; }
        header .meta { color: #94a3b8; font-size: 13px; }
        .grid {
            display: grid;
            grid-template-columns: repeat(auto-fill, minmax(380px, 1fr));
            gap: 16px;
            padding: 24px;
        }
        .card {
            background: #1e293b;
            border-radius: 8px;
            padding: 16px;
        }
        .card h2 { font-size: 15px; margin: 0 0 8px 0; }
        .card .chart-wrap { position: relative; height: 240px; }
    </style>
</head>
<body>
    <header>
        <h1>fluxpro &mdash; {{.File}} (sample {{.Sample}})</h1>
        <div class="meta">flux over cycle per gas &middot; v{{.Version}}</div>
    </header>
    <div class="grid">
        {{range .Series}}
        <div class="card">
            <h2>{{.Gas}}</h2>
            <div class="chart-wrap"><canvas id="chart-{{.Gas}}"></canvas></div>
        </div>
        {{end}}
    </div>
    <script>
        const allSeries = {{.Series | json}};

        for (const series of allSeries) {
            const ctx = document.getElementById("chart-" + series.gas);
            if (!ctx) continue;

            const raw = series.cycles.map((c, i) => ({x: c, y: series.corrected[i]}));
            const avg = series.avg_cycles.map((c, i) => ({x: c, y: series.avg[i]}));
            const sem = series.sem;

            new Chart(ctx, {
                type: "scatter",
                data: {
                    datasets: [
                        {
                            label: "corrected flux",
                            data: raw,
                            backgroundColor: "rgba(244, 114, 182, 0.45)",
                            pointRadius: 2.5,
                        },
                        {
                            label: "cycle mean",
                            data: avg,
                            type: "line",
                            showLine: true,
                            borderColor: "#f87171",
                            backgroundColor: "#f87171",
                            pointRadius: 4,
                            tension: 0,
                        },
                    ]
                },
                options: {
                    responsive: true,
                    maintainAspectRatio: false,
                    animation: false,
                    scales: {
                        x: {
                            title: { display: true, text: "Cycle" },
                            grid: { color: "#334155" },
                        },
                        y: {
                            title: { display: true, text: "Flux" },
                            grid: { color: "#334155" },
                        },
                    },
                    plugins: {
                        legend: { labels: { boxWidth: 12 } },
                        tooltip: {
                            callbacks: {
                                label: (item) => {
                                    let label = item.dataset.label + ": " + item.parsed.y.toPrecision(4);
                                    if (item.datasetIndex === 1 && sem[item.dataIndex] !== undefined) {
                                        label += " ± " + sem[item.dataIndex].toPrecision(3);
                                    }
                                    return label;
                                }
                            }
                        }
                    }
                }
            });
        }
    </script>
</body>
</html>
`
