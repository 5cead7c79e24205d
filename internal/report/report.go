// Package report renders the registry summary as an HTML page or a
// markdown table.
package report

import (
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/ga4gh-tools/svcreg/internal/domain/service"
)

// LiveProbe resolves a service's live service-info endpoint. It
// returns the live version, the probed URL, a non-empty error message
// when the probe failed, and ok=false when the artifact has no known
// service-info path.
type LiveProbe func(baseURL, artifact string) (version, infoURL, errMsg string, ok bool)

// Row is one service line in the summary.
type Row struct {
	Name            string
	Artifact        string
	Version         string
	LiveVersion     string
	OrgName         string
	URL             string
	VersionMismatch bool
}

// Data is everything the summary templates need.
type Data struct {
	GeneratedAt time.Time
	Filter      string
	Rows        []Row
}

const na = "N/A"

// BuildRows converts services to summary rows. probe may be nil to
// skip live version checks.
func BuildRows(services []service.Service, probe LiveProbe) []Row {
	rows := make([]Row, 0, len(services))
	for _, svc := range services {
		row := Row{
			Name:        orNA(svc.Name),
			Artifact:    orNA(svc.Artifact()),
			Version:     orNA(svc.Type.Version),
			LiveVersion: na,
			OrgName:     orNA(svc.Organization.Name),
			URL:         svc.URL,
		}

		if probe != nil {
			if live, infoURL, errMsg, ok := probe(svc.URL, svc.Artifact()); ok {
				if infoURL != "" {
					row.URL = infoURL
				}
				if errMsg == "" && live != "" {
					row.LiveVersion = live
					row.VersionMismatch = live != svc.Type.Version
				}
			}
		}

		rows = append(rows, row)
	}
	return rows
}

func orNA(s string) string {
	if s == "" {
		return na
	}
	return s
}

const htmlTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>GA4GH Registry Summary</title>
    <style>
        body { font-family: Arial, sans-serif; padding: 20px; }
        table { border-collapse: collapse; width: 100%; }
        th, td { border: 1px solid #ccc; padding: 8px; text-align: left; }
        th { background-color: #f2f2f2; }
        tr:hover { background-color: #f9f9f9; }
        .mismatch { background-color: #ffe6e6; }
    </style>
</head>
<body>
    <h1>GA4GH Registry Summary</h1>
    <p>Red lines indicate version mismatches between registry and live service-info.</p>
    <table>
        <tr>
            <th>Name</th>
            <th>Artifact</th>
            <th>Registry Version</th>
            <th>Live Version</th>
            <th>Organization</th>
            <th>Service-info URL</th>
        </tr>
        {{- range .Rows}}
        <tr{{if .VersionMismatch}} class="mismatch"{{end}}>
            <td>{{.Name}}</td>
            <td>{{.Artifact}}</td>
            <td>{{.Version}}</td>
            <td>{{.LiveVersion}}</td>
            <td>{{.OrgName}}</td>
            <td><a href="{{.URL}}" target="_blank">{{.URL}}</a></td>
        </tr>
        {{- end}}
    </table>
    <p>Total services: {{len .Rows}}</p>
    <p>Generated {{.GeneratedAt.Format "2006-01-02 15:04 MST"}}{{with .Filter}} (artifact filter: {{.}}){{end}}</p>
</body>
</html>
`

var summaryTemplate = template.Must(template.New("summary").Parse(htmlTemplate))

// RenderHTML writes the summary page. A template/data mismatch is a
// render error; nothing is guaranteed written on failure.
func RenderHTML(w io.Writer, data Data) error {
	if err := summaryTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("rendering summary: %w", err)
	}
	return nil
}

// RenderMarkdown returns the summary as a markdown table for terminal
// preview.
func RenderMarkdown(data Data) string {
	var b strings.Builder
	b.WriteString("# GA4GH Registry Summary\n\n")
	if data.Filter != "" {
		fmt.Fprintf(&b, "Artifact filter: `%s`\n\n", data.Filter)
	}
	b.WriteString("| Name | Artifact | Registry | Live | Organization |\n")
	b.WriteString("|------|----------|----------|------|--------------|\n")
	for _, row := range data.Rows {
		marker := ""
		if row.VersionMismatch {
			marker = " ⚠"
		}
		fmt.Fprintf(&b, "| %s | %s | %s | %s%s | %s |\n",
			row.Name, row.Artifact, row.Version, row.LiveVersion, marker, row.OrgName)
	}
	fmt.Fprintf(&b, "\nTotal services: %d\n", len(data.Rows))
	return b.String()
}
