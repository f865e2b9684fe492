package notifications

import (
	"bytes"
	"html/template"
	"sort"
	texttemplate "text/template"
	"time"

	"github.com/mmorowitz/media-monitor/internal/models"
	"github.com/sirupsen/logrus"
)

const uncategorized = "uncategorized"

// GroupItems nests the report's items by category, then by sub-source
// within each category, preserving arrival order within each group.
// Items without a category land under "uncategorized".
func GroupItems(report *models.Report) map[string]map[string][]models.Item {
	grouped := make(map[string]map[string][]models.Item)

	names := make([]string, 0, len(report.Items))
	for name := range report.Items {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, item := range report.Items[name] {
			category := item.Category
			if category == "" {
				category = uncategorized
			}
			sub := item.Subsource
			if sub == "" {
				sub = "unknown"
			}
			if grouped[category] == nil {
				grouped[category] = make(map[string][]models.Item)
			}
			grouped[category][sub] = append(grouped[category][sub], item)
		}
	}

	return grouped
}

type emailContext struct {
	GeneratedAt time.Time
	HasItems    bool
	Groups      map[string]map[string][]models.Item
}

const textBodyTemplate = `Media Monitor Report
Generated: {{.GeneratedAt.Format "2006-01-02 15:04:05 UTC"}}

{{if .HasItems}}{{range $category, $subs := .Groups}}== {{$category}} ==
{{range $sub, $items := $subs}}
-- {{$sub}} --
{{range $items}}* {{.Title}}
  {{.URL}}
{{end}}{{end}}
{{end}}{{else}}No new items found from any source.
{{end}}`

const htmlBodyTemplate = `<!DOCTYPE html>
<html>
<head>
    <meta charset="UTF-8">
    <title>Media Monitor Report</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 20px; }
        .header { background-color: #336699; color: white; padding: 20px; border-radius: 5px; }
        .category { margin: 20px 0; }
        .subsource { color: #336699; margin: 10px 0 5px; }
        .item { border-left: 4px solid #336699; padding: 8px; margin: 6px 0; background-color: #fafafa; }
        .item-meta { color: #666; font-size: 0.9em; }
    </style>
</head>
<body>
    <div class="header">
        <h1>Media Monitor Report</h1>
        <p>Generated on {{.GeneratedAt.Format "January 2, 2006 at 3:04 PM UTC"}}</p>
    </div>

    {{if .HasItems}}
    {{range $category, $subs := .Groups}}
    <div class="category">
        <h2>{{$category}}</h2>
        {{range $sub, $items := $subs}}
        <h3 class="subsource">{{$sub}}</h3>
        {{range $items}}
        <div class="item">
            <a href="{{.URL}}" target="_blank">{{.Title}}</a>
            <div class="item-meta">
                {{.PublishedAt.Format "Jan 2, 2006 15:04 UTC"}}{{if .Author}} | {{.Author}}{{end}}{{if .Score}} | Score: {{.Score}}{{end}}
            </div>
        </div>
        {{end}}
        {{end}}
    </div>
    {{end}}
    {{else}}
    <p>No new items found from any source.</p>
    {{end}}

    <hr>
    <p><small>This report was generated automatically by media-monitor.</small></p>
</body>
</html>`

const (
	fallbackTextWithItems = "New items were found but the report could not be formatted. Check the application logs for details."
	fallbackTextEmpty     = "No new items found from any source."
)

var (
	textTmpl = texttemplate.Must(texttemplate.New("email-text").Parse(textBodyTemplate))
	htmlTmpl = template.Must(template.New("email-html").Parse(htmlBodyTemplate))
)

// renderBodies produces the plain-text and HTML representations of the
// report. A formatting failure falls back to a minimal static message
// rather than aborting the run.
func renderBodies(report *models.Report) (string, string) {
	ctx := emailContext{
		GeneratedAt: report.GeneratedAt,
		HasItems:    report.HasItems(),
		Groups:      GroupItems(report),
	}

	var textBuf, htmlBuf bytes.Buffer
	if err := textTmpl.Execute(&textBuf, ctx); err != nil {
		logrus.Errorf("Error rendering email templates: %v", err)
		return fallbackBodies(ctx.HasItems)
	}
	if err := htmlTmpl.Execute(&htmlBuf, ctx); err != nil {
		logrus.Errorf("Error rendering email templates: %v", err)
		return fallbackBodies(ctx.HasItems)
	}

	return textBuf.String(), htmlBuf.String()
}

func fallbackBodies(hasItems bool) (string, string) {
	text := fallbackTextEmpty
	if hasItems {
		text = fallbackTextWithItems
	}
	return text, "<p>" + text + "</p>"
}
