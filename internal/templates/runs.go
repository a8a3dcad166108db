package templates

import (
	"context"
	"strings"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"
	"github.com/jjenkins/rtharvest/internal/model"
)

// Runs renders the harvest run history
func Runs(runs []model.HarvestRun) templ.Component {
	body := render(func(ctx context.Context, p *page) {
		if len(runs) == 0 {
			p.raw(`<p>No harvest runs recorded.</p>`)
			return
		}

		p.raw(`<table><thead><tr><th>Started</th><th>Type</th><th>As of</th><th>Overwrite</th>`)
		p.raw(`<th>Processed</th><th>Inserted</th><th>Updated</th><th>Skipped</th><th>Errored</th><th>Duration</th></tr></thead><tbody>`)
		for _, r := range runs {
			p.rawf(`<tr title="%s">`, r.ID)
			p.rawf(`<td>%s</td><td>%s</td><td>%s</td>`, r.StartedAt.Format("2006-01-02 15:04"), r.DocumentType, r.AsOfDate)
			overwrite := "no"
			if r.OverwriteText {
				overwrite = "yes"
			}
			p.rawf(`<td>%s</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td><td>%d</td>`,
				overwrite, r.Processed, r.Inserted, r.Updated, r.Skipped, r.Errored)
			duration := "running"
			if r.FinishedAt.Valid {
				duration = strings.TrimSpace(humanize.RelTime(r.StartedAt, r.FinishedAt.Time, "", ""))
			}
			p.rawf(`<td>%s</td></tr>`, duration)
		}
		p.raw(`</tbody></table>`)
	})
	return Layout("Harvest runs", body)
}
