package templates

import (
	"context"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"
	"github.com/jjenkins/rtharvest/internal/model"
)

// HomeMetrics holds the overview figures
type HomeMetrics struct {
	HasData    bool
	TotalActs  int
	WithPlain  int
	WithMarkup int
	ByStatus   map[model.Status]int
	LastRun    *model.HarvestRun
	Stored     map[string]string
}

// Home renders the archive overview
func Home(m HomeMetrics) templ.Component {
	body := render(func(ctx context.Context, p *page) {
		if !m.HasData {
			p.raw(`<p>No acts have been harvested yet. Run <code>rtharvest harvest</code> to fetch some.</p>`)
			return
		}

		p.raw(`<table><tbody>`)
		p.rawf(`<tr><th>Acts</th><td>%s</td></tr>`, humanize.Comma(int64(m.TotalActs)))
		p.rawf(`<tr><th>With plain text</th><td>%s</td></tr>`, humanize.Comma(int64(m.WithPlain)))
		p.rawf(`<tr><th>With markup</th><td>%s</td></tr>`, humanize.Comma(int64(m.WithMarkup)))
		for _, st := range model.Statuses {
			p.rawf(`<tr><th><a href="/acts?status=%s">%s</a></th><td>%s</td></tr>`,
				st, st, humanize.Comma(int64(m.ByStatus[st])))
		}
		p.raw(`</tbody></table>`)

		if m.LastRun != nil {
			p.raw(`<h2>Last harvest</h2><p>`)
			p.rawf(`Started %s for <strong>%s</strong>: `, humanize.Time(m.LastRun.StartedAt), m.LastRun.DocumentType)
			p.rawf(`%d processed, %d inserted, %d updated, %d skipped, %d errored.`,
				m.LastRun.Processed, m.LastRun.Inserted, m.LastRun.Updated, m.LastRun.Skipped, m.LastRun.Errored)
			p.raw(`</p>`)
		}
	})
	return Layout("Overview", body)
}
