package templates

import (
	"context"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
	"github.com/dustin/go-humanize"
	"github.com/jjenkins/rtharvest/internal/model"
)

// ActsView describes the current listing state
type ActsView struct {
	Status model.Status
	SortBy string
	Order  string
	Page   int
	Total  int
	Limit  int
}

func (v ActsView) query(sortBy, order string, page int) string {
	q := url.Values{}
	if v.Status != "" {
		q.Set("status", string(v.Status))
	}
	q.Set("sort", sortBy)
	q.Set("order", order)
	q.Set("page", strconv.Itoa(page))
	return "/acts?" + q.Encode()
}

// Acts renders the act listing page
func Acts(acts []model.ActSummary, v ActsView) templ.Component {
	body := render(func(ctx context.Context, p *page) {
		p.raw(`<form method="get" action="/acts"><label>Status <select name="status" onchange="this.form.submit()">`)
		p.raw(`<option value="">all</option>`)
		for _, st := range model.Statuses {
			selected := ""
			if st == v.Status {
				selected = " selected"
			}
			p.rawf(`<option value="%s"`+selected+`>%s</option>`, st, st)
		}
		p.raw(`</select></label></form>`)

		p.rawf(`<p>%s acts</p>`, humanize.Comma(int64(v.Total)))
		p.raw(`<table><thead><tr>`)
		for _, col := range []struct{ key, label string }{
			{"id", "ID"}, {"title", "Title"}, {"status", "Status"}, {"entry", "In force"},
			{"repeal", "Repealed"}, {"plain_length", "Text"}, {"checked", "Checked"},
		} {
			order := "asc"
			if v.SortBy == col.key && v.Order == "asc" {
				order = "desc"
			}
			p.rawf(`<th><a hx-get="%s" hx-target="#acts-body" href="%s">%s</a></th>`,
				v.query(col.key, order, 1), v.query(col.key, order, 1), col.label)
		}
		p.raw(`</tr></thead>`)
		p.component(ctx, ActsTableBody(acts))
		p.raw(`</table>`)

		if v.Page > 1 {
			p.rawf(`<a href="%s">Previous</a> `, v.query(v.SortBy, v.Order, v.Page-1))
		}
		if v.Page*v.Limit < v.Total {
			p.rawf(`<a href="%s">Next</a>`, v.query(v.SortBy, v.Order, v.Page+1))
		}
	})
	return Layout("Acts", body)
}

// ActsTableBody renders the rows of the act listing
func ActsTableBody(acts []model.ActSummary) templ.Component {
	return render(func(ctx context.Context, p *page) {
		p.raw(`<tbody id="acts-body">`)
		for _, a := range acts {
			p.raw(`<tr>`)
			p.rawf(`<td><a href="/acts/%s">%s</a></td>`, url.PathEscape(a.UniqueID), a.UniqueID)
			p.rawf(`<td>%s</td>`, a.Title)
			p.rawf(`<td><span class="status %s">%s</span></td>`, a.Status, a.Status)
			p.rawf(`<td>%s</td><td>%s</td>`, a.EntryIntoForceDate.String, a.RepealDate.String)
			p.rawf(`<td>%s</td>`, textSize(a.PlainLength))
			p.rawf(`<td>%s</td>`, humanize.Time(a.LastCheckedAt))
			p.raw(`</tr>`)
		}
		if len(acts) == 0 {
			p.raw(`<tr><td colspan="7">No acts.</td></tr>`)
		}
		p.raw(`</tbody>`)
	})
}

// ActDetail renders one act with its texts
func ActDetail(a *model.Act) templ.Component {
	body := render(func(ctx context.Context, p *page) {
		p.raw(`<table><tbody>`)
		row := func(label, value string) {
			if value != "" {
				p.rawf(`<tr><th>%s</th><td>%s</td></tr>`, label, value)
			}
		}
		row("ID", a.UniqueID)
		if a.FullTextID.Valid {
			row("Full text ID", strconv.FormatInt(a.FullTextID.Int64, 10))
		}
		row("Type", a.DocumentType)
		p.rawf(`<tr><th>Status</th><td><span class="status %s">%s</span></td></tr>`, a.Status, a.Status)
		row("Published", a.PublicationDate.String)
		row("In force", a.EntryIntoForceDate.String)
		row("Repealed", a.RepealDate.String)
		row("Retrieved", a.RetrievedAt.Format("2006-01-02 15:04"))
		row("Last checked", a.LastCheckedAt.Format("2006-01-02 15:04"))
		if a.SourceURL.Valid {
			p.rawf(`<tr><th>Source</th><td><a href="%s">%s</a></td></tr>`, templ.URL(a.SourceURL.String), a.SourceURL.String)
		}
		p.raw(`</tbody></table>`)

		if a.TextPlain.Valid {
			p.rawf(`<h2>Text (%s)</h2>`, textSize(int64(len(a.TextPlain.String))))
			p.rawf(`<pre>%s</pre>`, a.TextPlain.String)
		} else {
			p.raw(`<p>No plain text stored.</p>`)
		}
		if a.TextMarkup.Valid {
			p.rawf(`<details><summary>Markup (%s)</summary><pre>%s</pre></details>`,
				textSize(int64(len(a.TextMarkup.String))), a.TextMarkup.String)
		}
	})

	title := a.Title
	if title == "" {
		title = a.UniqueID
	}
	return Layout(title, body)
}

func textSize(n int64) string {
	if n <= 0 {
		return "-"
	}
	return humanize.Bytes(uint64(n))
}
