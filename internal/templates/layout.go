// Package templates renders the web UI as templ components.
package templates

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

// page collects the first write error so components can render sequentially.
type page struct {
	w   io.Writer
	err error
}

func (p *page) raw(s string) {
	if p.err == nil {
		_, p.err = io.WriteString(p.w, s)
	}
}

func (p *page) text(s string) {
	p.raw(templ.EscapeString(s))
}

// rawf writes a formatted fragment. Every argument is HTML escaped.
func (p *page) rawf(format string, args ...any) {
	escaped := make([]any, len(args))
	for i, a := range args {
		escaped[i] = templ.EscapeString(fmt.Sprint(a))
	}
	p.raw(fmt.Sprintf(format, escaped...))
}

func (p *page) component(ctx context.Context, c templ.Component) {
	if p.err == nil {
		p.err = c.Render(ctx, p.w)
	}
}

func render(fn func(ctx context.Context, p *page)) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		p := &page{w: w}
		fn(ctx, p)
		return p.err
	})
}

// Layout wraps body in the shared page chrome.
func Layout(title string, body templ.Component) templ.Component {
	return render(func(ctx context.Context, p *page) {
		p.raw(`<!DOCTYPE html><html lang="et"><head><meta charset="utf-8">`)
		p.raw(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		p.rawf(`<title>%s | Riigi Teataja archive</title>`, title)
		p.raw(`<script src="https://unpkg.com/htmx.org@1.9.12"></script>`)
		p.raw(`<style>body{font-family:system-ui,sans-serif;margin:2rem auto;max-width:72rem;padding:0 1rem}`)
		p.raw(`table{border-collapse:collapse;width:100%}th,td{border-bottom:1px solid #ddd;padding:.4rem;text-align:left}`)
		p.raw(`.status{font-size:.8rem;padding:.1rem .4rem;border-radius:.3rem;background:#eee}`)
		p.raw(`.VALID{background:#d4f4dd}.EXPIRED{background:#f8d7da}.PENDING_VALIDITY{background:#fff3cd}`)
		p.raw(`pre{white-space:pre-wrap}nav a{margin-right:1rem}</style></head><body>`)
		p.raw(`<nav><a href="/">Overview</a><a href="/acts">Acts</a><a href="/runs">Harvest runs</a><a href="/metrics">Metrics</a></nav>`)
		p.rawf(`<h1>%s</h1>`, title)
		p.component(ctx, body)
		p.raw(`</body></html>`)
	})
}
