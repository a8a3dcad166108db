package service

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jjenkins/rtharvest/internal/logger"
	"github.com/jjenkins/rtharvest/internal/model"
)

// Element names of the Riigi Teataja act schema.
const (
	elemActName   = "aktinimi"
	elemName      = "nimi"
	elemTitle     = "pealkiri"
	elemBody      = "sisu"
	elemSection   = "paragrahv"
	elemNumber    = "kuvatavNr"
	elemClause    = "loige"
	elemClauseTxt = "sisuTekst"
)

// Extractor turns act XML into plain text
type Extractor struct {
	log logger.Logger
}

// NewExtractor creates a new Extractor
func NewExtractor(log logger.Logger) *Extractor {
	return &Extractor{log: log}
}

// Extract renders markup as plain text. Blank input yields "". Markup that
// cannot be parsed also yields "" and is logged as a data quality warning.
func (e *Extractor) Extract(markup string) string {
	if strings.TrimSpace(markup) == "" {
		return ""
	}

	doc, err := e.Parse(markup)
	if err != nil {
		e.log.Warn("Unparseable act markup", logger.Error(err))
		return ""
	}
	return doc.PlainText()
}

// Parse decodes markup into a Document. Every lookup uses the namespace of
// the root element.
func (e *Extractor) Parse(markup string) (*model.Document, error) {
	root, err := parseTree(markup)
	if err != nil {
		return nil, err
	}

	ns := root.name.Space
	doc := &model.Document{}

	if title := root.findPath(ns, elemActName, elemName, elemTitle); title != nil {
		doc.Title = strings.TrimSpace(title.text())
	}

	for _, sec := range root.findAllPath(ns, elemBody, elemSection) {
		section := model.Section{}
		if num := sec.child(ns, elemNumber); num != nil {
			section.Number = strings.TrimSpace(num.text())
		}
		for _, cl := range sec.children(ns, elemClause) {
			body := cl.child(ns, elemClauseTxt)
			if body == nil {
				continue
			}
			if frags := body.fragments(); len(frags) > 0 {
				section.Clauses = append(section.Clauses, model.Clause{Fragments: frags})
			}
		}
		if section.Number != "" || len(section.Clauses) > 0 {
			doc.Sections = append(doc.Sections, section)
		}
	}

	return doc, nil
}

// node is a parsed XML element. content holds string and *node items in
// document order, with adjacent character data merged.
type node struct {
	name    xml.Name
	content []any
}

func (n *node) appendText(s string) {
	if last := len(n.content) - 1; last >= 0 {
		if prev, ok := n.content[last].(string); ok {
			n.content[last] = prev + s
			return
		}
	}
	n.content = append(n.content, s)
}

// text returns the character data before the first child element.
func (n *node) text() string {
	if len(n.content) > 0 {
		if s, ok := n.content[0].(string); ok {
			return s
		}
	}
	return ""
}

// fragments returns every non-blank text run under n, trimmed, in document order.
func (n *node) fragments() []string {
	var out []string
	var walk func(*node)
	walk = func(cur *node) {
		for _, item := range cur.content {
			switch v := item.(type) {
			case string:
				if t := strings.TrimSpace(v); t != "" {
					out = append(out, t)
				}
			case *node:
				walk(v)
			}
		}
	}
	walk(n)
	return out
}

func (n *node) is(ns, local string) bool {
	return n.name.Space == ns && n.name.Local == local
}

func (n *node) children(ns, local string) []*node {
	var out []*node
	for _, item := range n.content {
		if c, ok := item.(*node); ok && c.is(ns, local) {
			out = append(out, c)
		}
	}
	return out
}

func (n *node) child(ns, local string) *node {
	for _, item := range n.content {
		if c, ok := item.(*node); ok && c.is(ns, local) {
			return c
		}
	}
	return nil
}

// descendants returns every element below n in document order, excluding n.
func (n *node) descendants() []*node {
	var out []*node
	var walk func(*node)
	walk = func(cur *node) {
		for _, item := range cur.content {
			if c, ok := item.(*node); ok {
				out = append(out, c)
				walk(c)
			}
		}
	}
	walk(n)
	return out
}

// findAllPath matches the path .//first/rest... below n.
func (n *node) findAllPath(ns string, first string, rest ...string) []*node {
	var matches []*node
	for _, d := range n.descendants() {
		if d.is(ns, first) {
			matches = append(matches, d)
		}
	}
	for _, local := range rest {
		var next []*node
		for _, m := range matches {
			next = append(next, m.children(ns, local)...)
		}
		matches = next
	}
	return matches
}

func (n *node) findPath(ns string, first string, rest ...string) *node {
	if all := n.findAllPath(ns, first, rest...); len(all) > 0 {
		return all[0]
	}
	return nil
}

// parseTree builds the element tree of markup. Unclosed elements, a missing
// root element and content after the root element are errors.
func parseTree(markup string) (*node, error) {
	decoder := xml.NewDecoder(strings.NewReader(markup))
	// The markup is already UTF-8; declared encodings are informational.
	decoder.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}

	var (
		root  *node
		stack []*node
	)
	for {
		token, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse markup: %w", err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			n := &node{name: t.Name}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("failed to parse markup: content after root element <%s>", root.name.Local)
				}
				root = n
			} else {
				parent := stack[len(stack)-1]
				parent.content = append(parent.content, n)
			}
			stack = append(stack, n)

		case xml.EndElement:
			stack = stack[:len(stack)-1]

		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].appendText(string(t))
			} else if strings.TrimSpace(string(t)) != "" {
				return nil, errors.New("failed to parse markup: text outside root element")
			}
		}
	}

	if root == nil {
		return nil, errors.New("failed to parse markup: no root element")
	}
	if len(stack) > 0 {
		return nil, fmt.Errorf("failed to parse markup: unclosed element <%s>", stack[len(stack)-1].name.Local)
	}
	return root, nil
}
