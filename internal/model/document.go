package model

import "strings"

// Document is the typed form of an act's XML body.
type Document struct {
	Title    string
	Sections []Section
}

// Section is a numbered paragraph ("paragrahv") of an act.
type Section struct {
	Number  string
	Clauses []Clause
}

// Clause is a subsection ("lõige") holding free-form text fragments.
type Clause struct {
	Fragments []string
}

// Text joins the clause fragments with single spaces.
func (c Clause) Text() string {
	return strings.Join(c.Fragments, " ")
}

// Text renders the section as its number followed by its non-empty clauses.
func (s Section) Text() string {
	parts := make([]string, 0, len(s.Clauses)+1)
	if s.Number != "" {
		parts = append(parts, s.Number)
	}
	for _, c := range s.Clauses {
		if t := c.Text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

// PlainText renders the title and sections separated by blank lines.
func (d *Document) PlainText() string {
	var sections []string
	for _, s := range d.Sections {
		if t := s.Text(); t != "" {
			sections = append(sections, t)
		}
	}

	body := strings.Join(sections, "\n\n")
	switch {
	case d.Title == "":
		return body
	case body == "":
		return d.Title
	default:
		return d.Title + "\n\n" + body
	}
}
