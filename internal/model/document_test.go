package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocumentPlainText(t *testing.T) {
	tests := []struct {
		name string
		doc  Document
		want string
	}{
		{
			name: "title and sections",
			doc: Document{
				Title: "Seadus",
				Sections: []Section{
					{Number: "§ 1.", Clauses: []Clause{{Fragments: []string{"Esimene", "lõige."}}}},
					{Number: "§ 2.", Clauses: []Clause{{Fragments: []string{"Teine."}}, {Fragments: []string{"Kolmas."}}}},
				},
			},
			want: "Seadus\n\n§ 1. Esimene lõige.\n\n§ 2. Teine. Kolmas.",
		},
		{
			name: "empty clauses and sections are omitted",
			doc: Document{
				Title: "T",
				Sections: []Section{
					{Number: "", Clauses: []Clause{{}}},
					{Number: "§ 3.", Clauses: []Clause{{}, {Fragments: []string{"x"}}}},
				},
			},
			want: "T\n\n§ 3. x",
		},
		{
			name: "no title",
			doc:  Document{Sections: []Section{{Number: "§ 1.", Clauses: []Clause{{Fragments: []string{"a"}}}}}},
			want: "§ 1. a",
		},
		{
			name: "title only",
			doc:  Document{Title: "Only"},
			want: "Only",
		},
		{
			name: "section without number keeps text",
			doc:  Document{Sections: []Section{{Clauses: []Clause{{Fragments: []string{"bare"}}}}}},
			want: "bare",
		},
		{
			name: "empty",
			doc:  Document{},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.doc.PlainText())
		})
	}
}
