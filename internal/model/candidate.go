package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// FlexID decodes an identifier the API sends either as a JSON string or a number.
type FlexID string

// UnmarshalJSON accepts "123", 123 and null.
func (f *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*f = FlexID(n.String())
	return nil
}

// Validity is the grouped validity interval of an act.
type Validity struct {
	Start string `json:"algus"`
	End   string `json:"lopp"`
}

// Candidate is one act as returned by a search page, before persistence.
type Candidate struct {
	GlobalID   FlexID    `json:"globaalID"`
	LegacyID   FlexID    `json:"id"`
	FullTextID FlexID    `json:"terviktekstID"`
	Title      string    `json:"pealkiri"`
	Kind       string    `json:"liik"`
	Published  string    `json:"avaldamiseKuupaev"`
	Validity   *Validity `json:"kehtivus"`

	// Flat date fields used by older API revisions.
	LegacyEntryIntoForce string `json:"joustumiseKuupaev"`
	LegacyRepeal         string `json:"kehtivuseLoppKp"`

	TextURL   string `json:"dokumentTekst"`
	HTMLURL   string `json:"dokumentHtml"`
	MarkupURL string `json:"dokumentXML"`
	LegacyURL string `json:"url"`

	// Raw holds the item exactly as received.
	Raw json.RawMessage `json:"-"`
}

// DecodeCandidate parses one page item and keeps its raw bytes.
func DecodeCandidate(raw json.RawMessage) (Candidate, error) {
	var c Candidate
	if err := json.Unmarshal(raw, &c); err != nil {
		return Candidate{}, fmt.Errorf("failed to decode act: %w", err)
	}
	c.Raw = append(json.RawMessage(nil), raw...)
	return c, nil
}

// UniqueID returns the identity key of the act.
func (c Candidate) UniqueID() string {
	if c.GlobalID != "" {
		return string(c.GlobalID)
	}
	return string(c.LegacyID)
}

// FullTextIDValue returns the text revision id, if the API sent a numeric one.
func (c Candidate) FullTextIDValue() (int64, bool) {
	if c.FullTextID == "" {
		return 0, false
	}
	n, err := strconv.ParseInt(string(c.FullTextID), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

// EntryIntoForceDate returns kehtivus.algus, falling back to the flat field.
func (c Candidate) EntryIntoForceDate() string {
	if c.Validity != nil && c.Validity.Start != "" {
		return c.Validity.Start
	}
	return c.LegacyEntryIntoForce
}

// RepealDate returns kehtivus.lopp, falling back to the flat field.
func (c Candidate) RepealDate() string {
	if c.Validity != nil && c.Validity.End != "" {
		return c.Validity.End
	}
	return c.LegacyRepeal
}

// MarkupLocation returns the XML location, falling back to the generic url field.
func (c Candidate) MarkupLocation() string {
	if c.MarkupURL != "" {
		return c.MarkupURL
	}
	return c.LegacyURL
}

// DisplayTitle returns the title or a placeholder for logging.
func (c Candidate) DisplayTitle() string {
	if c.Title == "" {
		return "untitled"
	}
	return c.Title
}
