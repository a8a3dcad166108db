package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCandidate(t *testing.T) {
	raw := json.RawMessage(`{
		"globaalID": 12345,
		"terviktekstID": 67890,
		"pealkiri": "Test Act",
		"kehtivus": {"algus": "2020-01-01", "lopp": "2022-01-01"},
		"avaldamiseKuupaev": "2019-06-15",
		"dokumentHtml": "/akt/12345",
		"url": "/akt/12345.xml",
		"liik": "seadus"
	}`)

	c, err := DecodeCandidate(raw)
	require.NoError(t, err)

	assert.Equal(t, "12345", c.UniqueID())
	id, ok := c.FullTextIDValue()
	assert.True(t, ok)
	assert.Equal(t, int64(67890), id)
	assert.Equal(t, "Test Act", c.Title)
	assert.Equal(t, "seadus", c.Kind)
	assert.Equal(t, "2019-06-15", c.Published)
	assert.Equal(t, "2020-01-01", c.EntryIntoForceDate())
	assert.Equal(t, "2022-01-01", c.RepealDate())
	assert.Equal(t, "/akt/12345.xml", c.MarkupLocation())
	assert.JSONEq(t, string(raw), string(c.Raw))
}

func TestDecodeCandidateLegacyFields(t *testing.T) {
	c, err := DecodeCandidate(json.RawMessage(`{
		"id": "abc-1",
		"joustumiseKuupaev": "2021-03-01",
		"kehtivuseLoppKp": "2030-01-01",
		"dokumentXML": "/akt/abc-1/xml",
		"url": "/ignored.xml"
	}`))
	require.NoError(t, err)

	assert.Equal(t, "abc-1", c.UniqueID())
	_, ok := c.FullTextIDValue()
	assert.False(t, ok)
	assert.Equal(t, "2021-03-01", c.EntryIntoForceDate())
	assert.Equal(t, "2030-01-01", c.RepealDate())
	assert.Equal(t, "/akt/abc-1/xml", c.MarkupLocation())
	assert.Equal(t, "untitled", c.DisplayTitle())
}

func TestDecodeCandidateNullValidity(t *testing.T) {
	c, err := DecodeCandidate(json.RawMessage(`{"globaalID": "7", "kehtivus": null}`))
	require.NoError(t, err)
	assert.Equal(t, "", c.EntryIntoForceDate())
	assert.Equal(t, "", c.RepealDate())
}

func TestDecodeCandidateRejectsBadID(t *testing.T) {
	_, err := DecodeCandidate(json.RawMessage(`{"globaalID": true}`))
	assert.Error(t, err)
}
