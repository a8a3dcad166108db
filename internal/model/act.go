package model

import (
	"database/sql"
	"time"
)

// Status is the derived validity of an act on a given day.
type Status string

const (
	StatusValid           Status = "VALID"
	StatusExpired         Status = "EXPIRED"
	StatusPendingValidity Status = "PENDING_VALIDITY"
	StatusUnknown         Status = "UNKNOWN"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusValid, StatusPendingValidity, StatusExpired, StatusUnknown}

// Act is a persisted legal act
type Act struct {
	UniqueID           string         `db:"unique_id"`
	FullTextID         sql.NullInt64  `db:"full_text_id"`
	Title              string         `db:"title"`
	DocumentType       string         `db:"document_type"`
	TextPlain          sql.NullString `db:"text_plain"`
	TextMarkup         sql.NullString `db:"text_markup"`
	PublicationDate    sql.NullString `db:"publication_date"`
	EntryIntoForceDate sql.NullString `db:"entry_into_force_date"`
	RepealDate         sql.NullString `db:"repeal_date"`
	Status             Status         `db:"status"`
	SourceURL          sql.NullString `db:"source_url"`
	RawMetadata        string         `db:"raw_metadata"`
	RetrievedAt        time.Time      `db:"retrieved_at"`
	LastCheckedAt      time.Time      `db:"last_checked_at"`
}

// ActSummary is the list view of an act, without the large text columns
type ActSummary struct {
	UniqueID           string         `db:"unique_id"`
	Title              string         `db:"title"`
	DocumentType       string         `db:"document_type"`
	EntryIntoForceDate sql.NullString `db:"entry_into_force_date"`
	RepealDate         sql.NullString `db:"repeal_date"`
	Status             Status         `db:"status"`
	PlainLength        int64          `db:"plain_length"`
	MarkupLength       int64          `db:"markup_length"`
	LastCheckedAt      time.Time      `db:"last_checked_at"`
}

// HarvestRun records one invocation of the harvest command
type HarvestRun struct {
	ID            string       `db:"id"`
	DocumentType  string       `db:"document_type"`
	AsOfDate      string       `db:"as_of_date"`
	OverwriteText bool         `db:"overwrite_text"`
	Processed     int          `db:"processed"`
	Inserted      int          `db:"inserted"`
	Updated       int          `db:"updated"`
	Skipped       int          `db:"skipped"`
	Errored       int          `db:"errored"`
	StartedAt     time.Time    `db:"started_at"`
	FinishedAt    sql.NullTime `db:"finished_at"`
}

// NullString wraps s as a valid sql.NullString, or an invalid one when s is empty.
func NullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// NullText wraps an optional text value.
func NullText(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
