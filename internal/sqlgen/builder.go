// Package sqlgen builds the schema DDL and every statement the store
// executes against the embedded engine.
//
// CRITICAL: all record-derived values are parameterized, never interpolated.
// Builders return (sql, params, error) tuples; the only text assembled into
// a statement is fixed query structure. CheckText is the safety boundary
// for values SQLite TEXT binding cannot carry faithfully.
package sqlgen

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/roach88/waypoint/internal/location"
)

// TableName is the single table holding detection records.
const TableName = "location_history"

// TimeFormat is the stored timestamp layout: fixed-width UTC so that
// lexicographic ordering on the column equals chronological ordering.
// RFC 3339 with trimmed fractional zeros does NOT sort correctly.
const TimeFormat = "2006-01-02 15:04:05.000000000"

// SchemaDDL creates the table and its query-path indexes. Idempotent.
const SchemaDDL = `
CREATE TABLE IF NOT EXISTS location_history (
    id               TEXT PRIMARY KEY,
    latitude         REAL NOT NULL,
    longitude        REAL NOT NULL,
    description      TEXT NOT NULL,
    timestamp        TEXT NOT NULL,
    image_data       TEXT,
    analysis_mode    TEXT NOT NULL CHECK (analysis_mode IN ('basic','function','grounding','image-search')),
    confidence_score REAL CHECK (confidence_score BETWEEN 0 AND 1),
    source           TEXT NOT NULL CHECK (source IN ('camera','upload')),
    weather_data     TEXT,
    nearby_places    TEXT
);

CREATE INDEX IF NOT EXISTS idx_location_history_timestamp
    ON location_history(timestamp DESC);

CREATE INDEX IF NOT EXISTS idx_location_history_coords
    ON location_history(latitude, longitude);

CREATE INDEX IF NOT EXISTS idx_location_history_source
    ON location_history(source);
`

// summaryColumns is the listing projection: everything except the large
// payload columns.
const summaryColumns = "id, latitude, longitude, description, timestamp, analysis_mode, confidence_score, source"

// recordColumns is the full projection, in insert order.
const recordColumns = "id, latitude, longitude, description, timestamp, image_data, analysis_mode, confidence_score, source, weather_data, nearby_places"

// UnsafeTextError reports a value that cannot be bound as SQLite TEXT
// without corruption. The value is rejected outright, never truncated.
type UnsafeTextError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *UnsafeTextError) Error() string {
	return fmt.Sprintf("unsafe text in %s: %s", e.Field, e.Reason)
}

// CheckText rejects values the TEXT binding cannot represent faithfully:
// embedded NUL bytes (silently truncate the bound value at the C layer)
// and invalid UTF-8 (round-trips undefined). Everything else — quotes,
// backslashes, JSON-looking text, arbitrary Unicode — is safe under
// parameter binding and passes untouched.
func CheckText(field, s string) error {
	if strings.IndexByte(s, 0x00) >= 0 {
		return &UnsafeTextError{Field: field, Reason: "contains NUL byte"}
	}
	if !utf8.ValidString(s) {
		return &UnsafeTextError{Field: field, Reason: "not valid UTF-8"}
	}
	return nil
}

// checkRecordText runs CheckText over every caller-controlled text field.
func checkRecordText(rec location.Record) error {
	checks := []struct {
		field string
		value string
	}{
		{"id", rec.ID},
		{"description", rec.Description},
		{"image_data", rec.ImageData},
		{"weather_data", string(rec.WeatherData)},
		{"nearby_places", string(rec.NearbyPlaces)},
	}
	for _, c := range checks {
		if err := CheckText(c.field, c.value); err != nil {
			return err
		}
	}
	return nil
}

// FormatTime renders a timestamp in the stored layout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime parses a stored timestamp back into UTC time.
func ParseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeFormat, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse stored timestamp %q: %w", s, err)
	}
	return t, nil
}

// Insert builds the INSERT for one record. There is no upsert variant:
// records are append-only and a duplicate id must surface as a conflict.
func Insert(rec location.Record) (string, []any, error) {
	if err := checkRecordText(rec); err != nil {
		return "", nil, err
	}

	sql := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, TableName, recordColumns)
	params := []any{
		rec.ID,
		rec.Latitude,
		rec.Longitude,
		rec.Description,
		FormatTime(rec.Timestamp),
		nullableText(rec.ImageData),
		string(rec.AnalysisMode),
		nullableFloat(rec.ConfidenceScore),
		string(rec.Source),
		nullableText(string(rec.WeatherData)),
		nullableText(string(rec.NearbyPlaces)),
	}
	return sql, params, nil
}

// SelectByID builds the full-record lookup for one id.
func SelectByID(id string) (string, []any, error) {
	if err := CheckText("id", id); err != nil {
		return "", nil, err
	}
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE id = ?`, recordColumns, TableName)
	return sql, []any{id}, nil
}

// SelectSummaries builds the listing query: newest first, bounded.
func SelectSummaries(limit int) (string, []any) {
	sql := fmt.Sprintf(`SELECT %s FROM %s ORDER BY timestamp DESC, id ASC LIMIT ?`, summaryColumns, TableName)
	return sql, []any{limit}
}

// SelectAll builds the full-record dump used for snapshot rebuilds.
// Ordered ascending so replay reinserts in original chronological order.
func SelectAll() (string, []any) {
	sql := fmt.Sprintf(`SELECT %s FROM %s ORDER BY timestamp ASC, id ASC`, recordColumns, TableName)
	return sql, nil
}

// SearchByDescription builds the case-insensitive substring search.
//
// SQLite's lower() folds ASCII only, so the term is folded the same way
// on the Go side; folding the term with full Unicode rules would make
// matching asymmetric with the stored column.
func SearchByDescription(term string, limit int) (string, []any, error) {
	if err := CheckText("term", term); err != nil {
		return "", nil, err
	}
	pattern := "%" + escapeLike(asciiLower(term)) + "%"
	sql := fmt.Sprintf(`SELECT %s FROM %s WHERE lower(description) LIKE ? ESCAPE '\' ORDER BY timestamp DESC, id ASC LIMIT ?`, summaryColumns, TableName)
	return sql, []any{pattern, limit}, nil
}

// DeleteByID builds the single-record delete.
func DeleteByID(id string) (string, []any, error) {
	if err := CheckText("id", id); err != nil {
		return "", nil, err
	}
	return fmt.Sprintf(`DELETE FROM %s WHERE id = ?`, TableName), []any{id}, nil
}

// DeleteAll builds the full clear.
func DeleteAll() (string, []any) {
	return fmt.Sprintf(`DELETE FROM %s`, TableName), nil
}

// CountBySource builds the per-source aggregation.
func CountBySource() (string, []any) {
	return fmt.Sprintf(`SELECT source, COUNT(*) FROM %s GROUP BY source`, TableName), nil
}

// CountSince builds the recent-records count for timestamps at or after
// the cutoff.
func CountSince(cutoff time.Time) (string, []any) {
	sql := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE timestamp >= ?`, TableName)
	return sql, []any{FormatTime(cutoff)}
}

// escapeLike escapes LIKE wildcards in a user term so they match
// literally. Backslash is the declared ESCAPE character.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// asciiLower folds A-Z only, mirroring SQLite's lower().
func asciiLower(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' {
			return r + ('a' - 'A')
		}
		return r
	}, s)
}

// nullableText maps "" to NULL for optional text columns.
func nullableText(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// nullableFloat maps an absent score to NULL.
func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
