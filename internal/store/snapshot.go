package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/roach88/waypoint/internal/location"
	"github.com/roach88/waypoint/internal/sqlgen"
)

// snapshotVersion guards against decoding a future incompatible layout.
const snapshotVersion = 1

// snapshot is the serialized form of the backup entry.
type snapshot struct {
	Version int               `json:"version"`
	Records []location.Record `json:"records"`
}

// encodeSnapshot serializes the full record set for the backup entry.
func encodeSnapshot(records []location.Record) ([]byte, error) {
	data, err := json.Marshal(snapshot{Version: snapshotVersion, Records: records})
	if err != nil {
		return nil, fmt.Errorf("encode snapshot: %w", err)
	}
	return data, nil
}

// decodeSnapshot parses a backup entry back into records.
func decodeSnapshot(data []byte) ([]location.Record, error) {
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Version != snapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return snap.Records, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

// scanRecord reads one full-projection row.
func scanRecord(s rowScanner) (location.Record, error) {
	var (
		rec        location.Record
		ts         string
		imageData  sql.NullString
		confidence sql.NullFloat64
		mode       string
		source     string
		weather    sql.NullString
		nearby     sql.NullString
	)
	err := s.Scan(
		&rec.ID, &rec.Latitude, &rec.Longitude, &rec.Description, &ts,
		&imageData, &mode, &confidence, &source, &weather, &nearby,
	)
	if err != nil {
		return location.Record{}, err
	}

	rec.Timestamp, err = sqlgen.ParseTime(ts)
	if err != nil {
		return location.Record{}, err
	}
	rec.AnalysisMode = location.AnalysisMode(mode)
	rec.Source = location.Source(source)
	if imageData.Valid {
		rec.ImageData = imageData.String
	}
	if confidence.Valid {
		c := confidence.Float64
		rec.ConfidenceScore = &c
	}
	if weather.Valid {
		rec.WeatherData = json.RawMessage(weather.String)
	}
	if nearby.Valid {
		rec.NearbyPlaces = json.RawMessage(nearby.String)
	}
	return rec, nil
}

// scanSummary reads one listing-projection row.
func scanSummary(s rowScanner) (location.Summary, error) {
	var (
		sum        location.Summary
		ts         string
		confidence sql.NullFloat64
		mode       string
		source     string
	)
	err := s.Scan(
		&sum.ID, &sum.Latitude, &sum.Longitude, &sum.Description, &ts,
		&mode, &confidence, &source,
	)
	if err != nil {
		return location.Summary{}, err
	}

	sum.Timestamp, err = sqlgen.ParseTime(ts)
	if err != nil {
		return location.Summary{}, err
	}
	sum.AnalysisMode = location.AnalysisMode(mode)
	sum.Source = location.Source(source)
	if confidence.Valid {
		c := confidence.Float64
		sum.ConfidenceScore = &c
	}
	return sum, nil
}

// readAllRecords dumps every record, oldest first. Used by the volatile
// strategy to rebuild the backup entry after a mutation.
func readAllRecords(ctx context.Context, db *sql.DB) ([]location.Record, error) {
	query, params := sqlgen.SelectAll()
	rows, err := db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("read all records: %w", err)
	}
	defer rows.Close()

	records := []location.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}
