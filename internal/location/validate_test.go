package location

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() Record {
	conf := 0.9
	return Record{
		ID:              "v-1",
		Latitude:        51.500729,
		Longitude:       -0.124625,
		Description:     "Westminster Bridge, London",
		Timestamp:       time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC),
		AnalysisMode:    ModeImageSearch,
		ConfidenceScore: &conf,
		Source:          SourceUpload,
	}
}

func TestValidate_AcceptsValidRecord(t *testing.T) {
	assert.Empty(t, Validate(validRecord()))
}

func TestValidate_AcceptsBoundaryCoordinates(t *testing.T) {
	for _, c := range []struct{ lat, lon float64 }{
		{90, 180},
		{-90, -180},
		{0, 0},
	} {
		rec := validRecord()
		rec.Latitude = c.lat
		rec.Longitude = c.lon
		assert.Empty(t, Validate(rec), "lat=%v lon=%v", c.lat, c.lon)
	}
}

func TestValidate_FieldFailures(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Record)
		wantCode string
	}{
		{"empty id", func(r *Record) { r.ID = "" }, ErrIDRequired},
		{"latitude high", func(r *Record) { r.Latitude = 90.01 }, ErrLatitudeRange},
		{"latitude low", func(r *Record) { r.Latitude = -91 }, ErrLatitudeRange},
		{"longitude high", func(r *Record) { r.Longitude = 180.5 }, ErrLongitudeRange},
		{"longitude low", func(r *Record) { r.Longitude = -180.5 }, ErrLongitudeRange},
		{"unknown mode", func(r *Record) { r.AnalysisMode = "vibes" }, ErrModeUnknown},
		{"unknown source", func(r *Record) { r.Source = "satellite" }, ErrSourceUnknown},
		{"confidence high", func(r *Record) { c := 1.01; r.ConfidenceScore = &c }, ErrConfidenceRange},
		{"confidence negative", func(r *Record) { c := -0.2; r.ConfidenceScore = &c }, ErrConfidenceRange},
		{"zero timestamp", func(r *Record) { r.Timestamp = time.Time{} }, ErrTimestampZero},
		{"bad weather json", func(r *Record) { r.WeatherData = json.RawMessage("{oops") }, ErrPayloadNotJSON},
		{"bad places json", func(r *Record) { r.NearbyPlaces = json.RawMessage("[1,") }, ErrPayloadNotJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)
			errs := Validate(rec)
			require.NotEmpty(t, errs)
			codes := make([]string, len(errs))
			for i, e := range errs {
				codes[i] = e.Code
			}
			assert.Contains(t, codes, tt.wantCode)
		})
	}
}

func TestValidate_NilConfidenceIsAllowed(t *testing.T) {
	rec := validRecord()
	rec.ConfidenceScore = nil
	assert.Empty(t, Validate(rec))
}

func TestValidate_CollectsMultipleFailures(t *testing.T) {
	rec := validRecord()
	rec.Latitude = 200
	rec.Longitude = -300
	rec.Timestamp = time.Time{}

	errs := Validate(rec)
	assert.GreaterOrEqual(t, len(errs), 3)
	assert.NotEmpty(t, errs.Error())
}

func TestValidationError_Format(t *testing.T) {
	err := ValidationError{Field: "latitude", Message: "out of range", Code: ErrLatitudeRange}
	assert.Equal(t, "[V102] latitude: out of range", err.Error())
}
