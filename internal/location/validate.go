package location

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
)

//go:embed schema.cue
var schemaCUE string

// Validation error codes (V100-V199)
const (
	ErrConstraint       = "V100" // generic schema constraint violation
	ErrIDRequired       = "V101" // id is required and must be non-empty
	ErrLatitudeRange    = "V102" // latitude outside [-90, 90]
	ErrLongitudeRange   = "V103" // longitude outside [-180, 180]
	ErrModeUnknown      = "V104" // analysis mode not in the closed enumeration
	ErrConfidenceRange  = "V105" // confidence score outside [0, 1]
	ErrSourceUnknown    = "V106" // source not in the closed enumeration
	ErrTimestampZero    = "V107" // timestamp is unset
	ErrPayloadNotJSON   = "V108" // enrichment payload is not well-formed JSON
)

// fieldCodes maps a schema field path to its validation error code.
var fieldCodes = map[string]string{
	"id":              ErrIDRequired,
	"latitude":        ErrLatitudeRange,
	"longitude":       ErrLongitudeRange,
	"analysisMode":    ErrModeUnknown,
	"confidenceScore": ErrConfidenceRange,
	"source":          ErrSourceUnknown,
}

// ValidationError describes one boundary-validation failure.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Errors aggregates every failure found for one record.
type Errors []ValidationError

// Error implements the error interface.
func (e Errors) Error() string {
	msgs := make([]string, len(e))
	for i, v := range e {
		msgs[i] = v.Error()
	}
	return strings.Join(msgs, "; ")
}

var (
	schemaOnce sync.Once
	schemaCtx  *cue.Context
	schemaVal  cue.Value
)

// recordSchema compiles the embedded CUE schema once per process.
// cue.Context and cue.Value are safe for concurrent use.
func recordSchema() cue.Value {
	schemaOnce.Do(func() {
		schemaCtx = cuecontext.New()
		schemaVal = schemaCtx.CompileString(schemaCUE).LookupPath(cue.ParsePath("#Record"))
	})
	return schemaVal
}

// Validate checks a record against the boundary constraints: coordinate
// bounds, enum membership, confidence range, a set timestamp, and
// well-formed enrichment payloads. Returns all failures found, not just
// the first. A nil/empty result means the record is acceptable.
func Validate(r Record) Errors {
	var errs Errors

	doc := map[string]any{
		"id":           r.ID,
		"latitude":     r.Latitude,
		"longitude":    r.Longitude,
		"analysisMode": string(r.AnalysisMode),
		"source":       string(r.Source),
	}
	if r.ConfidenceScore != nil {
		doc["confidenceScore"] = *r.ConfidenceScore
	}

	schema := recordSchema()
	unified := schema.Unify(schemaCtx.Encode(doc))
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		for _, e := range cueerrors.Errors(err) {
			field := strings.Join(e.Path(), ".")
			code, ok := fieldCodes[field]
			if !ok {
				code = ErrConstraint
			}
			errs = append(errs, ValidationError{
				Field:   field,
				Message: trimPositions(e.Error()),
				Code:    code,
			})
		}
	}

	if r.Timestamp.IsZero() {
		errs = append(errs, ValidationError{
			Field:   "timestamp",
			Message: "timestamp is required",
			Code:    ErrTimestampZero,
		})
	}
	if len(r.WeatherData) > 0 && !json.Valid(r.WeatherData) {
		errs = append(errs, ValidationError{
			Field:   "weatherData",
			Message: "payload is not well-formed JSON",
			Code:    ErrPayloadNotJSON,
		})
	}
	if len(r.NearbyPlaces) > 0 && !json.Valid(r.NearbyPlaces) {
		errs = append(errs, ValidationError{
			Field:   "nearbyPlaces",
			Message: "payload is not well-formed JSON",
			Code:    ErrPayloadNotJSON,
		})
	}

	return errs
}

// trimPositions drops the CUE source-position suffix so messages stay
// stable across schema edits.
func trimPositions(msg string) string {
	if i := strings.Index(msg, " (and "); i >= 0 {
		return msg[:i]
	}
	return msg
}
