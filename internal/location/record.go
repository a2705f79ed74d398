package location

import (
	"encoding/json"
	"time"
)

// AnalysisMode identifies which analysis pipeline produced a detection.
type AnalysisMode string

const (
	ModeBasic       AnalysisMode = "basic"
	ModeFunction    AnalysisMode = "function"
	ModeGrounding   AnalysisMode = "grounding"
	ModeImageSearch AnalysisMode = "image-search"
)

// Modes lists every valid analysis mode, in declaration order.
var Modes = []AnalysisMode{ModeBasic, ModeFunction, ModeGrounding, ModeImageSearch}

// Source identifies how the analyzed image entered the pipeline.
type Source string

const (
	SourceCamera Source = "camera"
	SourceUpload Source = "upload"
)

// Sources lists every valid source, in declaration order.
var Sources = []Source{SourceCamera, SourceUpload}

// Record is a single geolocation detection event.
//
// Records follow an append/delete-only lifecycle: once written, a record is
// never updated in place. ID and Timestamp are immutable; ID is the primary
// key and Timestamp is the primary ordering key for all listings.
//
// WeatherData and NearbyPlaces are opaque enrichment payloads. The store
// persists them verbatim and never inspects their contents beyond checking
// that they are well-formed JSON.
type Record struct {
	ID              string          `json:"id"`
	Latitude        float64         `json:"latitude"`
	Longitude       float64         `json:"longitude"`
	Description     string          `json:"description"`
	Timestamp       time.Time       `json:"timestamp"`
	ImageData       string          `json:"image_data,omitempty"`
	AnalysisMode    AnalysisMode    `json:"analysis_mode"`
	ConfidenceScore *float64        `json:"confidence_score,omitempty"`
	Source          Source          `json:"source"`
	WeatherData     json.RawMessage `json:"weather_data,omitempty"`
	NearbyPlaces    json.RawMessage `json:"nearby_places,omitempty"`
}

// Summary is the listing projection of a Record. It carries everything
// except the large payload fields (ImageData and the enrichment JSON), so
// list responses stay small even when records hold encoded imagery.
type Summary struct {
	ID              string       `json:"id"`
	Latitude        float64      `json:"latitude"`
	Longitude       float64      `json:"longitude"`
	Description     string       `json:"description"`
	Timestamp       time.Time    `json:"timestamp"`
	AnalysisMode    AnalysisMode `json:"analysis_mode"`
	ConfidenceScore *float64     `json:"confidence_score,omitempty"`
	Source          Source       `json:"source"`
}

// Statistics summarizes the stored record set.
type Statistics struct {
	TotalLocations int            `json:"total_locations"`
	BySource       map[Source]int `json:"by_source"`
	LastSevenDays  int            `json:"last_seven_days"`
}
