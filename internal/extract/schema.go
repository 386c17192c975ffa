// Package extract implements the structured-extraction pipeline: identity
// resolution, the extraction-model collaborator, and strict schema
// normalization of its untyped output.
package extract

import (
	"encoding/json"
	"time"
)

// Listing is the validated, typed record derived from one detail record.
// A Listing is only ever constructed through Normalize; a record that cannot
// produce a post id is never built at all.
type Listing struct {
	PostID       string         `json:"post_id"`
	URL          string         `json:"url,omitempty"`
	Title        string         `json:"title,omitempty"`
	Price        *int           `json:"price,omitempty"`
	Year         *int           `json:"year,omitempty"`
	Make         string         `json:"make,omitempty"`
	Model        string         `json:"model,omitempty"`
	Trim         string         `json:"trim,omitempty"`
	Mileage      *int           `json:"mileage,omitempty"`
	VIN          string         `json:"vin,omitempty"`
	Color        string         `json:"color,omitempty"`
	Transmission string         `json:"transmission,omitempty"`
	Condition    string         `json:"condition,omitempty"`
	Location     string         `json:"location,omitempty"`
	PostedISO    string         `json:"posted_iso,omitempty"`
	Body         string         `json:"body,omitempty"`
	Attrs        map[string]any `json:"attrs_json,omitempty"`
	RunID        string         `json:"run_id,omitempty"`
	ScrapedAt    time.Time      `json:"scraped_at,omitzero"`
}

// Transmissions is the closed set of accepted transmission values, in
// canonical casing.
var Transmissions = []string{"Automatic", "Manual", "CVT", "Other", "Unknown"}

// SchemaDescriptor is the constrained JSON schema handed to the extraction
// model. The model's output is never trusted to conform; Normalize is the
// sole gate between it and a Listing.
func SchemaDescriptor() json.RawMessage {
	return json.RawMessage(`{
  "type": "object",
  "properties": {
    "post_id": {"type": "string"},
    "url": {"type": ["string", "null"]},
    "title": {"type": ["string", "null"]},
    "price": {"type": ["integer", "null"]},
    "year": {"type": ["integer", "null"]},
    "make": {"type": ["string", "null"]},
    "model": {"type": ["string", "null"]},
    "trim": {"type": ["string", "null"]},
    "mileage": {"type": ["integer", "null"]},
    "vin": {"type": ["string", "null"]},
    "color": {"type": ["string", "null"]},
    "transmission": {"type": ["string", "null"]},
    "condition": {"type": ["string", "null"]},
    "location": {"type": ["string", "null"]},
    "posted_iso": {"type": ["string", "null"]},
    "body": {"type": ["string", "null"]},
    "attrs_json": {"type": ["object", "null"]}
  },
  "required": ["post_id"]
}`)
}
