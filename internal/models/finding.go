// Package models defines the domain types for Itinera.
package models

import "time"

// Finding is a user-recorded item of interest: a photo plus metadata,
// optionally tied to a location and a product barcode.
//
// Findings live in a single JSON document, most recent first. ID, CreatedBy,
// UserID, and CreatedAt are set at creation and never change. PhotoURL is set
// at most once, when the finding is created.
type Finding struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description,omitempty"`
	// Price is a display string ("¥1200"), never parsed as a number.
	Price    string   `json:"price,omitempty"`
	Location string   `json:"location,omitempty"`
	Lat      *float64 `json:"lat,omitempty"`
	Lng      *float64 `json:"lng,omitempty"`
	Barcode  string   `json:"barcode,omitempty"`
	// Tags preserve insertion order; duplicates are the caller's business.
	Tags      []string  `json:"tags"`
	PhotoURL  string    `json:"photoUrl,omitempty"`
	CreatedBy string    `json:"createdBy"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}
