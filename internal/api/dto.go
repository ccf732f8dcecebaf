package api

import (
	"github.com/finalquest/itinera/internal/kml"
	"github.com/finalquest/itinera/internal/kmlsource"
	"github.com/finalquest/itinera/internal/mapview"
	"github.com/finalquest/itinera/internal/models"
)

// LoginRequest is the request body for POST /auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the signed session token and the logged-in identity.
type LoginResponse struct {
	Token string            `json:"token"`
	User  models.PublicUser `json:"user"`
}

// CreateUserRequest is the request body for POST /users.
type CreateUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	IsAdmin  bool   `json:"isAdmin"`
}

// ItineraryListResponse wraps the available KML itineraries.
type ItineraryListResponse struct {
	Itineraries []kmlsource.ItineraryRef `json:"itineraries"`
}

// ItineraryViewResponse is the server-rendered view of one itinerary:
// the retained points, the sidebar markup, and the backend render plan.
type ItineraryViewResponse struct {
	Name     string               `json:"name"`
	Backend  string               `json:"backend"`
	Points   []kml.ItineraryPoint `json:"points"`
	ListHTML string               `json:"listHtml"`
	Plan     mapview.RenderPlan   `json:"plan"`
}

// FindingListResponse wraps the findings collection, most recent first.
type FindingListResponse struct {
	Findings []models.Finding `json:"findings"`
}

// EnrichResponse carries the merged in-memory finding and the raw lookup.
type EnrichResponse struct {
	Finding models.Finding `json:"finding"`
	Product models.Product `json:"product"`
}

// ExtractResponse is the OCR result: structured fields plus a formatted
// text block ready to paste into a description.
type ExtractResponse struct {
	Data          models.ExtractedProduct `json:"data"`
	FormattedText string                  `json:"formattedText"`
}
