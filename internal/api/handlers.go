package api

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/finalquest/itinera/internal/apperr"
	"github.com/finalquest/itinera/internal/auth"
	"github.com/finalquest/itinera/internal/barcode"
	"github.com/finalquest/itinera/internal/findingservice"
	"github.com/finalquest/itinera/internal/itinerary"
	"github.com/finalquest/itinera/internal/kml"
	"github.com/finalquest/itinera/internal/kmlsource"
	"github.com/finalquest/itinera/internal/mapview"
	"github.com/finalquest/itinera/internal/vision"
)

const (
	kmlContentType = "application/vnd.google-earth.kml+xml"
	maxUploadBytes = 20 << 20 // 20 MB
)

// Handler holds API route handlers.
type Handler struct {
	findings  *findingservice.Service
	auth      *auth.Service
	kmls      kmlsource.Source
	looker    barcode.Looker
	extractor *vision.Extractor
	logger    *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(findings *findingservice.Service, authSvc *auth.Service, kmls kmlsource.Source, looker barcode.Looker, extractor *vision.Extractor, logger *slog.Logger) *Handler {
	return &Handler{
		findings:  findings,
		auth:      authSvc,
		kmls:      kmls,
		looker:    looker,
		extractor: extractor,
		logger:    logger,
	}
}

// writeError maps domain errors to HTTP statuses.
func (h *Handler) writeError(w http.ResponseWriter, err error, op string) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrForbidden):
		writeJSON(w, http.StatusUnauthorized, errorBody("invalid credentials"))
	case errors.Is(err, apperr.ErrFormat), errors.Is(err, apperr.ErrParse):
		writeJSON(w, http.StatusUnprocessableEntity, errorBody(err.Error()))
	case errors.Is(err, apperr.ErrTransport):
		writeJSON(w, http.StatusBadGateway, errorBody("upstream service unavailable"))
	default:
		h.logger.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// Login handles POST /auth/login.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	token, user, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		h.writeError(w, err, "login")
		return
	}
	writeJSON(w, http.StatusOK, LoginResponse{Token: token, User: user})
}

// Me handles GET /auth/me, returning the verified identity.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	c := auth.FromContext(r.Context())
	if c == nil {
		writeJSON(w, http.StatusUnauthorized, errorBody("not authenticated"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"username": c.Username,
		"userId":   c.UserID,
		"isAdmin":  c.IsAdmin,
	})
}

// ListUsers handles GET /users.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.auth.ListUsers()
	if err != nil {
		h.writeError(w, err, "list users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"users": users})
}

// CreateUser handles POST /users.
func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid request body"))
		return
	}
	user, err := h.auth.Register(req.Username, req.Password, req.IsAdmin)
	if err != nil {
		h.writeError(w, err, "create user")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// DeleteUser handles DELETE /users/{id}. Admin accounts cannot be deleted.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	users, err := h.auth.ListUsers()
	if err != nil {
		h.writeError(w, err, "delete user")
		return
	}
	for _, u := range users {
		if u.ID == id && u.IsAdmin {
			writeJSON(w, http.StatusForbidden, errorBody("admin account cannot be deleted"))
			return
		}
	}
	if err := h.auth.DeleteUser(id); err != nil {
		h.writeError(w, err, "delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListItineraries handles GET /kmls.
func (h *Handler) ListItineraries(w http.ResponseWriter, r *http.Request) {
	refs, err := h.kmls.List(r.Context())
	if err != nil {
		h.writeError(w, err, "list itineraries")
		return
	}
	writeJSON(w, http.StatusOK, ItineraryListResponse{Itineraries: refs})
}

// GetItinerary handles GET /kml/{name}, proxying the raw document.
func (h *Handler) GetItinerary(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := h.kmls.Fetch(r.Context(), name)
	if err != nil {
		h.writeError(w, err, "fetch itinerary")
		return
	}
	w.Header().Set("Content-Type", kmlContentType)
	_, _ = w.Write(data)
}

// ViewItinerary handles GET /kml/{name}/view?backend=google|leaflet.
//
// The whole pipeline runs server-side: fetch, parse, extract the retained
// point set, build the sidebar list, and synchronize a fresh backend to get
// the render plan. Either the full set renders or the request fails.
func (h *Handler) ViewItinerary(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	data, err := h.kmls.Fetch(r.Context(), name)
	if err != nil {
		h.writeError(w, err, "fetch itinerary")
		return
	}
	doc, err := kml.Parse(data)
	if err != nil {
		h.writeError(w, err, "parse itinerary")
		return
	}
	points := kml.ExtractPoints(doc)
	list := itinerary.Build(points)

	backend := mapview.ForName(r.URL.Query().Get("backend"))
	mapview.NewSynchronizer(backend).Sync(points)
	plan := backend.Plan()

	writeJSON(w, http.StatusOK, ItineraryViewResponse{
		Name:     name,
		Backend:  plan.Backend,
		Points:   points,
		ListHTML: list.HTML(),
		Plan:     plan,
	})
}

// LookupBarcode handles GET /lookup-barcode?code=.
func (h *Handler) LookupBarcode(w http.ResponseWriter, r *http.Request) {
	code := strings.TrimSpace(r.URL.Query().Get("code"))
	if code == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("code is required"))
		return
	}
	product, err := h.looker.Lookup(r.Context(), code)
	if err != nil {
		h.writeError(w, err, "lookup barcode")
		return
	}
	writeJSON(w, http.StatusOK, product)
}

// ListFindings handles GET /findings.
func (h *Handler) ListFindings(w http.ResponseWriter, r *http.Request) {
	findings, err := h.findings.List(r.Context())
	if err != nil {
		h.writeError(w, err, "list findings")
		return
	}
	writeJSON(w, http.StatusOK, FindingListResponse{Findings: findings})
}

// CreateFinding handles POST /findings (multipart/form-data, photo field).
func (h *Handler) CreateFinding(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid multipart form"))
		return
	}

	in := findingservice.CreateInput{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Price:       r.FormValue("price"),
		Location:    r.FormValue("location"),
		Barcode:     r.FormValue("barcode"),
		Lat:         parseCoord(r.FormValue("lat")),
		Lng:         parseCoord(r.FormValue("lng")),
		Tags:        splitTags(r.FormValue("tags")),
	}

	if file, _, err := r.FormFile("photo"); err == nil {
		defer file.Close()
		in.Photo = file
	}

	claims := auth.FromContext(r.Context())
	finding, err := h.findings.Create(r.Context(), in, claims.Username, claims.UserID)
	if err != nil {
		h.writeError(w, err, "create finding")
		return
	}
	writeJSON(w, http.StatusCreated, finding)
}

// DeleteFinding handles DELETE /findings/{id}.
func (h *Handler) DeleteFinding(w http.ResponseWriter, r *http.Request) {
	if err := h.findings.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err, "delete finding")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SearchFindings handles GET /findings/search?q=&limit=.
func (h *Handler) SearchFindings(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("q is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	findings, err := h.findings.Search(r.Context(), q, limit)
	if err != nil {
		h.writeError(w, err, "search findings")
		return
	}
	writeJSON(w, http.StatusOK, FindingListResponse{Findings: findings})
}

// EnrichFinding handles POST /findings/{id}/enrich. The stored record is
// left untouched; the caller decides whether to re-save.
func (h *Handler) EnrichFinding(w http.ResponseWriter, r *http.Request) {
	finding, product, err := h.findings.Enrich(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err, "enrich finding")
		return
	}
	writeJSON(w, http.StatusOK, EnrichResponse{Finding: finding, Product: product})
}

// ExtractText handles POST /extract-text (multipart image, in-memory only).
func (h *Handler) ExtractText(w http.ResponseWriter, r *http.Request) {
	if !h.extractor.Enabled() {
		writeJSON(w, http.StatusServiceUnavailable, errorBody("vision extraction not configured"))
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'image' field in multipart form"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("failed to read image"))
		return
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	extracted, err := h.extractor.Extract(r.Context(), data, mimeType)
	if err != nil {
		h.writeError(w, err, "extract text")
		return
	}
	writeJSON(w, http.StatusOK, ExtractResponse{
		Data:          extracted,
		FormattedText: vision.FormatExtracted(extracted),
	})
}

func parseCoord(s string) *float64 {
	if s == "" {
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}

// splitTags splits a comma-separated tag field, dropping empties.
func splitTags(s string) []string {
	out := []string{}
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
