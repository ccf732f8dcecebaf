package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/jpeg"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/finalquest/itinera/internal/auth"
	"github.com/finalquest/itinera/internal/findingservice"
	"github.com/finalquest/itinera/internal/kmlsource"
	"github.com/finalquest/itinera/internal/models"
	"github.com/finalquest/itinera/internal/testutil"
	"github.com/finalquest/itinera/internal/vision"
)

const testKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <Placemark>
      <name>Senso-ji</name>
      <address>2 Chome-3-1 Asakusa, Taito City</address>
      <Point><coordinates>139.7967,35.7148,0</coordinates></Point>
    </Placemark>
    <Placemark>
      <Point><coordinates>139.7016,35.6595</coordinates></Point>
    </Placemark>
  </Document>
</kml>`

// fakeSource serves itineraries from a map.
type fakeSource struct {
	docs map[string]string
}

func (s *fakeSource) List(context.Context) ([]kmlsource.ItineraryRef, error) {
	var out []kmlsource.ItineraryRef
	for name := range s.docs {
		out = append(out, kmlsource.ItineraryRef{Name: name})
	}
	return out, nil
}

func (s *fakeSource) Fetch(_ context.Context, name string) ([]byte, error) {
	doc, ok := s.docs[name]
	if !ok {
		return nil, fmt.Errorf("fetch %q: %w", name, os.ErrNotExist)
	}
	return []byte(doc), nil
}

type fakeLooker struct {
	product models.Product
	err     error
}

func (l *fakeLooker) Lookup(context.Context, string) (models.Product, error) {
	return l.product, l.err
}

type testEnv struct {
	router http.Handler
	token  string
	looker *fakeLooker
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := testutil.TestStore(t)
	db := testutil.TestDB(t)

	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	authSvc := auth.New(store.Users, "test-secret", 0, logger)
	if err := authSvc.EnsureAdmin("admin", "changeme"); err != nil {
		t.Fatal(err)
	}

	looker := &fakeLooker{}
	findings := findingservice.New(store, db, nil, looker, logger)
	source := &fakeSource{docs: map[string]string{"tokio-dia-1.kml": testKML}}
	extractor := vision.NewExtractor("", "", "")

	h := NewHandler(findings, authSvc, source, looker, extractor, logger)
	router := NewRouter(h, authSvc, store.Photos, nil)

	token, _, err := authSvc.Login("admin", "changeme")
	if err != nil {
		t.Fatal(err)
	}
	return &testEnv{router: router, token: token, looker: looker}
}

func (e *testEnv) do(t *testing.T, method, target string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Authorization", "Bearer "+e.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func multipartFinding(t *testing.T, fields map[string]string, withPhoto bool) (io.Reader, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	if withPhoto {
		part, err := mw.CreateFormFile("photo", "photo.jpg")
		if err != nil {
			t.Fatal(err)
		}
		if err := jpeg.Encode(part, image.NewRGBA(image.Rect(0, 0, 400, 300)), nil); err != nil {
			t.Fatal(err)
		}
	}
	mw.Close()
	return &buf, mw.FormDataContentType()
}

func TestLoginAndMe(t *testing.T) {
	env := newTestEnv(t)

	body, _ := json.Marshal(LoginRequest{Username: "admin", Password: "changeme"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, body = %s", w.Code, w.Body.String())
	}
	var resp LoginResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	if resp.Token == "" || resp.User.Username != "admin" {
		t.Fatalf("login response = %+v", resp)
	}

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+resp.Token)
	w = httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"username":"admin"`) {
		t.Errorf("me status = %d, body = %s", w.Code, w.Body.String())
	}
}

func TestLoginRejected(t *testing.T) {
	env := newTestEnv(t)
	body, _ := json.Marshal(LoginRequest{Username: "admin", Password: "wrong"})
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body))
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/findings", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestFindingLifecycle(t *testing.T) {
	env := newTestEnv(t)

	body, ct := multipartFinding(t, map[string]string{
		"title":    "Taza Totoro",
		"price":    "1200 yen",
		"location": "Kiddy Land",
		"tags":     "regalo, ghibli",
	}, true)
	w := env.do(t, http.MethodPost, "/findings", body, ct)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created models.Finding
	_ = json.Unmarshal(w.Body.Bytes(), &created)
	if created.CreatedBy != "admin" || len(created.Tags) != 2 {
		t.Errorf("created = %+v", created)
	}
	if !strings.HasPrefix(created.PhotoURL, "/uploads/") {
		t.Fatalf("photo url = %q", created.PhotoURL)
	}

	// The photo and its thumbnail are served without auth.
	name := strings.TrimPrefix(created.PhotoURL, "/uploads/")
	for _, target := range []string{"/uploads/" + name, "/uploads/thumb/" + name} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		rec := httptest.NewRecorder()
		env.router.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d", target, rec.Code)
		}
	}

	// List shows the new finding first.
	w = env.do(t, http.MethodGet, "/findings", nil, "")
	var list FindingListResponse
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Findings) != 1 || list.Findings[0].ID != created.ID {
		t.Errorf("list = %+v", list)
	}

	// Search through the index.
	w = env.do(t, http.MethodGet, "/findings/search?q=Totoro", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("search status = %d", w.Code)
	}
	_ = json.Unmarshal(w.Body.Bytes(), &list)
	if len(list.Findings) != 1 {
		t.Errorf("search hits = %d, want 1", len(list.Findings))
	}

	// Delete and verify 404 on repeat.
	w = env.do(t, http.MethodDelete, "/findings/"+created.ID, nil, "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = env.do(t, http.MethodDelete, "/findings/"+created.ID, nil, "")
	if w.Code != http.StatusNotFound {
		t.Errorf("second delete status = %d, want 404", w.Code)
	}
}

func TestCreateFindingRequiresTitle(t *testing.T) {
	env := newTestEnv(t)
	body, ct := multipartFinding(t, map[string]string{"description": "sin titulo"}, false)
	w := env.do(t, http.MethodPost, "/findings", body, ct)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestItineraryView(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/kmls", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "tokio-dia-1.kml") {
		t.Fatalf("kmls status = %d, body = %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/kml/tokio-dia-1.kml", nil, "")
	if ct := w.Header().Get("Content-Type"); ct != kmlContentType {
		t.Errorf("content type = %q", ct)
	}

	w = env.do(t, http.MethodGet, "/kml/tokio-dia-1.kml/view?backend=leaflet", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("view status = %d, body = %s", w.Code, w.Body.String())
	}
	var view ItineraryViewResponse
	_ = json.Unmarshal(w.Body.Bytes(), &view)
	if view.Backend != "leaflet" || len(view.Points) != 2 {
		t.Errorf("view = %+v", view)
	}
	if view.Points[0].Name != "Senso-ji" || view.Points[1].Name != "Punto 2" {
		t.Errorf("points = %+v", view.Points)
	}
	if !strings.Contains(view.ListHTML, "Puntos en el itinerario (2)") {
		t.Errorf("list html = %q", view.ListHTML)
	}
	if len(view.Plan.Leaflet) != 2 || view.Plan.Fit == nil {
		t.Errorf("plan = %+v", view.Plan)
	}
}

func TestLookupBarcodeEndpoint(t *testing.T) {
	env := newTestEnv(t)
	env.looker.product = models.Product{Barcode: "779", Name: "Yerba", Found: true}

	w := env.do(t, http.MethodGet, "/lookup-barcode?code=779", nil, "")
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"Yerba"`) {
		t.Errorf("status = %d, body = %s", w.Code, w.Body.String())
	}

	w = env.do(t, http.MethodGet, "/lookup-barcode", nil, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("missing code status = %d, want 400", w.Code)
	}
}

func TestExtractTextUnconfigured(t *testing.T) {
	env := newTestEnv(t)
	body, ct := multipartFinding(t, nil, false)
	w := env.do(t, http.MethodPost, "/extract-text", body, ct)
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

func TestUserManagement(t *testing.T) {
	env := newTestEnv(t)

	body, _ := json.Marshal(CreateUserRequest{Username: "ana", Password: "hunter2"})
	w := env.do(t, http.MethodPost, "/users", bytes.NewReader(body), "application/json")
	if w.Code != http.StatusCreated {
		t.Fatalf("create user status = %d, body = %s", w.Code, w.Body.String())
	}
	var created models.PublicUser
	_ = json.Unmarshal(w.Body.Bytes(), &created)

	// Non-admin tokens cannot manage users.
	anaEnv := *env
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(`{"username":"ana","password":"hunter2"}`))
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, req)
	var login LoginResponse
	_ = json.Unmarshal(rec.Body.Bytes(), &login)
	anaEnv.token = login.Token

	w = anaEnv.do(t, http.MethodDelete, "/users/"+created.ID, nil, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("non-admin delete status = %d, want 403", w.Code)
	}

	// Admin accounts cannot be deleted at all.
	users := listUsers(t, env)
	var adminID string
	for _, u := range users {
		if u.Username == "admin" {
			adminID = u.ID
		}
	}
	w = env.do(t, http.MethodDelete, "/users/"+adminID, nil, "")
	if w.Code != http.StatusForbidden {
		t.Errorf("delete admin status = %d, want 403", w.Code)
	}

	w = env.do(t, http.MethodDelete, "/users/"+created.ID, nil, "")
	if w.Code != http.StatusNoContent {
		t.Errorf("delete user status = %d", w.Code)
	}
}

func listUsers(t *testing.T, env *testEnv) []models.PublicUser {
	t.Helper()
	w := env.do(t, http.MethodGet, "/users", nil, "")
	if w.Code != http.StatusOK {
		t.Fatalf("list users status = %d", w.Code)
	}
	var resp struct {
		Users []models.PublicUser `json:"users"`
	}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return resp.Users
}

func TestUploadsRejectTraversal(t *testing.T) {
	env := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/uploads/..%2F..%2Fetc%2Fpasswd", nil)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)
	if w.Code == http.StatusOK {
		t.Errorf("traversal served, status = %d", w.Code)
	}
}
