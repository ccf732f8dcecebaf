// Package findingservice coordinates the findings collection, photo store,
// search index, and event broker.
package findingservice

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/finalquest/itinera/internal/apperr"
	"github.com/finalquest/itinera/internal/barcode"
	"github.com/finalquest/itinera/internal/index"
	"github.com/finalquest/itinera/internal/models"
	"github.com/finalquest/itinera/internal/sse"
	"github.com/finalquest/itinera/internal/storage"
)

// CreateInput carries the form fields of a new finding. Photo is optional.
type CreateInput struct {
	Title       string
	Description string
	Price       string
	Location    string
	Lat         *float64
	Lng         *float64
	Barcode     string
	Tags        []string
	Photo       io.Reader
}

// Service owns finding lifecycle operations.
type Service struct {
	store  *storage.Store
	db     index.FindingIndex
	broker *sse.Broker
	looker barcode.Looker
	logger *slog.Logger
}

// New creates a finding service. broker and looker may be nil in tests.
func New(store *storage.Store, db index.FindingIndex, broker *sse.Broker, looker barcode.Looker, logger *slog.Logger) *Service {
	return &Service{store: store, db: db, broker: broker, looker: looker, logger: logger}
}

// Create validates the input, stores the photo if present, and prepends the
// new finding to the collection. The collection file is rewritten whole.
func (s *Service) Create(_ context.Context, in CreateInput, createdBy, userID string) (models.Finding, error) {
	if in.Title == "" {
		return models.Finding{}, fmt.Errorf("findingservice: create: title required: %w", apperr.ErrValidation)
	}

	f := models.Finding{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Price:       in.Price,
		Location:    in.Location,
		Lat:         in.Lat,
		Lng:         in.Lng,
		Barcode:     in.Barcode,
		Tags:        in.Tags,
		CreatedBy:   createdBy,
		UserID:      userID,
		CreatedAt:   time.Now().UTC(),
	}
	if f.Tags == nil {
		f.Tags = []string{}
	}

	if in.Photo != nil {
		url, err := s.store.Photos.Save(in.Photo)
		if err != nil {
			return models.Finding{}, err
		}
		f.PhotoURL = url
	}

	findings, err := s.store.Findings.Load()
	if err != nil {
		return models.Finding{}, err
	}
	findings = append([]models.Finding{f}, findings...)
	if err := s.store.Findings.Save(findings); err != nil {
		return models.Finding{}, err
	}

	if err := s.db.UpsertFinding(f); err != nil {
		s.logger.Warn("findingservice: index upsert failed", slog.String("id", f.ID), slog.String("error", err.Error()))
	}
	if s.broker != nil {
		s.broker.PublishFindingEvent("created", f.ID)
	}
	s.logger.Info("findingservice: created", slog.String("id", f.ID), slog.String("title", f.Title))
	return f, nil
}

// List returns the collection in stored order, most recent first.
func (s *Service) List(_ context.Context) ([]models.Finding, error) {
	return s.store.Findings.Load()
}

// Get returns a single finding by id.
func (s *Service) Get(_ context.Context, id string) (models.Finding, error) {
	findings, err := s.store.Findings.Load()
	if err != nil {
		return models.Finding{}, err
	}
	for _, f := range findings {
		if f.ID == id {
			return f, nil
		}
	}
	return models.Finding{}, fmt.Errorf("findingservice: get %q: %w", id, apperr.ErrNotFound)
}

// Delete removes a finding by id. Its photo file is removed best effort.
func (s *Service) Delete(_ context.Context, id string) error {
	findings, err := s.store.Findings.Load()
	if err != nil {
		return err
	}

	idx := -1
	for i, f := range findings {
		if f.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("findingservice: delete %q: %w", id, apperr.ErrNotFound)
	}

	removed := findings[idx]
	findings = append(findings[:idx], findings[idx+1:]...)
	if err := s.store.Findings.Save(findings); err != nil {
		return err
	}

	if removed.PhotoURL != "" {
		if err := s.store.Photos.Delete(removed.PhotoURL); err != nil {
			s.logger.Warn("findingservice: photo delete failed",
				slog.String("id", id), slog.String("photo", removed.PhotoURL), slog.String("error", err.Error()))
		}
	}
	if err := s.db.DeleteFinding(id); err != nil {
		s.logger.Warn("findingservice: index delete failed", slog.String("id", id), slog.String("error", err.Error()))
	}
	if s.broker != nil {
		s.broker.PublishFindingEvent("deleted", id)
	}
	s.logger.Info("findingservice: deleted", slog.String("id", id))
	return nil
}

// Search delegates full-text search to the index and resolves the hits back
// to full findings from the collection.
func (s *Service) Search(_ context.Context, query string, limit int) ([]models.Finding, error) {
	results, err := s.db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	findings, err := s.store.Findings.Load()
	if err != nil {
		return nil, err
	}
	byID := make(map[string]models.Finding, len(findings))
	for _, f := range findings {
		byID[f.ID] = f
	}
	out := make([]models.Finding, 0, len(results))
	for _, r := range results {
		if f, ok := byID[r.ID]; ok {
			out = append(out, f)
		}
	}
	return out, nil
}

// Enrich re-runs the barcode lookup for a stored finding and merges the
// product data into a copy. The collection on disk is not touched; the user
// decides whether to save the refreshed record.
func (s *Service) Enrich(ctx context.Context, id string) (models.Finding, models.Product, error) {
	f, err := s.Get(ctx, id)
	if err != nil {
		return models.Finding{}, models.Product{}, err
	}
	if f.Barcode == "" {
		return models.Finding{}, models.Product{}, fmt.Errorf("findingservice: enrich %q: no barcode: %w", id, apperr.ErrValidation)
	}

	product, err := s.looker.Lookup(ctx, f.Barcode)
	if err != nil {
		return models.Finding{}, models.Product{}, err
	}
	if product.Found {
		if f.Title == "" {
			f.Title = product.Name
		}
		if f.Description == "" {
			f.Description = product.Description
		}
		if f.PhotoURL == "" {
			f.PhotoURL = product.Image
		}
	}
	return f, product, nil
}
