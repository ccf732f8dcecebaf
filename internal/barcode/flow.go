// Package barcode implements the scan-and-enrich flow: acquire the camera,
// decode a product code, look it up in the external catalog, and prefill a
// finding draft. The camera is the one exclusively-owned resource in the
// application and must be released on every exit path.
package barcode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/finalquest/itinera/internal/apperr"
	"github.com/finalquest/itinera/internal/models"
)

// State is a position in the enrichment flow.
type State string

const (
	StateIdle          State = "idle"
	StateScanning      State = "scanning"
	StateManualEntry   State = "manual-entry"
	StateDetected      State = "detected"
	StateLookedUp      State = "looked-up"
	StateLookupFailed  State = "lookup-failed"
	StateFormPrefilled State = "form-prefilled"
)

// Subscription is a running camera/decoder session. Stop releases the
// camera; it must be safe to call more than once.
type Subscription interface {
	Stop()
}

// Camera acquires a camera stream and starts decoding. Detected codes are
// delivered to onDetect, potentially several times in one frame batch and
// from decoder goroutines.
type Camera interface {
	Start(ctx context.Context, onDetect func(code string)) (Subscription, error)
}

// Looker resolves a product code against an external catalog. A miss is a
// normal result (Found=false), not an error.
type Looker interface {
	Lookup(ctx context.Context, code string) (models.Product, error)
}

// FormDraft is the in-memory finding draft a lookup prefills. It mutates no
// persisted record; the user decides whether to save it.
type FormDraft struct {
	Barcode     string `json:"barcode"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	PhotoURL    string `json:"photoUrl,omitempty"`
	// Found reports whether the catalog knew the code; false means the
	// user fills the form manually.
	Found bool `json:"found"`
}

// Flow drives one scan-and-enrich pass. Methods are safe for concurrent use;
// bursty decoder callbacks act at most once per scan.
type Flow struct {
	camera Camera
	lookup Looker
	logger *slog.Logger

	mu    sync.Mutex
	state State
	sub   Subscription
	draft FormDraft

	// detected latches the first decoder callback of the current scan.
	detected atomic.Bool
}

// NewFlow creates an idle flow.
func NewFlow(camera Camera, lookup Looker, logger *slog.Logger) *Flow {
	if logger == nil {
		logger = slog.Default()
	}
	return &Flow{camera: camera, lookup: lookup, logger: logger, state: StateIdle}
}

// State returns the current flow state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Draft returns the current form draft.
func (f *Flow) Draft() FormDraft {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draft
}

// StartScan acquires the camera and begins decoding. Any previous session is
// released first, so at most one stream exists. When camera access fails the
// flow degrades to manual entry instead of failing; the returned state tells
// the caller which surface to show.
func (f *Flow) StartScan(ctx context.Context) State {
	f.release()
	f.detected.Store(false)

	sub, err := f.camera.Start(ctx, func(code string) {
		f.handleDetection(ctx, code)
	})
	if err != nil {
		f.logger.Warn("camera unavailable, falling back to manual entry",
			slog.String("error", err.Error()))
		f.setState(StateManualEntry)
		return StateManualEntry
	}

	f.mu.Lock()
	f.sub = sub
	f.state = StateScanning
	f.mu.Unlock()
	return StateScanning
}

// SubmitManual feeds a manually typed code into the flow. Valid from manual
// entry or while a scan is still running (the scan is stopped first).
func (f *Flow) SubmitManual(ctx context.Context, code string) error {
	if code == "" {
		return fmt.Errorf("barcode: empty code: %w", apperr.ErrValidation)
	}
	f.handleDetection(ctx, code)
	return nil
}

// Cancel aborts the flow from any state: the camera is released, transient
// draft state is cleared, and the flow returns to idle.
func (f *Flow) Cancel() {
	f.release()
	f.mu.Lock()
	f.state = StateIdle
	f.draft = FormDraft{}
	f.mu.Unlock()
}

// handleDetection is the single entry point for decoded codes, whether from
// the camera or manual entry. The first call of a scan wins: the latch flips
// before the camera is stopped and before the code is acted on, so further
// decoder callbacks in the same burst are ignored.
func (f *Flow) handleDetection(ctx context.Context, code string) {
	if !f.detected.CompareAndSwap(false, true) {
		return
	}

	f.mu.Lock()
	sub := f.sub
	f.sub = nil
	f.state = StateDetected
	f.mu.Unlock()
	if sub != nil {
		sub.Stop()
	}

	f.lookupAndPrefill(ctx, code)
}

// lookupAndPrefill resolves the code and fills the draft. Lookup failures of
// any kind still land on a usable prefilled form; the user is never blocked
// from proceeding manually.
func (f *Flow) lookupAndPrefill(ctx context.Context, code string) {
	product, err := f.lookup.Lookup(ctx, code)
	switch {
	case err != nil && errors.Is(err, apperr.ErrTransport):
		// Logged distinctly from a plain miss, same outcome for the user.
		f.logger.Error("barcode lookup transport failure",
			slog.String("code", code), slog.String("error", err.Error()))
		f.setState(StateLookupFailed)
	case err != nil:
		f.logger.Warn("barcode lookup failed",
			slog.String("code", code), slog.String("error", err.Error()))
		f.setState(StateLookupFailed)
	case !product.Found:
		f.setState(StateLookupFailed)
	default:
		f.setState(StateLookedUp)
	}

	f.mu.Lock()
	f.draft = FormDraft{
		Barcode:     code,
		Title:       product.Name,
		Description: product.Description,
		PhotoURL:    product.Image,
		Found:       product.Found,
	}
	f.state = StateFormPrefilled
	f.mu.Unlock()
}

// release stops the current subscription, if any.
func (f *Flow) release() {
	f.mu.Lock()
	sub := f.sub
	f.sub = nil
	f.mu.Unlock()
	if sub != nil {
		sub.Stop()
	}
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}
