package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"

	"github.com/finalquest/itinera/internal/apperr"
)

const thumbWidth = 300

// Photos stores uploaded finding photos and their thumbnails. Files are
// re-encoded as JPEG under a generated name, so client-supplied names never
// touch the file system.
type Photos struct {
	root string
}

// NewPhotos creates a photo store rooted at the given directory.
func NewPhotos(root string) *Photos {
	return &Photos{root: root}
}

// Save decodes the uploaded image, writes the full-size JPEG and a
// fixed-width thumbnail, and returns the public photo URL ("/uploads/...").
func (p *Photos) Save(r io.Reader) (string, error) {
	img, err := imaging.Decode(r)
	if err != nil {
		return "", fmt.Errorf("storage: decode image: %v: %w", err, apperr.ErrValidation)
	}

	name := uuid.NewString() + ".jpg"
	thumbDir := filepath.Join(p.root, "thumb")
	if err := os.MkdirAll(thumbDir, 0o755); err != nil {
		return "", fmt.Errorf("storage: create uploads dir: %w", err)
	}

	if err := imaging.Save(img, filepath.Join(p.root, name)); err != nil {
		return "", fmt.Errorf("storage: save photo: %w", err)
	}
	thumb := imaging.Resize(img, thumbWidth, 0, imaging.Lanczos)
	if err := imaging.Save(thumb, filepath.Join(thumbDir, name)); err != nil {
		return "", fmt.Errorf("storage: save thumbnail: %w", err)
	}

	return "/uploads/" + name, nil
}

// Delete removes the photo and its thumbnail for the given photo URL.
// Missing files are not an error; deletion is best effort by contract.
func (p *Photos) Delete(photoURL string) error {
	name, ok := p.fileName(photoURL)
	if !ok {
		return fmt.Errorf("storage: not an uploads URL: %s", photoURL)
	}
	if err := os.Remove(filepath.Join(p.root, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete photo: %w", err)
	}
	if err := os.Remove(filepath.Join(p.root, "thumb", name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("storage: delete thumbnail: %w", err)
	}
	return nil
}

// Resolve maps a requested file name to its absolute path, rejecting names
// that are not plain files under the uploads root.
func (p *Photos) Resolve(name string, thumb bool) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", fmt.Errorf("storage: invalid photo name %q: %w", name, apperr.ErrValidation)
	}
	if thumb {
		return filepath.Join(p.root, "thumb", name), nil
	}
	return filepath.Join(p.root, name), nil
}

// fileName extracts the stored file name from a public photo URL.
func (p *Photos) fileName(photoURL string) (string, bool) {
	name, ok := strings.CutPrefix(photoURL, "/uploads/")
	if !ok || name == "" || name != filepath.Base(name) {
		return "", false
	}
	return name, true
}
