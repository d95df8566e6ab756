// Package artifacts manages the card and photo directories on disk.
package artifacts

import (
	"errors"
	"fmt"
	"image"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/louisbranch/cardpress/internal/platform/id"
)

const (
	photoQuality     = 90
	maxWriteAttempts = 5
)

// Dirs locates the card and photo directories.
type Dirs struct {
	Cards  string
	Photos string
	// Prepare, when set, transforms uploaded photos before they are stored.
	Prepare func(image.Image) image.Image
}

// Ensure creates both directories.
func (d Dirs) Ensure() error {
	for _, dir := range []string{d.Cards, d.Photos} {
		if strings.TrimSpace(dir) == "" {
			return errors.New("artifact directory is required")
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// SavePhoto decodes an uploaded image and stores it as a JPEG named after
// subjectID. It returns the stored path.
func (d Dirs) SavePhoto(subjectID string, r io.Reader) (string, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("decode photo: %w", err)
	}
	if d.Prepare != nil {
		img = d.Prepare(img)
	}
	if err := os.MkdirAll(d.Photos, 0o755); err != nil {
		return "", fmt.Errorf("create photo dir: %w", err)
	}

	prefix := "user_" + fileSafe(subjectID) + "_"
	for range maxWriteAttempts {
		suffix, err := id.Short(8)
		if err != nil {
			return "", err
		}
		path := filepath.Join(d.Photos, prefix+suffix+".jpg")
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create photo file: %w", err)
		}
		encodeErr := imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(photoQuality))
		if err := errors.Join(encodeErr, f.Close()); err != nil {
			_ = os.Remove(path)
			return "", fmt.Errorf("write photo: %w", err)
		}
		return path, nil
	}
	return "", fmt.Errorf("write photo: no free file name after %d attempts", maxWriteAttempts)
}

// Remove deletes path, treating a missing file as success.
func Remove(path string) error {
	if strings.TrimSpace(path) == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// CleanupResult counts files removed by Cleanup.
type CleanupResult struct {
	Cards  int
	Photos int
}

// Cleanup keeps the newest keepCards cards and keepPhotos photos.
func (d Dirs) Cleanup(keepCards, keepPhotos int) CleanupResult {
	return CleanupResult{
		Cards:  Prune(d.Cards, keepCards),
		Photos: Prune(d.Photos, keepPhotos),
	}
}

// Prune deletes all but the keep most recently modified regular files in dir
// and returns how many were removed. Individual failures are logged and
// skipped; a missing directory prunes nothing.
func Prune(dir string, keep int) int {
	if keep < 0 {
		keep = 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Printf("prune %s: %v", dir, err)
		}
		return 0
	}

	type file struct {
		path    string
		modUnix int64
	}
	files := make([]file, 0, len(entries))
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		files = append(files, file{path: filepath.Join(dir, entry.Name()), modUnix: info.ModTime().UnixNano()})
	}
	if len(files) <= keep {
		return 0
	}
	sort.Slice(files, func(i, j int) bool {
		if files[i].modUnix != files[j].modUnix {
			return files[i].modUnix > files[j].modUnix
		}
		return files[i].path > files[j].path
	})

	removed := 0
	for _, f := range files[keep:] {
		if err := os.Remove(f.path); err != nil {
			log.Printf("prune remove %s: %v", f.path, err)
			continue
		}
		removed++
	}
	return removed
}

func fileSafe(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
