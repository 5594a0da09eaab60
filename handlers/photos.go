// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"github.com/oklog/ulid/v2"

	"github.com/danielhkuo/rollcall/middleware"
	"github.com/danielhkuo/rollcall/models"
)

const (
	photoURLPrefix = "/uploads/voters/"
	photoMaxSide   = 600
	photoQuality   = 85
)

var (
	ErrPhotoTooLarge = fmt.Errorf("image size must not exceed %s", humanize.IBytes(models.MaxPhotoBytes))
	ErrPhotoNotImage = errors.New("please select a valid image file")
)

// PhotoStore keeps normalized voter photos on disk.
type PhotoStore struct {
	dir string
}

func NewPhotoStore(uploadDir string) *PhotoStore {
	return &PhotoStore{dir: filepath.Join(uploadDir, "voters")}
}

// Save checks the upload, fits it into a 600x600 box and stores it as JPEG.
func (s *PhotoStore) Save(r io.Reader) (models.Photo, error) {
	raw, err := io.ReadAll(io.LimitReader(r, models.MaxPhotoBytes+1))
	if err != nil {
		return models.Photo{}, fmt.Errorf("failed to read photo: %w", err)
	}
	if len(raw) > models.MaxPhotoBytes {
		return models.Photo{}, ErrPhotoTooLarge
	}

	if detected := mimetype.Detect(raw); !strings.HasPrefix(detected.String(), "image/") {
		return models.Photo{}, ErrPhotoNotImage
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return models.Photo{}, ErrPhotoNotImage
	}
	img = imaging.Fit(img, photoMaxSide, photoMaxSide, imaging.Lanczos)

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return models.Photo{}, fmt.Errorf("failed to create upload dir: %w", err)
	}

	name := strings.ToLower(ulid.Make().String()) + ".jpg"
	f, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return models.Photo{}, fmt.Errorf("failed to create photo file: %w", err)
	}
	defer f.Close()

	if err := imaging.Encode(f, img, imaging.JPEG, imaging.JPEGQuality(photoQuality)); err != nil {
		os.Remove(f.Name())
		return models.Photo{}, fmt.Errorf("failed to encode photo: %w", err)
	}

	return models.Photo{URL: photoURLPrefix + name, ContentType: "image/jpeg"}, nil
}

// Remove deletes a stored photo by its URL. Unknown URLs are ignored.
func (s *PhotoStore) Remove(url string) {
	name, ok := strings.CutPrefix(url, photoURLPrefix)
	if !ok || name == "" || name != path.Base(name) {
		return
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to remove photo", "url", url, "error", err)
	}
}

// ServePhoto handles GET /uploads/voters/{file}
func (s *PhotoStore) ServePhoto(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("file")
	if name == "" || name != path.Base(name) || strings.HasPrefix(name, ".") {
		middleware.ErrorResponse(w, http.StatusNotFound, "Photo not found")
		return
	}

	full := filepath.Join(s.dir, name)
	if _, err := os.Stat(full); err != nil {
		middleware.ErrorResponse(w, http.StatusNotFound, "Photo not found")
		return
	}

	w.Header().Set("Cache-Control", "private, max-age=86400")
	http.ServeFile(w, r, full)
}
