package assets

import (
	"bytes"
	"context"
	"image"
	"io"

	"github.com/disintegration/imaging"

	"github.com/ManuelReschke/BlockFox/internal/pkg/apperr"
)

type Kind string

const (
	KindLogo    Kind = "logo"
	KindFavicon Kind = "favicon"
)

// MaxUploadBytes bounds the size of an uploaded source image.
const MaxUploadBytes = 5 << 20

var bounds = map[Kind]int{
	KindLogo:    512,
	KindFavicon: 64,
}

// ParseKind validates an asset kind coming from a request.
func ParseKind(s string) (Kind, bool) {
	k := Kind(s)
	_, ok := bounds[k]
	return k, ok
}

// Store persists processed assets and returns their public URL.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}

// Uploader turns uploaded images into branding assets.
type Uploader struct {
	store  Store
	config *Config
}

func NewUploader(store Store, cfg *Config) *Uploader {
	return &Uploader{store: store, config: cfg}
}

// Upload resizes the image to fit the bounds of its kind, encodes it as PNG
// and stores it under the explorer's prefix.
func (u *Uploader) Upload(ctx context.Context, explorerID uint, kind Kind, r io.Reader) (string, error) {
	const op = "assets.Upload"
	if u == nil || u.store == nil {
		return "", apperr.New(apperr.KindInternal, op, "Asset storage is not configured.")
	}
	data, err := Resize(kind, io.LimitReader(r, MaxUploadBytes+1))
	if err != nil {
		return "", err
	}
	url, err := u.store.Put(ctx, u.config.ObjectKey(explorerID, kind), data, "image/png")
	if err != nil {
		return "", apperr.Internal(op, err)
	}
	return url, nil
}

// Resize decodes an image, fits it into the square bound of the kind while
// keeping its aspect ratio and encodes the result as PNG. Images already
// inside the bound are not upscaled.
func Resize(kind Kind, r io.Reader) ([]byte, error) {
	const op = "assets.Resize"
	size, ok := bounds[kind]
	if !ok {
		return nil, apperr.InvalidInput(op, "Unknown asset kind.")
	}

	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, apperr.Internal(op, err)
	}
	if len(raw) > MaxUploadBytes {
		return nil, apperr.InvalidInput(op, "Image is too large.")
	}

	img, err := imaging.Decode(bytes.NewReader(raw), imaging.AutoOrientation(true))
	if err != nil {
		return nil, apperr.InvalidInput(op, "Unsupported image.")
	}

	var out image.Image = img
	if b := img.Bounds(); b.Dx() > size || b.Dy() > size {
		out = imaging.Fit(img, size, size, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.PNG); err != nil {
		return nil, apperr.Internal(op, err)
	}
	return buf.Bytes(), nil
}
