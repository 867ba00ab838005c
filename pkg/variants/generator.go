// Package variants derives the resized thumbnail and preview of an uploaded
// original photo and extracts its metadata tag map.
package variants

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/strandhvilliam/vimmer-backend/pkg/filestore"
	"github.com/strandhvilliam/vimmer-backend/pkg/objectkey"
	"github.com/strandhvilliam/vimmer-backend/pkg/utils"
)

const (
	THUMBNAIL_WIDTH = 200
	PREVIEW_WIDTH   = 1080
)

var (
	ErrSourceMissing   = errors.New("original object not found in blob store")
	ErrMetadataMissing = errors.New("original object has no extractable metadata")
)

// content types an original may carry; anything else is recorded with an
// empty mime type and fails the file-type rule during validation
var allowedImageMimeTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

// Result is the outcome of processing one original. Variant keys are empty
// when that variant could not be produced (soft failure, resumable later).
type Result struct {
	ThumbnailKey string
	PreviewKey   string
	Exif         map[string]string
	Size         int64
	MimeType     string
}

type Generator struct {
	store   filestore.Store
	adapter *imageAdapter
}

func NewGenerator(store filestore.Store) *Generator {
	return &Generator{
		store:   store,
		adapter: newImageAdapter(),
	}
}

// Process fetches the original bytes for the given key, extracts the
// metadata tag map and writes both resized variants back to the store under
// derived keys. All derived keys are deterministic functions of the input
// key, so reprocessing a redelivered event is a safe overwrite.
//
// A missing source object or unreadable metadata is a hard failure. A
// failure to produce a single variant is reported through the log and the
// empty key only; metadata extraction and the other variant still proceed.
func (g *Generator) Process(ctx context.Context, key objectkey.Key) (Result, error) {
	data, err := g.store.Get(ctx, key.String())
	if err != nil {
		if errors.Is(err, filestore.ErrObjectNotFound) {
			return Result{}, fmt.Errorf("%w: %s", ErrSourceMissing, key.String())
		}
		return Result{}, err
	}

	tags, err := ExtractTags(data)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %s", ErrMetadataMissing, err.Error())
	}

	mimeType, err := utils.DetectImageContentType(data, allowedImageMimeTypes)
	if err != nil {
		slog.Error("unrecognized original content type", slog.String("key", key.String()), slog.String("error", err.Error()))
	}

	result := Result{
		Exif:     tags,
		Size:     int64(len(data)),
		MimeType: mimeType,
	}

	img, err := g.adapter.decode(data)
	if err != nil {
		// decode failure blocks both variants but not the metadata
		slog.Error("failed to decode original for variant generation", slog.String("key", key.String()), slog.String("error", err.Error()))
		return result, nil
	}

	result.ThumbnailKey = g.writeVariant(ctx, key, img, objectkey.VARIANT_PREFIX_THUMBNAIL, THUMBNAIL_WIDTH)
	result.PreviewKey = g.writeVariant(ctx, key, img, objectkey.VARIANT_PREFIX_PREVIEW, PREVIEW_WIDTH)

	return result, nil
}

// writeVariant renders one resized variant and stores it under the derived
// key. Returns the empty string on failure; the submission keeps progressing
// with the variant key absent.
func (g *Generator) writeVariant(ctx context.Context, original objectkey.Key, img image.Image, prefix string, width int) string {
	variantKey := objectkey.FormatVariant(original, prefix)

	encoded, err := g.adapter.resizeToWidth(img, width)
	if err != nil {
		slog.Error("failed to generate variant", slog.String("key", variantKey), slog.String("error", err.Error()))
		return ""
	}

	if err := g.store.Put(ctx, variantKey, encoded, "image/jpeg"); err != nil {
		slog.Error("failed to store variant", slog.String("key", variantKey), slog.String("error", err.Error()))
		return ""
	}

	return variantKey
}
