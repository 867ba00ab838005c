package variants

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// EXIF tag names the validation rules rely on.
const (
	EXIF_TAG_MAKE               = "Make"
	EXIF_TAG_MODEL              = "Model"
	EXIF_TAG_SOFTWARE           = "Software"
	EXIF_TAG_DATETIME_ORIGINAL  = "DateTimeOriginal"
	EXIF_TAG_DATETIME_DIGITIZED = "DateTimeDigitized"
	EXIF_TAG_DATETIME           = "DateTime"
)

// canonical layout for normalized date tags
const CanonicalTimeLayout = "2006-01-02T15:04:05"

const exifTimeLayout = "2006:01:02 15:04:05"

type tagCollector struct {
	tags map[string]string
}

func (c *tagCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	value, err := tag.StringVal()
	if err != nil {
		// non-string tags keep their raw rendering
		value = strings.Trim(tag.String(), `"`)
	}
	value = strings.TrimSpace(strings.Trim(value, "\x00"))
	if value == "" {
		return nil
	}

	key := string(name)
	if strings.Contains(key, "Date") {
		if normalized, err := NormalizeExifTime(value); err == nil {
			value = normalized
		}
	}

	c.tags[key] = value
	return nil
}

// ExtractTags decodes the EXIF block of the original bytes into a flat tag
// map with date tags normalized to the canonical layout. An image without a
// readable EXIF block is an error; the caller treats this as a hard failure
// for the submission.
func ExtractTags(data []byte) (map[string]string, error) {
	x, err := exif.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to extract metadata: %w", err)
	}

	collector := &tagCollector{tags: map[string]string{}}
	if err := x.Walk(collector); err != nil {
		return nil, fmt.Errorf("failed to walk metadata tags: %w", err)
	}
	if len(collector.tags) == 0 {
		return nil, fmt.Errorf("metadata block contains no tags")
	}

	return collector.tags, nil
}

// NormalizeExifTime converts an EXIF date string (colon-separated) into the
// canonical timestamp layout. Already canonical values pass through.
func NormalizeExifTime(value string) (string, error) {
	value = strings.TrimSpace(value)

	if t, err := time.Parse(exifTimeLayout, value); err == nil {
		return t.Format(CanonicalTimeLayout), nil
	}
	if t, err := time.Parse(CanonicalTimeLayout, value); err == nil {
		return t.Format(CanonicalTimeLayout), nil
	}
	return "", fmt.Errorf("unrecognized date format: %s", value)
}

// ParseCanonicalTime parses a tag value produced by NormalizeExifTime.
func ParseCanonicalTime(value string) (time.Time, error) {
	return time.Parse(CanonicalTimeLayout, strings.TrimSpace(value))
}
