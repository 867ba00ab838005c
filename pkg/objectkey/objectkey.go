// Package objectkey implements the storage key convention used for original
// photos and their derived variants:
//
//	{domain}/{participantReference}/{paddedOrderIndex}/{variantPrefix_}{filename}
package objectkey

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	VARIANT_PREFIX_THUMBNAIL = "thumb"
	VARIANT_PREFIX_PREVIEW   = "preview"

	orderIndexPadding = 3
)

var (
	ErrInvalidKey        = errors.New("object key does not match the path scheme")
	ErrInvalidOrderIndex = errors.New("object key order index is not numeric")
)

// Key is the parsed form of a storage key.
type Key struct {
	Domain         string
	ParticipantRef string
	OrderIndex     int
	VariantPrefix  string
	FileName       string
}

// Format builds the storage key for an original photo.
func Format(domain string, participantRef string, orderIndex int, fileName string) string {
	return fmt.Sprintf("%s/%s/%0*d/%s", domain, participantRef, orderIndexPadding, orderIndex, fileName)
}

// FormatVariant builds the storage key of a derived variant of the original.
func FormatVariant(original Key, variantPrefix string) string {
	return fmt.Sprintf("%s/%s/%0*d/%s_%s",
		original.Domain, original.ParticipantRef, orderIndexPadding, original.OrderIndex,
		variantPrefix, original.FileName)
}

// Parse splits a storage key into its path segments. Variant prefixes are
// detected on the file name segment and stripped into VariantPrefix.
func Parse(key string) (Key, error) {
	parts := strings.Split(key, "/")
	if len(parts) != 4 {
		return Key{}, fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	for _, p := range parts {
		if p == "" {
			return Key{}, fmt.Errorf("%w: %s", ErrInvalidKey, key)
		}
	}

	orderIndex, err := strconv.Atoi(parts[2])
	if err != nil {
		return Key{}, fmt.Errorf("%w: %s", ErrInvalidOrderIndex, parts[2])
	}

	parsed := Key{
		Domain:         parts[0],
		ParticipantRef: parts[1],
		OrderIndex:     orderIndex,
		FileName:       parts[3],
	}

	for _, prefix := range []string{VARIANT_PREFIX_THUMBNAIL, VARIANT_PREFIX_PREVIEW} {
		if rest, ok := strings.CutPrefix(parsed.FileName, prefix+"_"); ok {
			parsed.VariantPrefix = prefix
			parsed.FileName = rest
			break
		}
	}

	return parsed, nil
}

// Extension returns the lower-cased file extension without the dot,
// normalizing jpeg to jpg.
func (k Key) Extension() string {
	idx := strings.LastIndex(k.FileName, ".")
	if idx < 0 || idx == len(k.FileName)-1 {
		return ""
	}
	ext := strings.ToLower(k.FileName[idx+1:])
	if ext == "jpeg" {
		ext = "jpg"
	}
	return ext
}

// String renders the key back into its storage form.
func (k Key) String() string {
	if k.VariantPrefix != "" {
		return FormatVariant(Key{
			Domain:         k.Domain,
			ParticipantRef: k.ParticipantRef,
			OrderIndex:     k.OrderIndex,
			FileName:       k.FileName,
		}, k.VariantPrefix)
	}
	return Format(k.Domain, k.ParticipantRef, k.OrderIndex, k.FileName)
}
