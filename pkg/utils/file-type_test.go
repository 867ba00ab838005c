package utils

import (
	"bytes"
	"image"
	"image/jpeg"
	"image/png"
	"testing"
)

var imageMimeTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

func encodeImage(t *testing.T, encode func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := encode(&buf, image.NewRGBA(image.Rect(0, 0, 4, 4))); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDetectImageContentType(t *testing.T) {
	jpegBytes := encodeImage(t, func(buf *bytes.Buffer, img image.Image) error {
		return jpeg.Encode(buf, img, nil)
	})
	pngBytes := encodeImage(t, func(buf *bytes.Buffer, img image.Image) error {
		return png.Encode(buf, img)
	})

	tests := []struct {
		name       string
		head       []byte
		expected   string
		shouldFail bool
	}{
		{"jpeg", jpegBytes, "image/jpeg", false},
		{"png", pngBytes, "image/png", false},
		{"plain text", []byte("definitely not an image"), "", true},
		{"empty", nil, "", true},
	}

	for _, test := range tests {
		contentType, err := DetectImageContentType(test.head, imageMimeTypes)
		if test.shouldFail {
			if err == nil {
				t.Errorf("%s: expected error, got content type %q", test.name, contentType)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: unexpected error: %v", test.name, err)
			continue
		}
		if contentType != test.expected {
			t.Errorf("%s: got %q, want %q", test.name, contentType, test.expected)
		}
	}
}

func TestDetectImageContentTypeRejectsDisallowedTypes(t *testing.T) {
	pngBytes := encodeImage(t, func(buf *bytes.Buffer, img image.Image) error {
		return png.Encode(buf, img)
	})

	if _, err := DetectImageContentType(pngBytes, []string{"image/jpeg"}); err == nil {
		t.Error("expected error for content type outside the allow list")
	}
}

func TestGetFileExtensionFromContentType(t *testing.T) {
	tests := []struct {
		contentType string
		expected    string
	}{
		{"image/jpeg", "jpg"},
		{"image/png", "png"},
		{"image/webp", "webp"},
		{"application/zip", ""},
	}

	for _, test := range tests {
		if got := GetFileExtensionFromContentType(test.contentType); got != test.expected {
			t.Errorf("extension of %s: got %q, want %q", test.contentType, got, test.expected)
		}
	}
}
