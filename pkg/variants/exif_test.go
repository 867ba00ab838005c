package variants

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"
)

func TestNormalizeExifTime(t *testing.T) {
	tests := []struct {
		input      string
		expected   string
		shouldFail bool
	}{
		{"2024:01:01 10:00:00", "2024-01-01T10:00:00", false},
		{"2024-01-01T10:00:00", "2024-01-01T10:00:00", false},
		{" 2024:06:15 23:59:59 ", "2024-06-15T23:59:59", false},
		{"", "", true},
		{"yesterday", "", true},
		{"2024:13:01 10:00:00", "", true}, // month out of range
	}

	for _, test := range tests {
		result, err := NormalizeExifTime(test.input)
		if test.shouldFail {
			if err == nil {
				t.Errorf("expected error for input %q, but got nil", test.input)
			}
		} else {
			if err != nil {
				t.Errorf("expected no error for input %q, but got %s", test.input, err)
			}
			if result != test.expected {
				t.Errorf("expected %s for input %q, but got %s", test.expected, test.input, result)
			}
		}
	}
}

func TestParseCanonicalTimeRoundTrip(t *testing.T) {
	normalized, err := NormalizeExifTime("2024:01:01 10:05:00")
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseCanonicalTime(normalized)
	if err != nil {
		t.Fatal(err)
	}
	if parsed.Hour() != 10 || parsed.Minute() != 5 {
		t.Errorf("unexpected parsed time: %v", parsed)
	}
}

func TestExtractTagsFailsWithoutExifBlock(t *testing.T) {
	// a plain encoded JPEG carries no EXIF block
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{uint8(x * 30), uint8(y * 30), 100, 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		t.Fatal(err)
	}

	if _, err := ExtractTags(buf.Bytes()); err == nil {
		t.Error("expected error for image without metadata, got nil")
	}
}
