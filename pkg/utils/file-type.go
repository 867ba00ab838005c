package utils

import (
	"fmt"
	"net/http"
)

// DetectImageContentType sniffs the content type from the first bytes of an
// uploaded file (at most 512 bytes are inspected) and validates it against
// the allowed MIME types.
func DetectImageContentType(head []byte, allowedTypes []string) (string, error) {
	if len(head) == 0 {
		return "", fmt.Errorf("file is empty")
	}
	if len(head) > 512 {
		head = head[:512]
	}

	contentType := http.DetectContentType(head)

	if !ContainsString(allowedTypes, contentType) {
		return "", fmt.Errorf("invalid file type: %s", contentType)
	}
	return contentType, nil
}

// GetFileExtensionFromContentType returns the file extension (without dot)
// for the given content type. Returns empty string if not recognized.
func GetFileExtensionFromContentType(contentType string) string {
	extensionMap := map[string]string{
		"image/jpeg": "jpg",
		"image/png":  "png",
		"image/gif":  "gif",
		"image/webp": "webp",
	}

	if ext, ok := extensionMap[contentType]; ok {
		return ext
	}
	return ""
}
