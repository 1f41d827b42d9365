package pipeline

import (
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// MaxImageBytes is the default upload limit
const MaxImageBytes = 10 << 20

var allowedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// Upload is an image as received from the user
type Upload struct {
	Data        []byte
	ContentType string
	Filename    string
}

// InputError rejects an upload before it reaches the pipeline
type InputError struct {
	Reason string
}

func (e *InputError) Error() string {
	return "invalid image: " + e.Reason
}

// UserMessage is shown to the user as is
func (e *InputError) UserMessage() string {
	return e.Reason
}

// Validate checks size and type of u and returns the sniffed MIME type.
// A declared type, when present, must be one of the accepted types too.
func Validate(u Upload, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = MaxImageBytes
	}
	if len(u.Data) == 0 {
		return "", &InputError{Reason: "The file is empty."}
	}
	if int64(len(u.Data)) > maxBytes {
		return "", &InputError{Reason: fmt.Sprintf("The file is too large (maximum %d MB).", maxBytes>>20)}
	}

	if u.ContentType != "" {
		declared, _, err := mime.ParseMediaType(u.ContentType)
		if err != nil || !allowedTypes[strings.ToLower(declared)] {
			return "", unsupported()
		}
	}

	sniffed := http.DetectContentType(u.Data)
	if !allowedTypes[sniffed] {
		return "", unsupported()
	}
	return sniffed, nil
}

func unsupported() *InputError {
	return &InputError{Reason: "Unsupported file type. Please upload a PNG, JPEG, GIF or WEBP image."}
}
