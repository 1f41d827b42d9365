package theme

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	// registered decoders for the accepted upload types
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"
)

// MaxPixels bounds the decoded size of an image, whatever its encoded size
const MaxPixels = 40_000_000

// ErrImageTooLarge is returned for images whose header declares more than
// MaxPixels pixels.
var ErrImageTooLarge = errors.New("image dimensions too large")

// Source is an image that is either decoded already or still being decoded.
// Decoding happens at most once; any number of callers may Wait on it.
type Source struct {
	done   chan struct{}
	img    image.Image
	format string
	err    error
}

// FromImage wraps an already decoded image
func FromImage(img image.Image) *Source {
	s := &Source{done: make(chan struct{}), img: img}
	if img == nil {
		s.err = ErrNoImage
	}
	close(s.done)
	return s
}

// FromBytes starts decoding data in the background and returns immediately.
// The header is checked against MaxPixels before the pixels are decoded.
func FromBytes(data []byte) *Source {
	s := &Source{done: make(chan struct{})}
	go func() {
		defer close(s.done)
		s.img, s.format, s.err = decode(data)
	}()
	return s
}

func decode(data []byte) (image.Image, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, format, fmt.Errorf("invalid image dimensions %dx%d", cfg.Width, cfg.Height)
	}
	if int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return nil, format, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}
	return image.Decode(bytes.NewReader(data))
}

// Wait blocks until the image is decoded, decoding failed, or ctx is done
func (s *Source) Wait(ctx context.Context) (image.Image, error) {
	select {
	case <-s.done:
		return s.img, s.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Format is the registered decoder name ("png", "jpeg", "gif", "webp").
// It is empty until decoding has finished.
func (s *Source) Format() string {
	select {
	case <-s.done:
		return s.format
	default:
		return ""
	}
}
