// Package theme derives a color theme from a menu image.
//
// Derivation never fails from the caller's point of view: every problem is
// reported as an advisory DerivationError next to the fallback theme.
package theme

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/Lixing-Zhang/menu-extractor/internal/models"
	"github.com/Lixing-Zhang/menu-extractor/internal/palette"
)

// MaxPalette is the largest palette a theme carries
const MaxPalette = 5

// Derivation stages reported in DerivationError
const (
	StageUnavailable = "unavailable"
	StageDecode      = "decode"
	StageQuantize    = "quantize"
	StageCancelled   = "cancelled"
)

var (
	ErrNoImage     = errors.New("no image")
	ErrNoQuantizer = errors.New("no color quantizer configured")
)

// Quantizer reduces a bitmap to a dominant color and a palette
type Quantizer interface {
	Quantize(ctx context.Context, img image.Image, n int) (palette.RGB, []palette.RGB, error)
}

// QuantizerFunc adapts a function to Quantizer
type QuantizerFunc func(ctx context.Context, img image.Image, n int) (palette.RGB, []palette.RGB, error)

// Quantize calls f
func (f QuantizerFunc) Quantize(ctx context.Context, img image.Image, n int) (palette.RGB, []palette.RGB, error) {
	return f(ctx, img, n)
}

// DerivationError is an advisory: the theme fell back to the default colors
type DerivationError struct {
	Stage string
	Err   error
}

func (e *DerivationError) Error() string {
	return fmt.Sprintf("color derivation failed (%s): %v", e.Stage, e.Err)
}

func (e *DerivationError) Unwrap() error {
	return e.Err
}

// Advisory is the user-facing notice for a fallback theme
func (e *DerivationError) Advisory() string {
	return "Could not extract colors from the image; the default theme is used."
}

// Outcome is the result of a derivation. Theme is always usable.
type Outcome struct {
	Theme models.ColorTheme
	Err   error
}

// Fallback reports whether the default theme was used
func (o Outcome) Fallback() bool {
	return o.Err != nil
}

// Deriver wraps a Quantizer with the fallback policy
type Deriver struct {
	quantizer Quantizer
	size      int
	timeout   time.Duration
	logger    *slog.Logger
}

// NewDeriver creates a deriver. size is capped at MaxPalette; timeout <= 0
// means no limit beyond the caller's context.
func NewDeriver(q Quantizer, size int, timeout time.Duration, logger *slog.Logger) *Deriver {
	if size <= 0 || size > MaxPalette {
		size = MaxPalette
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Deriver{
		quantizer: q,
		size:      size,
		timeout:   timeout,
		logger:    logger,
	}
}

// Derive waits for src and quantizes it
func (d *Deriver) Derive(ctx context.Context, src *Source) Outcome {
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	theme, err := d.derive(ctx, src)
	if err != nil {
		d.logger.WarnContext(ctx, "using fallback theme", "error", err)
		return Outcome{Theme: models.FallbackTheme(), Err: err}
	}

	d.logger.DebugContext(ctx, "theme derived",
		"dominant", theme.Dominant,
		"palette_size", len(theme.Palette),
	)
	return Outcome{Theme: theme}
}

func (d *Deriver) derive(ctx context.Context, src *Source) (models.ColorTheme, error) {
	if d.quantizer == nil {
		return models.ColorTheme{}, &DerivationError{Stage: StageUnavailable, Err: ErrNoQuantizer}
	}
	if src == nil {
		return models.ColorTheme{}, &DerivationError{Stage: StageDecode, Err: ErrNoImage}
	}

	img, err := src.Wait(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return models.ColorTheme{}, &DerivationError{Stage: StageCancelled, Err: err}
		}
		return models.ColorTheme{}, &DerivationError{Stage: StageDecode, Err: err}
	}

	dominant, colors, err := d.quantize(ctx, img)
	if err != nil {
		if ctx.Err() != nil {
			return models.ColorTheme{}, &DerivationError{Stage: StageCancelled, Err: err}
		}
		return models.ColorTheme{}, &DerivationError{Stage: StageQuantize, Err: err}
	}

	if len(colors) > d.size {
		colors = colors[:d.size]
	}
	theme := models.ColorTheme{
		Dominant: Hex(dominant),
		Palette:  make([]string, 0, len(colors)),
	}
	for _, c := range colors {
		theme.Palette = append(theme.Palette, Hex(c))
	}
	return theme, nil
}

// quantize turns a quantizer panic into an error
func (d *Deriver) quantize(ctx context.Context, img image.Image) (dominant palette.RGB, colors []palette.RGB, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("quantizer panic: %v", r)
		}
	}()
	return d.quantizer.Quantize(ctx, img, d.size)
}

// Hex formats c as #rrggbb
func Hex(c palette.RGB) string {
	return fmt.Sprintf("#%02x%02x%02x", c[0], c[1], c[2])
}
