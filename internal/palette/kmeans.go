// Package palette extracts representative colors from a bitmap.
package palette

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"

	"github.com/EdlinOrg/prominentcolor"
)

// RGB is an 8-bit per channel color
type RGB [3]uint8

// ErrNoPixels is returned when an image has no usable (opaque) pixels
var ErrNoPixels = errors.New("palette: image has no opaque pixels")

// KMeans groups pixels into clusters with prominentcolor and reports the
// cluster centers, largest first.
type KMeans struct {
	// Size bounds the edge of the sampled image handed to the clustering;
	// 0 uses prominentcolor.DefaultSize.
	Size uint
}

// NewKMeans returns a quantizer with prominentcolor's default sample edge
func NewKMeans() *KMeans {
	return &KMeans{Size: prominentcolor.DefaultSize}
}

// Palette returns up to n colors ordered by how many pixels they represent
func (k *KMeans) Palette(img image.Image, n int) ([]RGB, error) {
	if n < 1 {
		n = 1
	}
	size := k.Size
	if size == 0 {
		size = prominentcolor.DefaultSize
	}

	pixels, distinct := sample(img, int(size)*int(size))
	if len(pixels) == 0 {
		return nil, ErrNoPixels
	}
	if n > distinct {
		n = distinct
	}

	items, err := prominentcolor.KmeansWithAll(n, pack(pixels), prominentcolor.ArgumentNoCropping, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("palette: %w", err)
	}
	if len(items) == 0 {
		return nil, ErrNoPixels
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Cnt > items[j].Cnt
	})

	out := make([]RGB, 0, len(items))
	seen := make(map[RGB]bool, len(items))
	for _, item := range items {
		c := RGB{clamp(item.Color.R), clamp(item.Color.G), clamp(item.Color.B)}
		if seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out, nil
}

// Dominant returns the most representative color
func (k *KMeans) Dominant(img image.Image) (RGB, error) {
	colors, err := k.Palette(img, 5)
	if err != nil {
		return RGB{}, err
	}
	return colors[0], nil
}

// Quantize returns the dominant color and a palette of up to n colors
func (k *KMeans) Quantize(ctx context.Context, img image.Image, n int) (RGB, []RGB, error) {
	if err := ctx.Err(); err != nil {
		return RGB{}, nil, err
	}
	colors, err := k.Palette(img, n)
	if err != nil {
		return RGB{}, nil, err
	}
	return colors[0], colors, nil
}

// sample reads at most limit evenly spaced pixels, skipping transparent and
// near-white ones, and reports how many distinct colors it kept.
func sample(img image.Image, limit int) ([]RGB, int) {
	bounds := img.Bounds()
	total := bounds.Dx() * bounds.Dy()
	if total <= 0 {
		return nil, 0
	}
	step := 1
	if limit > 0 && total > limit {
		step = (total + limit - 1) / limit
	}

	var pixels []RGB
	distinct := make(map[RGB]struct{})
	for i := 0; i < total; i += step {
		x := bounds.Min.X + i%bounds.Dx()
		y := bounds.Min.Y + i/bounds.Dx()
		r, g, b, a := img.At(x, y).RGBA()
		if a < 0x7d00 {
			continue
		}
		c := RGB{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)}
		if c[0] > 250 && c[1] > 250 && c[2] > 250 {
			continue
		}
		pixels = append(pixels, c)
		distinct[c] = struct{}{}
	}
	return pixels, len(distinct)
}

// pack lays pixels out on a square canvas, repeating from the start to fill
// the last row, so the clustering only sees usable colors.
func pack(pixels []RGB) *image.RGBA {
	side := int(math.Ceil(math.Sqrt(float64(len(pixels)))))
	out := image.NewRGBA(image.Rect(0, 0, side, side))
	for i := 0; i < side*side; i++ {
		c := pixels[i%len(pixels)]
		out.SetRGBA(i%side, i/side, color.RGBA{R: c[0], G: c[1], B: c[2], A: 255})
	}
	return out
}

func clamp(v uint32) uint8 {
	if v > 255 {
		return 255
	}
	return uint8(v)
}
