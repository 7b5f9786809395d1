package thumb

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pageforge/internal/document"
	"github.com/local/pageforge/internal/metrics"
)

// Defaults match the UI thumbnail grid the engine was built for.
const (
	DefaultMaxSize = 200
	DefaultQuality = 85
)

// Options controls thumbnail production.
type Options struct {
	// MaxSize bounds the larger output dimension in pixels.
	MaxSize int
	// Quality is the JPEG quality (0-100).
	Quality int
}

func (o Options) withDefaults() Options {
	if o.MaxSize <= 0 {
		o.MaxSize = DefaultMaxSize
	}
	if o.Quality <= 0 {
		o.Quality = DefaultQuality
	}
	return o
}

// Variant names the cache variant for the given options, part of the
// thumbnail fingerprint. Rotation is deliberately not part of the
// variant: rotating a page evicts its cached thumbnail instead.
func (o Options) Variant() string {
	o = o.withDefaults()
	return fmt.Sprintf("thumb-%d-q%d", o.MaxSize, o.Quality)
}

// Render produces a JPEG thumbnail of one page, scaled so the larger
// dimension fits Options.MaxSize, with the rotation override applied to
// the raster. Returns JPEG bytes.
func Render(doc *document.Document, page int, rotation int, opts Options) ([]byte, error) {
	opts = opts.withDefaults()
	start := time.Now()

	rect, err := doc.PageRect(page)
	if err != nil {
		metrics.ObserveRender("error", time.Since(start))
		return nil, err
	}
	longest := rect.Width
	if rect.Height > longest {
		longest = rect.Height
	}
	if longest <= 0 {
		longest = 1
	}
	dpi := 72.0 * float64(opts.MaxSize) / longest

	img, err := doc.Render(page, dpi)
	if err != nil {
		metrics.ObserveRender("error", time.Since(start))
		return nil, err
	}

	if rotation != 0 {
		img = rotate(img, rotation)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: opts.Quality}); err != nil {
		metrics.ObserveRender("error", time.Since(start))
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}

	bounds := img.Bounds()
	log.Debug().
		Int("page", page).
		Int("width", bounds.Dx()).
		Int("height", bounds.Dy()).
		Int("jpeg_size", buf.Len()).
		Int("rotation", rotation).
		Msg("rendered thumbnail")
	metrics.ObserveRender("ok", time.Since(start))

	return buf.Bytes(), nil
}

// rotate turns the raster by a multiple of 90 degrees clockwise.
func rotate(src image.Image, angle int) image.Image {
	angle = ((angle % 360) + 360) % 360
	if angle == 0 {
		return src
	}

	b := src.Bounds()
	w, h := b.Dx(), b.Dy()

	var dst *image.RGBA
	if angle == 180 {
		dst = image.NewRGBA(image.Rect(0, 0, w, h))
	} else {
		dst = image.NewRGBA(image.Rect(0, 0, h, w))
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := src.At(b.Min.X+x, b.Min.Y+y)
			switch angle {
			case 90:
				dst.Set(h-1-y, x, c)
			case 180:
				dst.Set(w-1-x, h-1-y, c)
			case 270:
				dst.Set(y, w-1-x, c)
			}
		}
	}
	return dst
}
