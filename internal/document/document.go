package document

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/local/pageforge/internal/partition"
)

// Rect is a page's media box size in points.
type Rect struct {
	Width  float64
	Height float64
}

// Document is an open source document handle. Page content is immutable
// from this engine's perspective; only explicit rotation overrides are
// tracked. Methods are safe for concurrent use (the underlying MuPDF
// handle is not, so calls into it are serialized).
type Document struct {
	path      string
	id        string
	pageCount int

	mu        sync.Mutex
	doc       *fitz.Document
	rotations map[int]int
	closed    bool
}

// Open opens a PDF at path. The input is type-checked by magic bytes
// before MuPDF touches it.
func Open(path string) (*Document, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, &SourceUnavailableError{Path: path, Err: err}
	}
	if err := checkPDF(path); err != nil {
		return nil, err
	}
	doc, err := fitz.New(path)
	if err != nil {
		return nil, &SourceUnavailableError{Path: path, Err: err}
	}
	d := &Document{
		path:      path,
		id:        SourceID(path),
		pageCount: doc.NumPage(),
		doc:       doc,
		rotations: map[int]int{},
	}
	log.Info().Str("file", path).Str("source_id", d.id).Int("pages", d.pageCount).Msg("opened source document")
	return d, nil
}

// SourceID derives the stable short identity used to partition the
// cache, from the source path alone.
func SourceID(path string) string {
	sum := sha256.Sum256([]byte(path))
	return hex.EncodeToString(sum[:])[:8]
}

// Close releases the underlying handle. Further page access fails with
// SourceUnavailableError.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.doc.Close()
}

// Path returns the backing file path.
func (d *Document) Path() string { return d.path }

// ID returns the source identity.
func (d *Document) ID() string { return d.id }

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return d.pageCount }

func (d *Document) checkPage(i int) error {
	if d.closed {
		return &SourceUnavailableError{Path: d.path}
	}
	if i < 0 || i >= d.pageCount {
		return &PageOutOfRangeError{Index: i, Count: d.pageCount}
	}
	return nil
}

// PageRect returns the page's width and height in points.
func (d *Document) PageRect(i int) (Rect, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkPage(i); err != nil {
		return Rect{}, err
	}
	bounds, err := d.doc.Bound(i)
	if err != nil {
		return Rect{}, fmt.Errorf("page bounds: %w", err)
	}
	return Rect{Width: float64(bounds.Dx()), Height: float64(bounds.Dy())}, nil
}

// PageRotation returns the explicit rotation override for a page, 0 when
// none has been set.
func (d *Document) PageRotation(i int) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkPage(i); err != nil {
		return 0, err
	}
	return d.rotations[i], nil
}

// SetPageRotation records a rotation override on the handle.
func (d *Document) SetPageRotation(i, angle int) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkPage(i); err != nil {
		return err
	}
	d.rotations[i] = ((angle % 360) + 360) % 360
	return nil
}

// PageText extracts the page's text.
func (d *Document) PageText(i int) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkPage(i); err != nil {
		return "", err
	}
	text, err := d.doc.Text(i)
	if err != nil {
		return "", fmt.Errorf("extract text from page %d: %w", i, err)
	}
	return text, nil
}

// PageTextLens extracts every page's text length, the input to
// content-driven split planning.
func (d *Document) PageTextLens() ([]int, error) {
	lens := make([]int, d.pageCount)
	for i := 0; i < d.pageCount; i++ {
		text, err := d.PageText(i)
		if err != nil {
			return nil, err
		}
		lens[i] = len([]rune(strings.TrimSpace(text)))
	}
	return lens, nil
}

// PageImages extracts the page's embedded images to a temp directory and
// returns their paths. Callers own the files.
func (d *Document) PageImages(i int) ([]string, error) {
	d.mu.Lock()
	if err := d.checkPage(i); err != nil {
		d.mu.Unlock()
		return nil, err
	}
	d.mu.Unlock()

	outDir, err := os.MkdirTemp("", "pageimgs-")
	if err != nil {
		return nil, err
	}
	sel := []string{fmt.Sprintf("%d", i+1)}
	if err := api.ExtractImagesFile(d.path, outDir, sel, nil); err != nil {
		os.RemoveAll(outDir)
		return nil, fmt.Errorf("extract images from page %d: %w", i, err)
	}
	entries, err := os.ReadDir(outDir)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			paths = append(paths, outDir+"/"+e.Name())
		}
	}
	return paths, nil
}

// Outline returns the document's table of contents with 0-based target
// pages, empty when the document has none.
func (d *Document) Outline() ([]partition.OutlineEntry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, &SourceUnavailableError{Path: d.path}
	}
	toc, err := d.doc.ToC()
	if err != nil {
		// MuPDF errors on documents without an outline tree; treat as empty
		log.Debug().Err(err).Str("file", d.path).Msg("no outline")
		return nil, nil
	}
	entries := make([]partition.OutlineEntry, 0, len(toc))
	for _, item := range toc {
		entries = append(entries, partition.OutlineEntry{
			Title: item.Title,
			Level: item.Level,
			Page:  item.Page,
		})
	}
	return entries, nil
}

// Render rasterizes a page at the given DPI.
func (d *Document) Render(i int, dpi float64) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if err := d.checkPage(i); err != nil {
		return nil, err
	}
	img, err := d.doc.ImageDPI(i, dpi)
	if err != nil {
		return nil, fmt.Errorf("render page %d: %w", i, err)
	}
	return img, nil
}

// Metadata returns document-level metadata as reported by MuPDF.
func (d *Document) Metadata() (map[string]string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, &SourceUnavailableError{Path: d.path}
	}
	return d.doc.Metadata(), nil
}
