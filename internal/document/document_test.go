package document

import (
    "errors"
    "os"
    "path/filepath"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/local/pageforge/internal/pdftest"
)

func TestOpenAndPageCount(t *testing.T) {
    path := pdftest.WritePDF(t, t.TempDir(), "three.pdf", "first page", "second page", "third page")
    doc, err := Open(path)
    require.NoError(t, err)
    defer doc.Close()

    assert.Equal(t, 3, doc.PageCount())
    assert.Equal(t, path, doc.Path())
    assert.Len(t, doc.ID(), 8)
}

func TestOpenMissingFile(t *testing.T) {
    _, err := Open("/nonexistent/input.pdf")
    var unavailable *SourceUnavailableError
    require.True(t, errors.As(err, &unavailable))
}

func TestOpenRejectsNonPDF(t *testing.T) {
    dir := t.TempDir()
    path := filepath.Join(dir, "notes.pdf")
    require.NoError(t, os.WriteFile(path, []byte("just some text"), 0o644))

    _, err := Open(path)
    var unsupported *UnsupportedTypeError
    require.True(t, errors.As(err, &unsupported))
}

func TestSourceIDStable(t *testing.T) {
    assert.Equal(t, SourceID("/a/b.pdf"), SourceID("/a/b.pdf"))
    assert.NotEqual(t, SourceID("/a/b.pdf"), SourceID("/a/c.pdf"))
    assert.Len(t, SourceID("/a/b.pdf"), 8)
}

func TestPageText(t *testing.T) {
    path := pdftest.WritePDF(t, t.TempDir(), "text.pdf", "hello world", "")
    doc, err := Open(path)
    require.NoError(t, err)
    defer doc.Close()

    text, err := doc.PageText(0)
    require.NoError(t, err)
    assert.Contains(t, text, "hello world")
}

func TestPageTextLens(t *testing.T) {
    path := pdftest.WritePDF(t, t.TempDir(), "lens.pdf", "some content here", "")
    doc, err := Open(path)
    require.NoError(t, err)
    defer doc.Close()

    lens, err := doc.PageTextLens()
    require.NoError(t, err)
    require.Len(t, lens, 2)
    assert.Greater(t, lens[0], 0)
    assert.Equal(t, 0, lens[1])
}

func TestPageRect(t *testing.T) {
    path := pdftest.WritePDF(t, t.TempDir(), "rect.pdf", "x")
    doc, err := Open(path)
    require.NoError(t, err)
    defer doc.Close()

    rect, err := doc.PageRect(0)
    require.NoError(t, err)
    // US Letter, 612x792 points
    assert.InDelta(t, 612, rect.Width, 1)
    assert.InDelta(t, 792, rect.Height, 1)
}

func TestPageOutOfRange(t *testing.T) {
    path := pdftest.WritePDF(t, t.TempDir(), "small.pdf", "x")
    doc, err := Open(path)
    require.NoError(t, err)
    defer doc.Close()

    var oor *PageOutOfRangeError
    _, err = doc.PageText(1)
    require.True(t, errors.As(err, &oor))
    _, err = doc.PageRect(-1)
    require.True(t, errors.As(err, &oor))
}

func TestRotationOverride(t *testing.T) {
    path := pdftest.WritePDF(t, t.TempDir(), "rot.pdf", "x")
    doc, err := Open(path)
    require.NoError(t, err)
    defer doc.Close()

    rot, err := doc.PageRotation(0)
    require.NoError(t, err)
    assert.Equal(t, 0, rot)

    require.NoError(t, doc.SetPageRotation(0, -90))
    rot, err = doc.PageRotation(0)
    require.NoError(t, err)
    assert.Equal(t, 270, rot)
}

func TestClosedDocumentFails(t *testing.T) {
    path := pdftest.WritePDF(t, t.TempDir(), "closed.pdf", "x")
    doc, err := Open(path)
    require.NoError(t, err)
    require.NoError(t, doc.Close())
    require.NoError(t, doc.Close()) // idempotent

    var unavailable *SourceUnavailableError
    _, err = doc.PageText(0)
    require.True(t, errors.As(err, &unavailable))
}

func TestRender(t *testing.T) {
    path := pdftest.WritePDF(t, t.TempDir(), "render.pdf", "render me")
    doc, err := Open(path)
    require.NoError(t, err)
    defer doc.Close()

    img, err := doc.Render(0, 36)
    require.NoError(t, err)
    bounds := img.Bounds()
    assert.Greater(t, bounds.Dx(), 0)
    assert.Greater(t, bounds.Dy(), 0)
}

func TestOutlineEmpty(t *testing.T) {
    path := pdftest.WritePDF(t, t.TempDir(), "plain.pdf", "x")
    doc, err := Open(path)
    require.NoError(t, err)
    defer doc.Close()

    outline, err := doc.Outline()
    require.NoError(t, err)
    assert.Empty(t, outline)
}
