package assemble

import (
    "context"
    "errors"
    "os"
    "path/filepath"
    "testing"

    "github.com/pdfcpu/pdfcpu/pkg/api"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/local/pageforge/internal/arrange"
    "github.com/local/pageforge/internal/document"
    "github.com/local/pageforge/internal/partition"
    "github.com/local/pageforge/internal/pdftest"
)

func openFixture(t *testing.T, name string, texts ...string) *document.Document {
    t.Helper()
    path := pdftest.WritePDF(t, t.TempDir(), name, texts...)
    doc, err := document.Open(path)
    require.NoError(t, err)
    t.Cleanup(func() { _ = doc.Close() })
    return doc
}

func pageCount(t *testing.T, path string) int {
    t.Helper()
    n, err := api.PageCountFile(path)
    require.NoError(t, err)
    return n
}

func TestFromArrangementPreservesOrderAndDuplicates(t *testing.T) {
    doc := openFixture(t, "src.pdf", "page zero", "page one", "page two")
    out := filepath.Join(t.TempDir(), "out.pdf")

    refs := []arrange.PageRef{
        {SourceID: doc.ID(), PageIndex: 2},
        {SourceID: doc.ID(), PageIndex: 0},
        {SourceID: doc.ID(), PageIndex: 2},
    }
    require.NoError(t, FromArrangement(context.Background(), []*document.Document{doc}, refs, out))
    assert.Equal(t, 3, pageCount(t, out))
}

func TestFromArrangementUnknownSource(t *testing.T) {
    doc := openFixture(t, "src.pdf", "only page")
    out := filepath.Join(t.TempDir(), "out.pdf")

    refs := []arrange.PageRef{{SourceID: "deadbeef", PageIndex: 0}}
    err := FromArrangement(context.Background(), []*document.Document{doc}, refs, out)
    var unavailable *document.SourceUnavailableError
    require.True(t, errors.As(err, &unavailable))
    _, statErr := os.Stat(out)
    assert.True(t, os.IsNotExist(statErr))
}

func TestFromArrangementRejectsEmpty(t *testing.T) {
    doc := openFixture(t, "src.pdf", "only page")
    out := filepath.Join(t.TempDir(), "out.pdf")
    err := FromArrangement(context.Background(), []*document.Document{doc}, nil, out)
    require.Error(t, err)
}

func TestFromArrangementCancelled(t *testing.T) {
    doc := openFixture(t, "src.pdf", "a", "b")
    out := filepath.Join(t.TempDir(), "out.pdf")

    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    refs := []arrange.PageRef{{SourceID: doc.ID(), PageIndex: 0}}
    err := FromArrangement(ctx, []*document.Document{doc}, refs, out)
    require.ErrorIs(t, err, context.Canceled)
    _, statErr := os.Stat(out)
    assert.True(t, os.IsNotExist(statErr))
}

func TestFromArrangementWithRotation(t *testing.T) {
    doc := openFixture(t, "src.pdf", "a", "b")
    out := filepath.Join(t.TempDir(), "out.pdf")

    refs := []arrange.PageRef{
        {SourceID: doc.ID(), PageIndex: 0, Rotation: 90},
        {SourceID: doc.ID(), PageIndex: 1},
    }
    require.NoError(t, FromArrangement(context.Background(), []*document.Document{doc}, refs, out))
    assert.Equal(t, 2, pageCount(t, out))
}

func TestFromMergeInterleavesSources(t *testing.T) {
    a := openFixture(t, "a.pdf", "a0", "a1")
    b := openFixture(t, "b.pdf", "b0")
    out := filepath.Join(t.TempDir(), "merged.pdf")

    order := []partition.MergeRef{
        {Source: 0, Page: 0},
        {Source: 1, Page: 0},
        {Source: 0, Page: 1},
    }
    require.NoError(t, FromMerge(context.Background(), []*document.Document{a, b}, order, out))
    assert.Equal(t, 3, pageCount(t, out))
}

func TestFromMergeValidatesOrder(t *testing.T) {
    a := openFixture(t, "a.pdf", "a0")
    out := filepath.Join(t.TempDir(), "merged.pdf")

    err := FromMerge(context.Background(), []*document.Document{a}, []partition.MergeRef{{Source: 0, Page: 1}}, out)
    var oor *partition.PageOutOfRangeError
    require.True(t, errors.As(err, &oor))
}

func TestSplitByPlan(t *testing.T) {
    doc := openFixture(t, "src.pdf", "p0", "p1", "p2", "p3", "p4")
    outDir := t.TempDir()

    plan := partition.Plan{
        {Start: 0, End: 2},
        {Start: 2, End: 5},
    }
    outputs, err := Split(context.Background(), doc, plan, outDir, "part")
    require.NoError(t, err)
    require.Len(t, outputs, 2)

    assert.Equal(t, filepath.Join(outDir, "part_1.pdf"), outputs[0])
    assert.Equal(t, 2, pageCount(t, outputs[0]))
    assert.Equal(t, 3, pageCount(t, outputs[1]))
}

func TestSplitLabeledRanges(t *testing.T) {
    doc := openFixture(t, "src.pdf", "p0", "p1", "p2")
    outDir := t.TempDir()

    plan := partition.Plan{
        {Start: 0, End: 1, Label: "Intro"},
        {Start: 1, End: 3, Label: "Body"},
    }
    outputs, err := Split(context.Background(), doc, plan, outDir, "")
    require.NoError(t, err)
    assert.Equal(t, filepath.Join(outDir, "Intro.pdf"), outputs[0])
    assert.Equal(t, filepath.Join(outDir, "Body.pdf"), outputs[1])
}

func TestSplitDuplicateLabelsGetDistinctFiles(t *testing.T) {
    doc := openFixture(t, "src.pdf", "p0", "p1", "p2", "p3")
    outDir := t.TempDir()

    // bookmark labels can sanitize to the same string
    plan := partition.Plan{
        {Start: 0, End: 1, Label: "chapter"},
        {Start: 1, End: 3, Label: "chapter"},
        {Start: 3, End: 4, Label: "chapter"},
    }
    outputs, err := Split(context.Background(), doc, plan, outDir, "")
    require.NoError(t, err)
    require.Len(t, outputs, 3)
    assert.Equal(t, filepath.Join(outDir, "chapter.pdf"), outputs[0])
    assert.Equal(t, filepath.Join(outDir, "chapter_2.pdf"), outputs[1])
    assert.Equal(t, filepath.Join(outDir, "chapter_3.pdf"), outputs[2])
    assert.Equal(t, 1, pageCount(t, outputs[0]))
    assert.Equal(t, 2, pageCount(t, outputs[1]))
    assert.Equal(t, 1, pageCount(t, outputs[2]))
}

func TestSplitRejectsBadPlan(t *testing.T) {
    doc := openFixture(t, "src.pdf", "p0", "p1")
    outDir := t.TempDir()

    _, err := Split(context.Background(), doc, partition.Plan{{Start: 0, End: 3}}, outDir, "part")
    var oor *document.PageOutOfRangeError
    require.True(t, errors.As(err, &oor))

    _, err = Split(context.Background(), doc, nil, outDir, "part")
    require.Error(t, err)
}

func TestSplitCancelledLeavesNoPartial(t *testing.T) {
    doc := openFixture(t, "src.pdf", "p0", "p1", "p2")
    outDir := t.TempDir()

    ctx, cancel := context.WithCancel(context.Background())
    cancel()
    _, err := Split(ctx, doc, partition.Plan{{Start: 0, End: 1}, {Start: 1, End: 3}}, outDir, "part")
    require.ErrorIs(t, err, context.Canceled)

    entries, readErr := os.ReadDir(outDir)
    require.NoError(t, readErr)
    assert.Empty(t, entries)
}

func TestSplitRuns(t *testing.T) {
    sels := []pageSel{
        {source: 0, page: 0},
        {source: 0, page: 1},
        {source: 1, page: 0},
        {source: 0, page: 2},
    }
    runs := splitRuns(sels)
    require.Len(t, runs, 3)
    assert.Len(t, runs[0], 2)
    assert.Len(t, runs[1], 1)
    assert.Len(t, runs[2], 1)
}
