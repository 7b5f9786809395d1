package partition

import (
    "errors"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestByCount(t *testing.T) {
    plan, err := ByCount(25, 10)
    require.NoError(t, err)
    assert.Equal(t, Plan{
        {Start: 0, End: 10},
        {Start: 10, End: 20},
        {Start: 20, End: 25},
    }, plan)
    assert.Equal(t, 25, plan.TotalPages())
}

func TestByCountExact(t *testing.T) {
    plan, err := ByCount(20, 10)
    require.NoError(t, err)
    require.Len(t, plan, 2)
    assert.Equal(t, 10, plan[1].Len())
}

func TestByCountSinglePart(t *testing.T) {
    plan, err := ByCount(5, 10)
    require.NoError(t, err)
    assert.Equal(t, Plan{{Start: 0, End: 5}}, plan)
}

func TestByCountInvalid(t *testing.T) {
    var invalid *InvalidParameterError
    _, err := ByCount(10, 0)
    require.True(t, errors.As(err, &invalid))
    _, err = ByCount(-1, 5)
    require.True(t, errors.As(err, &invalid))
}

func TestByPages(t *testing.T) {
    plan, err := ByPages(12, []int{5, 10})
    require.NoError(t, err)
    assert.Equal(t, Plan{
        {Start: 0, End: 5},
        {Start: 5, End: 10},
        {Start: 10, End: 12},
    }, plan)
}

func TestByPagesDedupesAndSorts(t *testing.T) {
    plan, err := ByPages(10, []int{7, 3, 7, 0})
    require.NoError(t, err)
    assert.Equal(t, Plan{
        {Start: 0, End: 3},
        {Start: 3, End: 7},
        {Start: 7, End: 10},
    }, plan)
}

func TestByPagesRejectsOutOfRange(t *testing.T) {
    var bad *InvalidSplitPointError
    _, err := ByPages(10, []int{10})
    require.True(t, errors.As(err, &bad))
    assert.Equal(t, 10, bad.Point)

    _, err = ByPages(10, []int{-1})
    require.Error(t, err)
}

func TestByBookmarks(t *testing.T) {
    outline := []OutlineEntry{
        {Title: "Intro", Level: 1, Page: 0},
        {Title: "Details: Part One", Level: 2, Page: 2},
        {Title: "Chapter 2", Level: 1, Page: 4},
        {Title: "Appendix", Level: 1, Page: 8},
    }
    plan, err := ByBookmarks(10, outline)
    require.NoError(t, err)
    require.Len(t, plan, 3)
    assert.Equal(t, Range{Start: 0, End: 4, Label: "Intro"}, plan[0])
    assert.Equal(t, Range{Start: 4, End: 8, Label: "Chapter 2"}, plan[1])
    assert.Equal(t, Range{Start: 8, End: 10, Label: "Appendix"}, plan[2])
}

func TestByBookmarksNoOutline(t *testing.T) {
    _, err := ByBookmarks(10, nil)
    require.ErrorIs(t, err, ErrNoOutline)

    // only deeper levels present counts as no outline too
    _, err = ByBookmarks(10, []OutlineEntry{{Title: "x", Level: 2, Page: 1}})
    require.ErrorIs(t, err, ErrNoOutline)
}

func TestSmart(t *testing.T) {
    // pages 1 and 3 are near-empty, so breaks land after them
    lens := []int{400, 10, 350, 0, 500}
    plan, err := Smart(lens, 50)
    require.NoError(t, err)
    assert.Equal(t, Plan{
        {Start: 0, End: 2},
        {Start: 2, End: 4},
        {Start: 4, End: 5},
    }, plan)
}

func TestSmartCollapsesConsecutiveBlanks(t *testing.T) {
    lens := []int{100, 0, 0, 100}
    plan, err := Smart(lens, 50)
    require.NoError(t, err)
    assert.Equal(t, Plan{
        {Start: 0, End: 2},
        {Start: 2, End: 3},
        {Start: 3, End: 4},
    }, plan)
}

func TestSmartNoBreaks(t *testing.T) {
    plan, err := Smart([]int{100, 200, 300}, 50)
    require.NoError(t, err)
    assert.Equal(t, Plan{{Start: 0, End: 3}}, plan)
}

func TestSanitizeLabel(t *testing.T) {
    assert.Equal(t, "Chapter 1", SanitizeLabel("Chapter 1"))
    assert.Equal(t, "Notes part-2_b", SanitizeLabel("Notes: part-2_b?"))
    assert.Equal(t, "", SanitizeLabel("???"))
}

func TestConcat(t *testing.T) {
    order := Concat([]int{2, 1})
    assert.Equal(t, []MergeRef{
        {Source: 0, Page: 0},
        {Source: 0, Page: 1},
        {Source: 1, Page: 0},
    }, order)
}

func TestExplicit(t *testing.T) {
    counts := []int{3, 2}
    order, err := Explicit(counts, []MergeRef{
        {Source: 1, Page: 1},
        {Source: 0, Page: 0},
        {Source: 0, Page: 0},
    })
    require.NoError(t, err)
    require.Len(t, order, 3)

    var oor *PageOutOfRangeError
    _, err = Explicit(counts, []MergeRef{{Source: 2, Page: 0}})
    require.True(t, errors.As(err, &oor))
    assert.Equal(t, -1, oor.Total)

    _, err = Explicit(counts, []MergeRef{{Source: 1, Page: 2}})
    require.Error(t, err)
}
