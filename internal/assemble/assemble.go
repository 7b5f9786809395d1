package assemble

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/local/pageforge/internal/arrange"
	"github.com/local/pageforge/internal/document"
	"github.com/local/pageforge/internal/metrics"
	"github.com/local/pageforge/internal/partition"
)

// pageSel addresses one output page: a source index, a 0-based page and
// an optional rotation override.
type pageSel struct {
	source   int
	page     int
	rotation int
}

// FromArrangement materializes an output document from the ordered page
// references of an arrangement. Page order and count in the output equal
// the reference sequence exactly; duplicated references become
// independent page copies. Document-level metadata follows the first
// source encountered. The output is committed only on full success.
func FromArrangement(ctx context.Context, docs []*document.Document, refs []arrange.PageRef, outPath string) error {
	start := time.Now()

	byID := make(map[string]int, len(docs))
	for i, d := range docs {
		byID[d.ID()] = i
	}

	sels := make([]pageSel, 0, len(refs))
	for _, ref := range refs {
		i, ok := byID[ref.SourceID]
		if !ok {
			metrics.ObserveAssembly("arrangement", "error", time.Since(start))
			return &document.SourceUnavailableError{Path: ref.SourceID}
		}
		if ref.PageIndex < 0 || ref.PageIndex >= docs[i].PageCount() {
			metrics.ObserveAssembly("arrangement", "error", time.Since(start))
			return &document.PageOutOfRangeError{Index: ref.PageIndex, Count: docs[i].PageCount()}
		}
		sels = append(sels, pageSel{source: i, page: ref.PageIndex, rotation: ref.Rotation})
	}

	paths := make([]string, len(docs))
	for i, d := range docs {
		paths[i] = d.Path()
	}

	err := assemble(ctx, paths, sels, outPath)
	if err != nil {
		metrics.ObserveAssembly("arrangement", "error", time.Since(start))
		return err
	}
	metrics.ObserveAssembly("arrangement", "ok", time.Since(start))
	log.Info().Str("output", outPath).Int("pages", len(refs)).Msg("assembled arrangement")
	return nil
}

// FromMerge materializes a single output from a cross-document merge
// ordering.
func FromMerge(ctx context.Context, docs []*document.Document, order []partition.MergeRef, outPath string) error {
	start := time.Now()

	counts := make([]int, len(docs))
	paths := make([]string, len(docs))
	for i, d := range docs {
		counts[i] = d.PageCount()
		paths[i] = d.Path()
	}
	validated, err := partition.Explicit(counts, order)
	if err != nil {
		metrics.ObserveAssembly("merge", "error", time.Since(start))
		return err
	}

	sels := make([]pageSel, len(validated))
	for i, ref := range validated {
		sels[i] = pageSel{source: ref.Source, page: ref.Page}
	}

	if err := assemble(ctx, paths, sels, outPath); err != nil {
		metrics.ObserveAssembly("merge", "error", time.Since(start))
		return err
	}
	metrics.ObserveAssembly("merge", "ok", time.Since(start))
	log.Info().Str("output", outPath).Int("pages", len(sels)).Int("sources", len(docs)).Msg("assembled merge")
	return nil
}

// assemble is the shared materialization path: consecutive same-source
// runs are collected in order (pdfcpu honors selection order and
// duplicates), rotation overrides applied per run, runs merged, and the
// result renamed into place. Everything up to the final rename happens
// in a scratch dir next to the output so the commit is a same-fs rename.
func assemble(ctx context.Context, sourcePaths []string, sels []pageSel, outPath string) error {
	if len(sels) == 0 {
		return &partition.InvalidParameterError{Param: "pages", Reason: "nothing to assemble"}
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	scratch, err := os.MkdirTemp(filepath.Dir(outPath), ".assemble-")
	if err != nil {
		return fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	var runFiles []string
	for runIdx, run := 0, splitRuns(sels); runIdx < len(run); runIdx++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		r := run[runIdx]

		pages := make([]string, len(r))
		for i, sel := range r {
			pages[i] = strconv.Itoa(sel.page + 1)
		}
		runOut := filepath.Join(scratch, fmt.Sprintf("run_%d.pdf", runIdx))
		if err := api.CollectFile(sourcePaths[r[0].source], runOut, pages, nil); err != nil {
			return fmt.Errorf("collect pages from %s: %w", sourcePaths[r[0].source], err)
		}

		// group output positions by rotation angle
		byAngle := map[int][]string{}
		for pos, sel := range r {
			if sel.rotation != 0 {
				byAngle[sel.rotation] = append(byAngle[sel.rotation], strconv.Itoa(pos+1))
			}
		}
		for angle, positions := range byAngle {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := api.RotateFile(runOut, "", angle, positions, nil); err != nil {
				return fmt.Errorf("rotate pages: %w", err)
			}
		}

		runFiles = append(runFiles, runOut)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	final := filepath.Join(scratch, "out.pdf")
	if len(runFiles) == 1 {
		final = runFiles[0]
	} else {
		// merge keeps the first file's document metadata
		if err := api.MergeCreateFile(runFiles, final, false, nil); err != nil {
			return fmt.Errorf("merge page runs: %w", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Rename(final, outPath); err != nil {
		return fmt.Errorf("commit output: %w", err)
	}
	return nil
}

// splitRuns groups consecutive selections that share a source.
func splitRuns(sels []pageSel) [][]pageSel {
	var runs [][]pageSel
	for _, sel := range sels {
		if n := len(runs); n > 0 && runs[n-1][0].source == sel.source {
			runs[n-1] = append(runs[n-1], sel)
			continue
		}
		runs = append(runs, []pageSel{sel})
	}
	return runs
}
