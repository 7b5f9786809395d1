package assemble

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rs/zerolog/log"

	"github.com/local/pageforge/internal/document"
	"github.com/local/pageforge/internal/metrics"
	"github.com/local/pageforge/internal/partition"
)

// Split materializes one output document per plan range into outDir.
// Labeled ranges name their own file; unlabeled ranges fall back to
// prefix_N.pdf. All outputs are written to a scratch dir first and
// renamed into place only after every range succeeded, so an abort never
// leaves a partial result set behind.
func Split(ctx context.Context, doc *document.Document, plan partition.Plan, outDir, prefix string) ([]string, error) {
	start := time.Now()

	if len(plan) == 0 {
		metrics.ObserveAssembly("split", "error", time.Since(start))
		return nil, &partition.InvalidParameterError{Param: "plan", Reason: "no ranges"}
	}
	for _, r := range plan {
		if r.Start < 0 || r.End > doc.PageCount() || r.Start >= r.End {
			metrics.ObserveAssembly("split", "error", time.Since(start))
			return nil, &document.PageOutOfRangeError{Index: r.Start, Count: doc.PageCount()}
		}
	}
	if prefix == "" {
		prefix = "part"
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		metrics.ObserveAssembly("split", "error", time.Since(start))
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	scratch, err := os.MkdirTemp(outDir, ".split-")
	if err != nil {
		metrics.ObserveAssembly("split", "error", time.Since(start))
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer os.RemoveAll(scratch)

	names := make([]string, len(plan))
	used := map[string]int{}
	for i, r := range plan {
		if err := ctx.Err(); err != nil {
			metrics.ObserveAssembly("split", "cancelled", time.Since(start))
			return nil, err
		}
		names[i] = rangeFileName(prefix, i, r, used)
		sel := []string{fmt.Sprintf("%d-%d", r.Start+1, r.End)}
		tmp := filepath.Join(scratch, names[i])
		if err := api.TrimFile(doc.Path(), tmp, sel, nil); err != nil {
			metrics.ObserveAssembly("split", "error", time.Since(start))
			return nil, fmt.Errorf("extract pages %d-%d: %w", r.Start+1, r.End, err)
		}
	}

	// commit phase
	outputs := make([]string, len(plan))
	for i, name := range names {
		dst := filepath.Join(outDir, name)
		if err := os.Rename(filepath.Join(scratch, name), dst); err != nil {
			// roll back anything already committed
			for _, done := range outputs[:i] {
				_ = os.Remove(done)
			}
			metrics.ObserveAssembly("split", "error", time.Since(start))
			return nil, fmt.Errorf("commit %s: %w", name, err)
		}
		outputs[i] = dst
	}

	metrics.ObserveAssembly("split", "ok", time.Since(start))
	log.Info().Str("source", doc.Path()).Int("parts", len(outputs)).Str("dir", outDir).Msg("split document")
	return outputs, nil
}

// rangeFileName picks a unique file name for range i. Bookmark labels
// may sanitize to the same string, so repeats get a numeric suffix
// instead of overwriting each other.
func rangeFileName(prefix string, i int, r partition.Range, used map[string]int) string {
	base := fmt.Sprintf("%s_%d", prefix, i+1)
	if r.Label != "" {
		base = r.Label
	}
	used[base]++
	if n := used[base]; n > 1 {
		return fmt.Sprintf("%s_%d.pdf", base, n)
	}
	return base + ".pdf"
}
