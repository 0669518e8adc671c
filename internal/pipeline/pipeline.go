// Package pipeline fans segments out to the synthesis client under a
// concurrency cap and collects the resulting audio part files in input
// order. A run either produces every part or none: any failure removes the
// parts already written before it is surfaced.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/example/go-narrate/internal/text"
	"github.com/example/go-narrate/internal/tts"
)

// Part is the synthesized audio file for exactly one segment. Parts map
// one-to-one to segments by index; the file name encodes the index so the
// input order is recoverable regardless of completion order.
type Part struct {
	Index int
	Path  string
}

// SynthesisError reports a segment whose synthesis exhausted its retries.
type SynthesisError struct {
	Index int
	Err   error
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("segment %d: %v", e.Index, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// Error is a run-level failure. By the time it is returned, every part file
// the run wrote has been removed (best effort).
type Error struct {
	Index int // failing segment index, -1 if unknown
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("pipeline failed at segment %d: %v", e.Index, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Runner schedules segment synthesis. Part files are written as
// <OutputDir>/<Prefix>_part<N>.<Extension> with N = segment index + 1.
type Runner struct {
	Synth       tts.Synthesizer
	Concurrency int
	OutputDir   string
	Prefix      string
	Extension   string

	// OnProgress, when set, is called once per successfully synthesized
	// segment with the number completed so far and the total. Completion
	// order is not index order.
	OnProgress func(done, total int, part Part)

	Logger *slog.Logger
}

// Run synthesizes every segment and returns the parts in segment order.
// At most Concurrency segments are in flight at once; remaining segments
// are admitted in input order as slots free up. On any failure the shared
// context is cancelled, in-flight results are discarded, written part files
// are deleted, and a *Error carrying the failing index is returned.
func (r *Runner) Run(ctx context.Context, segments []text.Segment) ([]Part, error) {
	if len(segments) == 0 {
		return nil, nil
	}

	limit := r.Concurrency
	if limit < 1 {
		limit = 1
	}

	parts := make([]Part, len(segments))

	var mu sync.Mutex
	completed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for _, seg := range segments {
		seg := seg
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			audio, err := r.Synth.Synthesize(gctx, seg.Text)
			if err != nil {
				return &SynthesisError{Index: seg.Index, Err: err}
			}

			path := r.partPath(seg.Index)
			if err := os.WriteFile(path, audio, 0o644); err != nil {
				return &SynthesisError{Index: seg.Index, Err: fmt.Errorf("write part file: %w", err)}
			}
			part := Part{Index: seg.Index, Path: path}
			parts[seg.Index] = part

			mu.Lock()
			completed++
			done := completed
			mu.Unlock()
			if r.OnProgress != nil {
				r.OnProgress(done, len(segments), part)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		r.removeParts(len(segments))

		index := -1
		var serr *SynthesisError
		if errors.As(err, &serr) {
			index = serr.Index
		}
		return nil, &Error{Index: index, Err: err}
	}

	return parts, nil
}

func (r *Runner) partPath(index int) string {
	return filepath.Join(r.OutputDir, fmt.Sprintf("%s_part%d.%s", r.Prefix, index+1, r.Extension))
}

// removeParts deletes every part file the run may have written. Deletion
// failures are logged and swallowed; they cannot affect the outcome of an
// already failed run.
func (r *Runner) removeParts(n int) {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}

	for i := 0; i < n; i++ {
		path := r.partPath(i)
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			logger.Warn("failed to remove part file", "path", path, "error", err)
		}
	}
}
