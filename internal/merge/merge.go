// Package merge drives the external concatenation tool and the temp-file
// cleanup protocol. Part files are concatenated with ffmpeg's concat
// demuxer in stream-copy mode, so the parts must share codec parameters and
// no re-encoding ever happens here.
package merge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/example/go-narrate/internal/pipeline"
)

// ManifestName is the transient concat list written next to the output
// file. It is removed after every merge attempt, successful or not.
const ManifestName = "concat_list.txt"

// Error reports a failed concatenation run. The unmerged part files are
// intentionally left on disk when this is returned, for inspection.
type Error struct {
	Output string // trailing tool stderr, if any
	Err    error
}

func (e *Error) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("ffmpeg concat failed: %v: %s", e.Err, e.Output)
	}
	return fmt.Sprintf("ffmpeg concat failed: %v", e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// CleanupWarning records a temporary file that could not be removed.
// Warnings are reported and logged, never escalated to a run failure.
type CleanupWarning struct {
	Path string
	Err  error
}

// Merger invokes the external concatenation tool.
type Merger struct {
	// FFmpegPath overrides the tool binary; default is "ffmpeg" from PATH.
	FFmpegPath string

	Logger *slog.Logger

	// Run is replaced by tests. It executes the tool and returns its
	// stderr output alongside the execution error.
	Run func(ctx context.Context, name string, args ...string) ([]byte, error)
}

// Merge concatenates parts, in slice order, into outputPath. The manifest
// is written next to the output and removed regardless of outcome. A tool
// failure (non-zero exit or spawn error) returns a *Error and leaves the
// part files alone.
func (m *Merger) Merge(ctx context.Context, parts []pipeline.Part, outputPath string) error {
	if len(parts) == 0 {
		return &Error{Err: errors.New("no parts to merge")}
	}

	manifest := filepath.Join(filepath.Dir(outputPath), ManifestName)
	if err := writeManifest(manifest, parts); err != nil {
		return &Error{Err: fmt.Errorf("write concat manifest: %w", err)}
	}
	defer func() {
		if err := os.Remove(manifest); err != nil && !errors.Is(err, os.ErrNotExist) {
			m.logger().Warn("failed to remove concat manifest", "path", manifest, "error", err)
		}
	}()

	args := []string{
		"-nostdin", "-y",
		"-f", "concat", "-safe", "0",
		"-i", manifest,
		"-c", "copy",
		outputPath,
	}
	out, err := m.run(ctx, m.ffmpegPath(), args...)
	if err != nil {
		return &Error{Output: tail(out, 512), Err: err}
	}
	return nil
}

// CleanupParts removes every part file after a successful merge. Individual
// failures are logged and returned as warnings; the merged output already
// exists at this point, so they never fail the run.
func (m *Merger) CleanupParts(parts []pipeline.Part) []CleanupWarning {
	var warnings []CleanupWarning
	for _, p := range parts {
		if err := os.Remove(p.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			warnings = append(warnings, CleanupWarning{Path: p.Path, Err: err})
			m.logger().Warn("failed to remove part file", "path", p.Path, "error", err)
		}
	}
	return warnings
}

func (m *Merger) ffmpegPath() string {
	if m.FFmpegPath != "" {
		return m.FFmpegPath
	}
	return "ffmpeg"
}

func (m *Merger) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func (m *Merger) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if m.Run != nil {
		return m.Run(ctx, name, args...)
	}

	cmd := exec.CommandContext(ctx, name, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stderr.Bytes(), err
}

// writeManifest emits one `file '<path>'` line per part, in slice order,
// the format ffmpeg's concat demuxer expects.
func writeManifest(path string, parts []pipeline.Part) error {
	var b strings.Builder
	for _, p := range parts {
		fmt.Fprintf(&b, "file '%s'\n", p.Path)
	}
	return os.WriteFile(path, []byte(b.String()), 0o644)
}

// tail returns at most n trailing bytes of out as a trimmed string.
func tail(out []byte, n int) string {
	s := strings.TrimSpace(string(out))
	if len(s) > n {
		s = s[len(s)-n:]
	}
	return s
}
