// Package doctor provides environment preflight checks for narrate.
package doctor

import (
	"fmt"
	"io"
	"os/exec"
	"strings"
)

// PassMark and FailMark are the prefix symbols printed for each check result.
const (
	PassMark = "✓"
	FailMark = "✗"
)

// VersionFunc returns a version string or an error if the component is unavailable.
type VersionFunc func() (string, error)

// Config holds injectable dependencies for each doctor check.
type Config struct {
	// FFmpegVersion returns the first line of `ffmpeg -version`.
	FFmpegVersion VersionFunc
	// APIKeySet reports whether a synthesis API key is configured.
	APIKeySet bool
	// LoadEncoding loads the tokenizer encoding table.
	LoadEncoding func() error
}

// Result collects the outcome of all checks.
type Result struct {
	failures []string
}

// Failed returns true if any check failed.
func (r *Result) Failed() bool { return len(r.failures) > 0 }

// Failures returns the list of failure messages.
func (r *Result) Failures() []string { return append([]string(nil), r.failures...) }

func (r *Result) fail(msg string) { r.failures = append(r.failures, msg) }

// Run executes all configured checks and writes human-readable output to w.
// Each check line is prefixed with PassMark or FailMark.
func Run(cfg Config, w io.Writer) Result {
	var res Result

	// ---- ffmpeg binary ----------------------------------------------------
	ver, err := cfg.FFmpegVersion()
	if err != nil {
		res.fail(fmt.Sprintf("ffmpeg binary: %v", err))
		fmt.Fprintf(w, "%s ffmpeg binary: not found (%v)\n", FailMark, err)
	} else {
		fmt.Fprintf(w, "%s ffmpeg binary: %s\n", PassMark, ver)
	}

	// ---- API key ------------------------------------------------------
	if cfg.APIKeySet {
		fmt.Fprintf(w, "%s speech API key: configured\n", PassMark)
	} else {
		res.fail("speech API key: not configured")
		fmt.Fprintf(w, "%s speech API key: not configured (set OPENAI_API_KEY or tts.api_key)\n", FailMark)
	}

	// ---- encoding table -----------------------------------------------
	if cfg.LoadEncoding != nil {
		if err := cfg.LoadEncoding(); err != nil {
			res.fail(fmt.Sprintf("encoding table: %v", err))
			fmt.Fprintf(w, "%s encoding table: cannot load (%v)\n", FailMark, err)
		} else {
			fmt.Fprintf(w, "%s encoding table: loaded\n", PassMark)
		}
	}

	return res
}

// FFmpegVersionFromPath returns a VersionFunc that runs `<path> -version`
// and extracts its first line.
func FFmpegVersionFromPath(path string) VersionFunc {
	return func() (string, error) {
		out, err := exec.Command(path, "-version").Output()
		if err != nil {
			return "", err
		}
		line, _, _ := strings.Cut(strings.TrimSpace(string(out)), "\n")
		return strings.TrimSpace(line), nil
	}
}
