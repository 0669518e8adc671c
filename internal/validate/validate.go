// Package validate checks an input text file before any synthesis work
// starts: path safety, readability, size, encoding, and non-emptiness.
package validate

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// Error describes why an input file was rejected.
type Error struct {
	Path   string
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid input %s: %s: %v", e.Path, e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid input %s: %s", e.Path, e.Reason)
}

func (e *Error) Unwrap() error { return e.Err }

// Options bound what counts as an acceptable input file.
type Options struct {
	// MaxBytes rejects files larger than this size. Zero disables the check.
	MaxBytes int64
	// AllowedRoot, when non-empty, rejects files outside this directory.
	AllowedRoot string
}

// ReadFile validates path against opts and returns the trimmed UTF-8
// content. Every rejection is reported as a *Error with the reason.
func ReadFile(path string, opts Options) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", &Error{Path: path, Reason: "cannot resolve path", Err: err}
	}

	if opts.AllowedRoot != "" {
		root, err := filepath.Abs(opts.AllowedRoot)
		if err != nil {
			return "", &Error{Path: path, Reason: "cannot resolve allowed root", Err: err}
		}
		if !underRoot(root, abs) {
			return "", &Error{Path: path, Reason: fmt.Sprintf("file must be located under %s", root)}
		}
	}

	info, err := os.Stat(abs)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return "", &Error{Path: path, Reason: "file does not exist"}
	case err != nil:
		return "", &Error{Path: path, Reason: "cannot stat file", Err: err}
	case !info.Mode().IsRegular():
		return "", &Error{Path: path, Reason: "not a regular file"}
	}
	if opts.MaxBytes > 0 && info.Size() > opts.MaxBytes {
		return "", &Error{Path: path, Reason: fmt.Sprintf("file too large (%d bytes, limit %d)", info.Size(), opts.MaxBytes)}
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return "", &Error{Path: path, Reason: "cannot read file", Err: err}
	}
	if !utf8.Valid(data) {
		return "", &Error{Path: path, Reason: "file is not valid UTF-8"}
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return "", &Error{Path: path, Reason: "file is empty"}
	}
	return content, nil
}

// underRoot reports whether abs is root itself or inside it. Both arguments
// must already be absolute, cleaned paths.
func underRoot(root, abs string) bool {
	rel, err := filepath.Rel(root, abs)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
