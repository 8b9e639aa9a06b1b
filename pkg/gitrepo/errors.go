// pkg/gitrepo/errors.go - structured error kinds for repository synchronization.

package gitrepo

import (
	"errors"
	"fmt"
)

// ErrorKind is a closed enumeration of the ways synchronization can fail.
// Callers branch on the kind instead of parsing message strings.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	// KindToolUnavailable means the git client is missing or too old.
	KindToolUnavailable
	// KindUnsafeOverwrite means the target directory is non-empty but is
	// not a repository; cloning into it would risk data loss.
	KindUnsafeOverwrite
	KindCloneFailed
	KindFetchFailed
	KindResetFailed
)

// String returns the string representation of the ErrorKind.
func (k ErrorKind) String() string {
	switch k {
	case KindToolUnavailable:
		return "ToolUnavailable"
	case KindUnsafeOverwrite:
		return "UnsafeOverwrite"
	case KindCloneFailed:
		return "CloneFailed"
	case KindFetchFailed:
		return "FetchFailed"
	case KindResetFailed:
		return "ResetFailed"
	default:
		return "Unknown"
	}
}

// SyncError carries the failure kind plus the context an operator needs:
// the path and URL involved and the native exit code of the git client.
type SyncError struct {
	Kind     ErrorKind
	Path     string
	URL      string
	ExitCode int
	Output   string
	Err      error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	msg := fmt.Sprintf("%s: path=%s", e.Kind, e.Path)
	if e.URL != "" {
		msg += fmt.Sprintf(" url=%s", e.URL)
	}
	if e.ExitCode != 0 {
		msg += fmt.Sprintf(" exit=%d", e.ExitCode)
	}
	if e.Err != nil {
		msg += fmt.Sprintf(": %v", e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// Kind extracts the ErrorKind from err, or KindUnknown if err is not a
// SyncError.
func Kind(err error) ErrorKind {
	var se *SyncError
	if errors.As(err, &se) {
		return se.Kind
	}
	return KindUnknown
}
