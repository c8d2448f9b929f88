// Package errors provides error handling utilities for the gitarchive
// application.
//
// It defines the sentinel errors and typed errors used across the
// archival pipeline, built on top of github.com/pkg/errors for wrapping.
// Every failure surfaced by the tool falls into one of two families:
//
//   - ConfigError, wrapping ErrInvalidConfiguration: bad CLI input, an
//     unusable repository path, or a template referencing an unknown
//     keyword (ErrMissingKeyword).
//   - GitError, wrapping ErrGitOperationFailed: any git subcommand that
//     exited non-zero, with the captured stderr attached.
//
// The typed errors keep the underlying exec error in their chain, so
// callers can still discriminate exit codes with errors.As and
// *exec.ExitError where a non-zero exit is an expected answer rather
// than a failure (e.g. resolving a ref that may not exist yet).
package errors
