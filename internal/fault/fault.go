// Package fault defines the error kinds shared by the collect, merge, and
// verify operations. Every fatal condition in the core carries exactly one
// kind, and the CLI maps each kind to a stable non-zero exit code so that
// schedulers invoking casket can distinguish failure classes without parsing
// output.
package fault

import (
	"errors"
	"fmt"
)

// Kind identifies a class of fatal failure.
type Kind string

const (
	InvalidInput           Kind = "invalid_input"
	IOFailure              Kind = "io_failure"
	MissingBundleComponent Kind = "missing_bundle_component"
	NoBundlesFound         Kind = "no_bundles_found"
	MalformedIndex         Kind = "malformed_index"
	MalformedManifestLine  Kind = "malformed_manifest_line"
	MissingBlob            Kind = "missing_blob"
	MissingManifest        Kind = "missing_manifest"
	MissingFile            Kind = "missing_file"
	HashMismatch           Kind = "hash_mismatch"
	UnsafePath             Kind = "unsafe_path"
)

// exitCodes maps each kind to its process exit code. Codes are part of the
// external contract and must not be reassigned.
var exitCodes = map[Kind]int{
	InvalidInput:           2,
	IOFailure:              3,
	MissingBundleComponent: 4,
	NoBundlesFound:         5,
	MalformedIndex:         6,
	MalformedManifestLine:  7,
	MissingBlob:            8,
	MissingManifest:        9,
	MissingFile:            10,
	HashMismatch:           11,
	UnsafePath:             12,
}

// Error is a fatal core error tagged with a Kind.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports kind equality, so errors.Is(err, fault.Of(fault.HashMismatch))
// matches any HashMismatch regardless of its wrapped cause.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// New creates a tagged error from a formatted message.
func New(kind Kind, format string, args ...any) error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Wrap tags an underlying error with a kind. A nil err returns nil.
func Wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// Of returns a bare kind-only error, usable as an errors.Is target.
func Of(kind Kind) error {
	return &Error{Kind: kind, Err: errors.New(string(kind))}
}

// KindOf extracts the kind from err, or "" if err carries none.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// ExitCode returns the process exit code for err: 0 for nil, the kind's
// registered code for tagged errors, and 1 for anything untagged.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	if code, ok := exitCodes[KindOf(err)]; ok {
		return code
	}
	return 1
}
