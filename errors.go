package jsonbuild

import (
	"errors"
	"fmt"
)

// Sentinel errors for errors.Is checks. Every error returned by this package
// is one of the typed errors below, each of which unwraps to its sentinel.
var (
	ErrNotSerializable = errors.New("jsonbuild: not JSON-serializable")
	ErrInvalidPath     = errors.New("jsonbuild: invalid path")
	ErrTypeMismatch    = errors.New("jsonbuild: type mismatch")
	ErrIndexGap        = errors.New("jsonbuild: index gap")
)

// NotSerializableError reports a root or value that encoding/json rejects.
// It is returned before any mutation, so the tree is untouched.
type NotSerializableError struct {
	Cause error
}

func (e *NotSerializableError) Error() string {
	return fmt.Sprintf("jsonbuild: object is not JSON-serializable: %v", e.Cause)
}

func (e *NotSerializableError) Unwrap() error { return ErrNotSerializable }

// InvalidPathError reports a path string that does not match the dialect.
// Pos is the byte offset of the offending character.
type InvalidPathError struct {
	Path   string
	Pos    int
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("jsonbuild: invalid path %q at offset %d: %s", e.Path, e.Pos, e.Reason)
}

func (e *InvalidPathError) Unwrap() error { return ErrInvalidPath }

// TypeMismatchError reports a path step applied to the wrong container kind:
// a key step on a non-object node, or an index step on a non-array node.
// Path and Root are filled in by the walker; Root is a compact JSON snapshot
// of the tree at failure time, which may already be partially mutated.
type TypeMismatchError struct {
	Key     string
	Index   int
	IsIndex bool
	Path    string
	Root    string
}

func (e *TypeMismatchError) Error() string {
	var msg string
	if e.IsIndex {
		msg = fmt.Sprintf("jsonbuild: cannot insert at index %d: node is not an array", e.Index)
	} else {
		msg = fmt.Sprintf("jsonbuild: cannot insert key %q: node is not an object", e.Key)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" (path %q, root %s)", e.Path, e.Root)
	}
	return msg
}

func (e *TypeMismatchError) Unwrap() error { return ErrTypeMismatch }

// IndexGapError reports an index past the end of an array. Arrays grow by
// appending at exactly the current length; gaps are never allowed.
type IndexGapError struct {
	Index int
	Len   int
	Path  string
	Root  string
}

func (e *IndexGapError) Error() string {
	msg := fmt.Sprintf("jsonbuild: index %d out of range: array has %d elements and previous indexes are not set", e.Index, e.Len)
	if e.Path != "" {
		msg += fmt.Sprintf(" (path %q, root %s)", e.Path, e.Root)
	}
	return msg
}

func (e *IndexGapError) Unwrap() error { return ErrIndexGap }
