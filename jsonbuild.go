// Package jsonbuild incrementally builds JSON documents from path/value
// write operations. Each call supplies a dotted/bracketed path such as
// "$.user.roles[0]" and a value; missing objects and arrays along the path
// are created with the shape inferred from the next path component.
package jsonbuild

import (
	"encoding/json"
	"errors"
	"fmt"
)

// optValue carries the terminal value through a walk. It is unset for every
// step except the last; a grown array slot is filled within the same step,
// so no placeholder can leak into a result tree.
type optValue struct {
	v   any
	set bool
}

// Add writes value at path inside root, creating missing containers along
// the way. The tree is mutated in place and the same root reference is
// returned. Root and value must be JSON-serializable; on an error partway
// through a walk the tree keeps the containers already materialized (there
// is no rollback; see Builder's staged mode for transactional writes).
func Add(root any, path string, value any) (any, error) {
	if err := checkSerializable(root); err != nil {
		return root, err
	}
	p, err := compilePath(path)
	if err != nil {
		return root, err
	}
	if err := checkSerializable(value); err != nil {
		return root, err
	}
	return root, walkAdd(root, p, value)
}

// AddPath is Add with a pre-compiled path, for callers applying the same
// path shape in a loop. Validation order matches Add: root, then path, then
// value.
func AddPath(root any, p Path, value any) (any, error) {
	if err := checkSerializable(root); err != nil {
		return root, err
	}
	if p.IsZero() {
		return root, &InvalidPathError{Path: "", Pos: 0, Reason: "empty Path; use ParsePath"}
	}
	if err := checkSerializable(value); err != nil {
		return root, err
	}
	return root, walkAdd(root, p, value)
}

// slot records where the current node lives in its parent so grown arrays
// can be stored back. The root slot has a nil parent: every path begins with
// a key component, so the root container is only ever mutated in place,
// never replaced.
type slot struct {
	parent any
	key    string
	index  int
}

func (s slot) store(v any) {
	switch p := s.parent.(type) {
	case map[string]any:
		p[s.key] = v
	case []any:
		p[s.index] = v
	}
}

// walkAdd applies the component sequence to root with one-step lookahead,
// passing the real value only to the terminal component.
func walkAdd(root any, p Path, value any) error {
	cur := root
	curSlot := slot{}
	comps := p.comps
	for i := range comps {
		c := comps[i]
		var next *component
		if i+1 < len(comps) {
			next = &comps[i+1]
		}
		val := optValue{}
		if next == nil {
			val = optValue{v: value, set: true}
		}
		child, self, err := c.apply(cur, next, val)
		if err != nil {
			return withContext(err, p, root)
		}
		curSlot.store(self)
		if c.kind == compKey && c.key == rootKey {
			// Sentinel step: stay at the same node and slot.
			continue
		}
		if c.kind == compIndex {
			curSlot = slot{parent: self, index: c.index}
		} else {
			curSlot = slot{parent: self, key: c.key}
		}
		cur = child
	}
	return nil
}

// apply advances one path step against node. child is the node the walk
// descends into; self is the possibly-reallocated current container (array
// appends may reallocate), which the walker stores back into the parent
// slot.
func (c component) apply(node any, next *component, val optValue) (child, self any, err error) {
	if c.kind == compIndex {
		return c.applyIndex(node, next, val)
	}
	return c.applyKey(node, next, val)
}

func (c component) applyKey(node any, next *component, val optValue) (any, any, error) {
	obj, ok := node.(map[string]any)
	if !ok {
		return nil, node, &TypeMismatchError{Key: c.key}
	}
	if c.key == rootKey {
		// Root sentinel: skip the step. A terminal value is dropped here on
		// purpose; replacing the whole root is not a capability.
		return obj, obj, nil
	}
	if val.set {
		obj[c.key] = val.v
		return obj, obj, nil
	}
	if _, exists := obj[c.key]; !exists {
		if next != nil && next.kind == compIndex {
			obj[c.key] = []any{}
		} else {
			obj[c.key] = map[string]any{}
		}
	}
	// An existing value is descended into as-is; a wrong type surfaces at
	// the next step.
	return obj[c.key], obj, nil
}

func (c component) applyIndex(node any, next *component, val optValue) (any, any, error) {
	arr, ok := node.([]any)
	if !ok {
		return nil, node, &TypeMismatchError{Index: c.index, IsIndex: true}
	}
	if c.index > len(arr) {
		return nil, arr, &IndexGapError{Index: c.index, Len: len(arr)}
	}
	if val.set {
		if c.index == len(arr) {
			arr = append(arr, val.v)
		} else {
			arr[c.index] = val.v
		}
		return arr, arr, nil
	}
	if c.index == len(arr) {
		// Grow by exactly one slot, filled with the container the next
		// component needs.
		if next != nil && next.kind == compKey {
			arr = append(arr, map[string]any{})
		} else {
			arr = append(arr, []any{})
		}
	}
	return arr[c.index], arr, nil
}

// withContext stamps walk errors with the path and a snapshot of the
// (possibly partially mutated) tree, preserving the error kind.
func withContext(err error, p Path, root any) error {
	var tm *TypeMismatchError
	if errors.As(err, &tm) {
		tm.Path = p.String()
		tm.Root = snapshot(root)
		return tm
	}
	var gap *IndexGapError
	if errors.As(err, &gap) {
		gap.Path = p.String()
		gap.Root = snapshot(root)
		return gap
	}
	return err
}

// snapshot renders the tree compactly for error context.
func snapshot(root any) string {
	b, err := json.Marshal(root)
	if err != nil {
		return fmt.Sprintf("%v", root)
	}
	return string(b)
}
