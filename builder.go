package jsonbuild

import (
	"errors"
	"fmt"

	gyaml "github.com/goccy/go-yaml"
)

// Op is one write operation for Builder.Apply.
type Op struct {
	Path  string
	Value any
}

// Options configures a Builder. The zero value is a plain in-place builder.
type Options struct {
	// Ordered maintains a parallel insertion-ordered view of the tree, used
	// by Marshal and MarshalYAML so object keys keep the order they were
	// written (or the order of the seed document).
	Ordered bool

	// Staged makes the builder work on a private clone of the root. Commit
	// publishes the clone; until then the caller's tree is never touched.
	Staged bool

	// ContinueOnError makes Apply record a failed op and keep going instead
	// of aborting the batch.
	ContinueOnError bool
}

// Builder accumulates path/value writes against one tree. It is not safe for
// concurrent use; distinct Builders over distinct trees are independent.
type Builder struct {
	root any
	opts Options
	errs []error

	// staged mode keeps the last committed tree for rollback
	orig any

	// ordered mode shadow views
	shadow     any
	origShadow any
}

// NewBuilder starts a builder over root. A nil root starts an empty object;
// nil opts means defaults. Root serializability is checked once here rather
// than on every Add.
func NewBuilder(root any, opts *Options) (*Builder, error) {
	if root == nil {
		root = map[string]any{}
	}
	if err := checkSerializable(root); err != nil {
		return nil, err
	}
	b := &Builder{root: root}
	if opts != nil {
		b.opts = *opts
	}
	if b.opts.Staged {
		b.orig = root
		b.root = Clone(root)
	}
	if b.opts.Ordered {
		b.shadow = toOrderedValue(b.root)
		if b.opts.Staged {
			b.origShadow = b.shadow
			b.shadow = Clone(b.shadow)
		}
	}
	return b, nil
}

// NewBuilderFromJSON starts a builder seeded from a JSON document. In ordered
// mode the shadow view is decoded straight from the bytes, so existing keys
// keep the document's own order rather than a sorted one.
func NewBuilderFromJSON(data []byte, opts *Options) (*Builder, error) {
	root, err := DecodeDocument(data)
	if err != nil {
		return nil, err
	}
	b := &Builder{root: root}
	if opts != nil {
		b.opts = *opts
	}
	if b.opts.Staged {
		b.orig = root
		b.root = Clone(root)
	}
	if b.opts.Ordered {
		var shadow any
		if err := gyaml.UnmarshalWithOptions(data, &shadow, gyaml.UseOrderedMap()); err != nil {
			return nil, fmt.Errorf("jsonbuild: ordered view: %w", err)
		}
		b.shadow = shadow
		if b.opts.Staged {
			b.origShadow = b.shadow
			b.shadow = Clone(b.shadow)
		}
	}
	return b, nil
}

// Add writes value at path, recording any error for Err and Commit.
func (b *Builder) Add(path string, value any) error {
	p, err := compilePath(path)
	if err != nil {
		return b.record(err)
	}
	return b.AddPath(p, value)
}

// AddPath is Add with a pre-compiled path.
func (b *Builder) AddPath(p Path, value any) error {
	if p.IsZero() {
		return b.record(&InvalidPathError{Path: "", Pos: 0, Reason: "empty Path; use ParsePath"})
	}
	if err := checkSerializable(value); err != nil {
		return b.record(err)
	}
	if err := walkAdd(b.root, p, value); err != nil {
		return b.record(err)
	}
	if b.opts.Ordered {
		shadow, err := orderedSet(b.shadow, p, value)
		if err != nil {
			return b.record(err)
		}
		b.shadow = shadow
	}
	return nil
}

// Apply runs a batch of ops in order. Without ContinueOnError the batch stops
// at the first failure; either way the returned error joins the failures from
// this batch only.
func (b *Builder) Apply(ops []Op) error {
	n := len(b.errs)
	for _, op := range ops {
		if err := b.Add(op.Path, op.Value); err != nil && !b.opts.ContinueOnError {
			break
		}
	}
	return errors.Join(b.errs[n:]...)
}

func (b *Builder) record(err error) error {
	b.errs = append(b.errs, err)
	return err
}

// Err joins every error recorded since the last Commit.
func (b *Builder) Err() error {
	return errors.Join(b.errs...)
}

// Root returns the live working tree. In staged mode this is the staging
// clone, not the tree passed to NewBuilder.
func (b *Builder) Root() any {
	return b.root
}

// Commit ends the current batch and clears the recorded errors.
//
// Staged mode is transactional: a clean build publishes the staged tree and
// starts a new stage on top of it; a build with errors returns the last
// committed tree untouched, rolls the stage back to it, and reports the
// joined errors. Unstaged mode just returns the live tree and the errors.
func (b *Builder) Commit() (any, error) {
	err := b.Err()
	b.errs = nil
	if !b.opts.Staged {
		return b.root, err
	}
	if err != nil {
		b.root = Clone(b.orig)
		if b.opts.Ordered {
			b.shadow = Clone(b.origShadow)
		}
		return b.orig, err
	}
	out := b.root
	b.orig = out
	b.root = Clone(out)
	if b.opts.Ordered {
		b.origShadow = b.shadow
		b.shadow = Clone(b.shadow)
	}
	return out, nil
}

// Marshal renders the working tree as compact JSON. In ordered mode object
// keys appear in insertion order; otherwise keys are sorted.
func (b *Builder) Marshal() ([]byte, error) {
	return EncodeJSON(b.view())
}

// MarshalIndent is Marshal with pretty-printed output.
func (b *Builder) MarshalIndent() ([]byte, error) {
	return EncodeJSONIndent(b.view())
}

// MarshalYAML renders the working tree as YAML.
func (b *Builder) MarshalYAML() ([]byte, error) {
	return EncodeYAML(b.view())
}

func (b *Builder) view() any {
	if b.opts.Ordered {
		return b.shadow
	}
	return b.root
}
