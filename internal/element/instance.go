package element

import (
	"context"
	"fmt"
)

// resolved is the live value stored for one declared name.
type resolved struct {
	kind    Kind
	nested  bool
	handle  Handle
	handles []Handle
	block   *Instance
	blocks  []*Instance
}

// Instance is a PageDescriptor resolved against the live document. It is valid
// until the next navigation; after that, resolve the descriptor again.
type Instance struct {
	descriptor *PageDescriptor
	root       Handle
	values     map[string]resolved
	primary    []Handle
	mandatory  []*Instance
}

// Resolve asks p for the handles of every element in desc, descending into
// blocks, and computes the primary element set.
func Resolve(ctx context.Context, desc *PageDescriptor, p Provider) (*Instance, error) {
	if desc == nil {
		return nil, fmt.Errorf("resolve: nil page descriptor")
	}
	if p == nil {
		return nil, fmt.Errorf("resolve %q: nil handle provider", desc.Name())
	}
	return resolve(ctx, desc, p, nil, desc.Name())
}

func resolve(ctx context.Context, desc *PageDescriptor, p Provider, scope Handle, path string) (*Instance, error) {
	inst := &Instance{
		descriptor: desc,
		root:       scope,
		values:     make(map[string]resolved, len(desc.elements)),
	}

	for _, d := range desc.elements {
		elemPath := path + "/" + d.Name
		var r resolved
		r.kind = d.Kind
		r.nested = d.Nested != nil

		switch {
		case d.Kind == Single:
			h, err := p.Find(ctx, scope, d)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", elemPath, err)
			}
			r.handle = h

		case d.Kind == ListOf && d.Nested == nil:
			hs, err := p.FindAll(ctx, scope, d)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", elemPath, err)
			}
			r.handles = hs

		case d.IsBlockList():
			roots, err := p.FindAll(ctx, scope, d)
			if err != nil {
				return nil, fmt.Errorf("resolve %s: %w", elemPath, err)
			}
			r.handles = roots
			for i, root := range roots {
				child, err := resolve(ctx, d.Nested, p, root, fmt.Sprintf("%s[%d]", elemPath, i))
				if err != nil {
					return nil, err
				}
				r.blocks = append(r.blocks, child)
			}

		case d.Kind == Block:
			root := scope
			if !d.Locator.IsZero() {
				h, err := p.Find(ctx, scope, d)
				if err != nil {
					return nil, fmt.Errorf("resolve %s: %w", elemPath, err)
				}
				root = h
			}
			child, err := resolve(ctx, d.Nested, p, root, elemPath)
			if err != nil {
				return nil, err
			}
			r.block = child
		}

		inst.values[d.Name] = r
		if !d.Optional {
			inst.collectPrimary(r)
		}
	}
	return inst, nil
}

// collectPrimary appends the non-optional leaves of r, flattening lists and
// descending into blocks.
func (i *Instance) collectPrimary(r resolved) {
	switch {
	case r.kind == Single:
		i.primary = append(i.primary, r.handle)
	case r.kind == ListOf && !r.nested:
		i.primary = append(i.primary, r.handles...)
	case r.kind == ListOf:
		for _, b := range r.blocks {
			i.primary = append(i.primary, b.primary...)
			i.mandatory = append(i.mandatory, b)
		}
	case r.kind == Block:
		i.primary = append(i.primary, r.block.primary...)
		i.mandatory = append(i.mandatory, r.block)
	}
}

// Name returns the name of the underlying page or block type.
func (i *Instance) Name() string { return i.descriptor.Name() }

// Descriptor returns the descriptor this instance was resolved from.
func (i *Instance) Descriptor() *PageDescriptor { return i.descriptor }

// Root returns the scope handle of a block instance, or nil for a page or for
// a block declared without a locator at page level.
func (i *Instance) Root() Handle { return i.root }

// Names returns the declared names in declaration order.
func (i *Instance) Names() []string {
	names := make([]string, 0, len(i.descriptor.elements))
	for _, d := range i.descriptor.elements {
		names = append(names, d.Name)
	}
	return names
}

func (i *Instance) lookup(name string, want Kind) (resolved, error) {
	r, ok := i.values[name]
	if !ok {
		return resolved{}, &ElementNotFoundError{Owner: i.Name(), Name: name, Want: want}
	}
	if r.kind != want {
		return resolved{}, &ElementNotFoundError{Owner: i.Name(), Name: name, Want: want, Declared: true, Actual: r.kind}
	}
	return r, nil
}

// Element returns the handle of a single element.
func (i *Instance) Element(name string) (Handle, error) {
	r, err := i.lookup(name, Single)
	if err != nil {
		return nil, err
	}
	return r.handle, nil
}

// ElementList returns the handles of a list. For a list of blocks these are
// the block root handles.
func (i *Instance) ElementList(name string) ([]Handle, error) {
	r, err := i.lookup(name, ListOf)
	if err != nil {
		return nil, err
	}
	out := make([]Handle, len(r.handles))
	copy(out, r.handles)
	return out, nil
}

// Block returns a nested block instance.
func (i *Instance) Block(name string) (*Instance, error) {
	r, err := i.lookup(name, Block)
	if err != nil {
		return nil, err
	}
	return r.block, nil
}

// BlockList returns the item instances of a list of blocks.
func (i *Instance) BlockList(name string) ([]*Instance, error) {
	r, err := i.lookup(name, ListOf)
	if err != nil {
		return nil, err
	}
	if !r.nested {
		return nil, &ElementNotFoundError{Owner: i.Name(), Name: name, Want: Block, Declared: true, Actual: ListOf}
	}
	out := make([]*Instance, len(r.blocks))
	copy(out, r.blocks)
	return out, nil
}

// PrimaryElements returns the non-optional leaf handles computed at resolve
// time. The returned slice is a copy.
func (i *Instance) PrimaryElements() []Handle {
	out := make([]Handle, len(i.primary))
	copy(out, i.primary)
	return out
}

// MandatoryBlocks returns the non-optional nested block instances, including
// the items of non-optional block lists, in declaration order.
func (i *Instance) MandatoryBlocks() []*Instance {
	out := make([]*Instance, len(i.mandatory))
	copy(out, i.mandatory)
	return out
}
