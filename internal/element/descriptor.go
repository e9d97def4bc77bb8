package element

import (
	"fmt"
	"strings"
)

// maxBlockDepth bounds block nesting so a source that contains itself fails
// instead of recursing forever.
const maxBlockDepth = 32

// Kind is the classified type of a declared element.
type Kind int

const (
	Single Kind = iota
	ListOf
	Block
)

func (k Kind) String() string {
	switch k {
	case Single:
		return "element"
	case ListOf:
		return "list"
	case Block:
		return "block"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Descriptor is the classified metadata of one element.
type Descriptor struct {
	Name     string
	Kind     Kind
	Optional bool
	Locator  Locator
	// Nested is set for blocks and for lists whose items are blocks.
	Nested *PageDescriptor
}

// IsBlockList reports whether d is a list of nested blocks.
func (d Descriptor) IsBlockList() bool { return d.Kind == ListOf && d.Nested != nil }

// PageDescriptor is the immutable, ordered set of element descriptors of a page
// or block type.
type PageDescriptor struct {
	name     string
	elements []Descriptor
	index    map[string]int
}

// Name returns the page or block type name.
func (p *PageDescriptor) Name() string { return p.name }

// Descriptor returns p itself, so a bare descriptor can be registered as a page.
func (p *PageDescriptor) Descriptor() *PageDescriptor { return p }

// Len returns the number of declared elements.
func (p *PageDescriptor) Len() int { return len(p.elements) }

// Elements returns the descriptors in declaration order.
func (p *PageDescriptor) Elements() []Descriptor {
	out := make([]Descriptor, len(p.elements))
	copy(out, p.elements)
	return out
}

// Lookup finds a descriptor by its exact, case-sensitive name.
func (p *PageDescriptor) Lookup(name string) (Descriptor, bool) {
	i, ok := p.index[name]
	if !ok {
		return Descriptor{}, false
	}
	return p.elements[i], true
}

// Build classifies the declarations of src into a PageDescriptor. Duplicate
// sibling names are rejected before any declaration is classified, so the
// failure is the same regardless of which declaration is malformed.
func Build(src Source) (*PageDescriptor, error) {
	if src == nil {
		return nil, &InvalidDeclarationError{Owner: "<nil>", Reason: "no declaration source"}
	}
	return build(src, src.SourceName(), 0)
}

// MustBuild is Build for package-level page definitions; it panics on error.
func MustBuild(src Source) *PageDescriptor {
	p, err := Build(src)
	if err != nil {
		panic(err)
	}
	return p
}

func build(src Source, path string, depth int) (*PageDescriptor, error) {
	if depth > maxBlockDepth {
		return nil, &InvalidDeclarationError{Owner: path, Reason: "blocks nested too deeply (self-referencing block?)"}
	}

	decls := src.Declarations()
	index := make(map[string]int, len(decls))
	for i, d := range decls {
		if strings.TrimSpace(d.Name) == "" {
			return nil, &InvalidDeclarationError{Owner: path, Reason: fmt.Sprintf("declaration #%d has no name", i+1)}
		}
		if _, dup := index[d.Name]; dup {
			return nil, &DuplicateNameError{Owner: path, Name: d.Name}
		}
		index[d.Name] = i
	}

	elements := make([]Descriptor, 0, len(decls))
	for _, d := range decls {
		desc, err := classify(d, path, depth)
		if err != nil {
			return nil, err
		}
		elements = append(elements, desc)
	}

	return &PageDescriptor{name: src.SourceName(), elements: elements, index: index}, nil
}

func classify(d Declaration, path string, depth int) (Descriptor, error) {
	invalid := func(reason string, args ...any) error {
		return &InvalidDeclarationError{Owner: path, Name: d.Name, Reason: fmt.Sprintf(reason, args...)}
	}

	if !d.Locator.IsZero() {
		switch d.Locator.Strategy {
		case CSS, XPath:
		default:
			return Descriptor{}, invalid("unknown locator strategy %q", d.Locator.Strategy)
		}
		if strings.TrimSpace(d.Locator.Value) == "" {
			return Descriptor{}, invalid("locator %q has no value", d.Locator.Strategy)
		}
	}

	desc := Descriptor{Name: d.Name, Optional: d.Optional, Locator: d.Locator}
	switch d.Shape {
	case ShapeElement:
		if d.Locator.IsZero() {
			return Descriptor{}, invalid("element has no locator")
		}
		desc.Kind = Single
		return desc, nil

	case ShapeBlock:
		nested, err := buildNested(d, path, depth)
		if err != nil {
			return Descriptor{}, err
		}
		desc.Kind = Block
		desc.Nested = nested
		return desc, nil

	case ShapeList:
		if d.Locator.IsZero() {
			return Descriptor{}, invalid("list has no locator")
		}
		desc.Kind = ListOf
		switch d.Of {
		case ShapeElement, "":
			return desc, nil
		case ShapeBlock:
			nested, err := buildNested(d, path, depth)
			if err != nil {
				return Descriptor{}, err
			}
			desc.Nested = nested
			return desc, nil
		default:
			return Descriptor{}, invalid("list items must be %q or %q, got %q", ShapeElement, ShapeBlock, d.Of)
		}

	default:
		return Descriptor{}, invalid("shape %q is neither an element, a list nor a block", d.Shape)
	}
}

func buildNested(d Declaration, path string, depth int) (*PageDescriptor, error) {
	if d.Block == nil {
		return nil, &InvalidDeclarationError{Owner: path, Name: d.Name, Reason: "block has no nested declarations"}
	}
	return build(d.Block, path+"/"+d.Name, depth+1)
}
