// Package catalog holds the process-wide, read-only map of page names to page
// objects. It is built once at start-up and shared by every scenario.
package catalog

import (
	"fmt"
	"reflect"
	"sort"

	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/element"
)

// Page is a page object. Anything that can produce its element descriptor
// qualifies, including *element.PageDescriptor itself.
type Page interface {
	Descriptor() *element.PageDescriptor
}

// DescriptorOf returns the descriptor of p, or nil when p is nil or holds a
// nil pointer. Page methods are never called on a nil receiver.
func DescriptorOf(p Page) *element.PageDescriptor {
	if p == nil {
		return nil
	}
	if v := reflect.ValueOf(p); v.Kind() == reflect.Pointer && v.IsNil() {
		return nil
	}
	return p.Descriptor()
}

// Factory constructs a page. It runs exactly once, during Build.
type Factory func() (Page, error)

// Builder collects page registrations. It is not safe for concurrent use.
type Builder struct {
	logger    *zap.Logger
	order     []string
	factories map[string]Factory
	dupes     []string
}

// NewBuilder returns an empty builder.
func NewBuilder(logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		logger:    logger.Named("catalog"),
		factories: make(map[string]Factory),
	}
}

// Register adds a page factory under name. Registering a name twice makes
// Build fail.
func (b *Builder) Register(name string, f Factory) *Builder {
	if _, exists := b.factories[name]; exists {
		b.dupes = append(b.dupes, name)
		return b
	}
	b.order = append(b.order, name)
	b.factories[name] = f
	return b
}

// Add registers ready-made pages under their descriptor names.
func (b *Builder) Add(pages ...Page) *Builder {
	for _, p := range pages {
		page := p
		name := ""
		if desc := DescriptorOf(page); desc != nil {
			name = desc.Name()
		}
		b.Register(name, func() (Page, error) { return page, nil })
	}
	return b
}

// Build runs every factory and returns the finished catalog. Any factory
// error, including a broken page declaration, fails the whole build.
func (b *Builder) Build() (*Catalog, error) {
	if len(b.dupes) > 0 {
		return nil, &element.DuplicateNameError{Owner: "page catalog", Name: b.dupes[0]}
	}

	c := &Catalog{pages: make(map[string]Page, len(b.order))}
	for _, name := range b.order {
		if name == "" {
			return nil, fmt.Errorf("page catalog: page registered without a name")
		}
		f := b.factories[name]
		if f == nil {
			return nil, fmt.Errorf("page catalog: page %q has a nil factory", name)
		}
		page, err := f()
		if err != nil {
			return nil, fmt.Errorf("page catalog: build page %q: %w", name, err)
		}
		if DescriptorOf(page) == nil {
			return nil, fmt.Errorf("page catalog: page %q has no descriptor", name)
		}
		c.pages[name] = page
		c.names = append(c.names, name)
	}
	sort.Strings(c.names)

	b.logger.Info("Page catalog built.", zap.Int("pages", len(c.names)))
	return c, nil
}

// Catalog maps page names to pages. It never changes after Build, so it can be
// shared across goroutines without locking.
type Catalog struct {
	pages map[string]Page
	names []string
}

// Get returns the page registered under name.
func (c *Catalog) Get(name string) (Page, error) {
	p, ok := c.pages[name]
	if !ok {
		return nil, &PageNotFoundError{Name: name, Known: c.Names()}
	}
	return p, nil
}

// Lookup returns the page registered under name as a T, failing with a
// *TypeMismatchError when the page has another type.
func Lookup[T Page](c *Catalog, name string) (T, error) {
	var zero T
	p, err := c.Get(name)
	if err != nil {
		return zero, err
	}
	typed, ok := p.(T)
	if !ok {
		return zero, &TypeMismatchError{
			Name:   name,
			Want:   reflect.TypeFor[T]().String(),
			Actual: reflect.TypeOf(p).String(),
		}
	}
	return typed, nil
}

// Names returns the page names in sorted order.
func (c *Catalog) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

// Len returns the number of pages.
func (c *Catalog) Len() int { return len(c.pages) }
