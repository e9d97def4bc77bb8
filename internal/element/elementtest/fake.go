// Package elementtest provides an in-memory Provider and Handle for tests of
// code built on the element registry.
package elementtest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/xkilldash9x/pagekit/internal/element"
)

// Handle is a scriptable element.Handle. The zero state is present and visible.
type Handle struct {
	id string

	mu          sync.Mutex
	exists      bool
	visible     bool
	text        string
	err         error
	visibleFrom time.Time
	goneFrom    time.Time
	checks      int
	clicks      int
	typed       []string
}

// NewHandle returns a present, visible handle.
func NewHandle(id string) *Handle {
	return &Handle{id: id, exists: true, visible: true}
}

func (h *Handle) Describe() string { return h.id }

// SetVisible sets presence and visibility together.
func (h *Handle) SetVisible(v bool) *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exists, h.visible = v, v
	h.visibleFrom, h.goneFrom = time.Time{}, time.Time{}
	return h
}

// SetHidden keeps the element in the document but not visible.
func (h *Handle) SetHidden() *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exists, h.visible = true, false
	return h
}

// SetText sets the value returned by Text.
func (h *Handle) SetText(s string) *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.text = s
	return h
}

// SetErr makes every check fail with err until cleared with nil.
func (h *Handle) SetErr(err error) *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
	return h
}

// AppearAfter hides the element now and shows it once d has elapsed.
func (h *Handle) AppearAfter(d time.Duration) *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exists, h.visible = false, false
	h.visibleFrom = time.Now().Add(d)
	h.goneFrom = time.Time{}
	return h
}

// VanishAfter shows the element now and removes it once d has elapsed.
func (h *Handle) VanishAfter(d time.Duration) *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.exists, h.visible = true, true
	h.goneFrom = time.Now().Add(d)
	h.visibleFrom = time.Time{}
	return h
}

// Checks returns how many times Exists or Visible was called.
func (h *Handle) Checks() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.checks
}

// Clicks returns how many times Click succeeded.
func (h *Handle) Clicks() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.clicks
}

// Typed returns every string passed to Type.
func (h *Handle) Typed() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.typed...)
}

// settle applies scheduled transitions. Callers hold mu.
func (h *Handle) settle() {
	now := time.Now()
	if !h.visibleFrom.IsZero() && !now.Before(h.visibleFrom) {
		h.exists, h.visible = true, true
		h.visibleFrom = time.Time{}
	}
	if !h.goneFrom.IsZero() && !now.Before(h.goneFrom) {
		h.exists, h.visible = false, false
		h.goneFrom = time.Time{}
	}
}

func (h *Handle) Exists(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks++
	if h.err != nil {
		return false, h.err
	}
	h.settle()
	return h.exists, nil
}

func (h *Handle) Visible(ctx context.Context) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks++
	if h.err != nil {
		return false, h.err
	}
	h.settle()
	return h.exists && h.visible, nil
}

func (h *Handle) Text(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return "", h.err
	}
	return h.text, nil
}

func (h *Handle) Click(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.settle()
	if !h.visible {
		return fmt.Errorf("%s is not visible", h.id)
	}
	h.clicks++
	return nil
}

func (h *Handle) Type(ctx context.Context, text string) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return h.err
	}
	h.typed = append(h.typed, text)
	return nil
}

// Provider hands out Handles keyed by their path: the scope id, a slash, and
// the element name ("Header/Logo"). Page-level elements are keyed by name.
// List items are keyed as "Rows[0]", "Rows[1]" and so on.
type Provider struct {
	mu       sync.Mutex
	handles  map[string]*Handle
	sizes    map[string]int
	failures map[string]error
	finds    int
}

// NewProvider returns an empty provider.
func NewProvider() *Provider {
	return &Provider{
		handles:  make(map[string]*Handle),
		sizes:    make(map[string]int),
		failures: make(map[string]error),
	}
}

// SetListSize fixes how many items FindAll returns for the list at path.
func (p *Provider) SetListSize(path string, n int) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sizes[path] = n
	return p
}

// FailOn makes Find/FindAll return err for path.
func (p *Provider) FailOn(path string, err error) *Provider {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures[path] = err
	return p
}

// Handle returns (creating if needed) the handle at path.
func (p *Provider) Handle(path string) *Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.handleLocked(path)
}

// Finds returns the number of Find and FindAll calls served.
func (p *Provider) Finds() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.finds
}

func (p *Provider) handleLocked(path string) *Handle {
	h, ok := p.handles[path]
	if !ok {
		h = NewHandle(path)
		p.handles[path] = h
	}
	return h
}

func pathOf(scope element.Handle, name string) string {
	if scope == nil {
		return name
	}
	return scope.Describe() + "/" + name
}

func (p *Provider) Find(ctx context.Context, scope element.Handle, d element.Descriptor) (element.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finds++
	path := pathOf(scope, d.Name)
	if err := p.failures[path]; err != nil {
		return nil, err
	}
	return p.handleLocked(path), nil
}

func (p *Provider) FindAll(ctx context.Context, scope element.Handle, d element.Descriptor) ([]element.Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finds++
	path := pathOf(scope, d.Name)
	if err := p.failures[path]; err != nil {
		return nil, err
	}
	n, ok := p.sizes[path]
	if !ok {
		n = 2
	}
	out := make([]element.Handle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, p.handleLocked(fmt.Sprintf("%s[%d]", path, i)))
	}
	return out, nil
}

var (
	_ element.Handle   = (*Handle)(nil)
	_ element.Provider = (*Provider)(nil)
)
