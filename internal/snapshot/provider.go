package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/andybalholm/cascadia"
	"github.com/antchfx/htmlquery"
	"golang.org/x/net/html"

	"github.com/xkilldash9x/pagekit/internal/element"
)

// ErrNoNode is returned by actions on a handle whose locator matches nothing.
var ErrNoNode = errors.New("no matching node")

// Provider resolves element descriptors against a Document.
type Provider struct {
	doc *Document
}

// NewProvider returns a Provider over doc.
func NewProvider(doc *Document) *Provider {
	return &Provider{doc: doc}
}

// Document returns the underlying document.
func (p *Provider) Document() *Document { return p.doc }

// Find returns a handle for the first match of d's locator within scope.
// The match is looked up lazily, so the element need not exist yet.
func (p *Provider) Find(ctx context.Context, scope element.Handle, d element.Descriptor) (element.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parent, err := p.scopeOf(scope)
	if err != nil {
		return nil, err
	}
	s, err := compile(d.Locator)
	if err != nil {
		return nil, fmt.Errorf("element %q: %w", d.Name, err)
	}
	return parent.child(d.Name, s, 0), nil
}

// FindAll returns one handle per element currently matching d's locator
// within scope.
func (p *Provider) FindAll(ctx context.Context, scope element.Handle, d element.Descriptor) ([]element.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	parent, err := p.scopeOf(scope)
	if err != nil {
		return nil, err
	}
	s, err := compile(d.Locator)
	if err != nil {
		return nil, fmt.Errorf("element %q: %w", d.Name, err)
	}

	p.doc.mu.RLock()
	count := 0
	if base := parent.node(); base != nil {
		count = len(s.matchAll(base, parent.steps != nil))
	}
	p.doc.mu.RUnlock()

	out := make([]element.Handle, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, parent.child(fmt.Sprintf("%s[%d]", d.Name, i), s, i))
	}
	return out, nil
}

func (p *Provider) scopeOf(scope element.Handle) (*Handle, error) {
	if scope == nil {
		return &Handle{doc: p.doc}, nil
	}
	h, ok := scope.(*Handle)
	if !ok {
		return nil, fmt.Errorf("scope %s was not created by this provider", scope.Describe())
	}
	if h.doc != p.doc {
		return nil, fmt.Errorf("scope %s belongs to another document", h.Describe())
	}
	return h, nil
}

// step locates one element relative to the previous step's node.
type step struct {
	sel   selector
	index int
}

type selector struct {
	loc  element.Locator
	css  cascadia.Selector
	xdoc bool
}

func compile(loc element.Locator) (selector, error) {
	switch loc.Strategy {
	case element.CSS:
		css, err := cascadia.Compile(loc.Value)
		if err != nil {
			return selector{}, fmt.Errorf("invalid css selector %q: %w", loc.Value, err)
		}
		return selector{loc: loc, css: css}, nil
	case element.XPath:
		// Validate eagerly so a broken expression fails at resolve time.
		if _, err := htmlquery.QueryAll(&html.Node{Type: html.DocumentNode}, loc.Value); err != nil {
			return selector{}, fmt.Errorf("invalid xpath %q: %w", loc.Value, err)
		}
		return selector{loc: loc, xdoc: true}, nil
	default:
		return selector{}, fmt.Errorf("unsupported locator %s", loc)
	}
}

// matchAll returns the element nodes under base matching s. When scoped is
// set, base itself is excluded so a block never matches its own root.
func (s selector) matchAll(base *html.Node, scoped bool) []*html.Node {
	var nodes []*html.Node
	if s.xdoc {
		found, err := htmlquery.QueryAll(base, s.loc.Value)
		if err != nil {
			return nil
		}
		nodes = found
	} else {
		nodes = s.css.MatchAll(base)
	}

	out := nodes[:0:0]
	for _, n := range nodes {
		if n.Type != html.ElementNode || (scoped && n == base) {
			continue
		}
		out = append(out, n)
	}
	return out
}

// Handle is a lazily evaluated path of locator steps from the document root.
type Handle struct {
	doc   *Document
	name  string
	steps []step
}

func (h *Handle) child(name string, s selector, index int) *Handle {
	steps := make([]step, len(h.steps), len(h.steps)+1)
	copy(steps, h.steps)
	path := name
	if h.name != "" {
		path = h.name + "/" + name
	}
	return &Handle{doc: h.doc, name: path, steps: append(steps, step{sel: s, index: index})}
}

// Describe returns the element path followed by its innermost locator.
func (h *Handle) Describe() string {
	if len(h.steps) == 0 {
		return "document"
	}
	return fmt.Sprintf("%s (%s)", h.name, h.steps[len(h.steps)-1].sel.loc)
}

// node walks the steps. Callers hold doc.mu.
func (h *Handle) node() *html.Node {
	n := h.doc.root
	for i, st := range h.steps {
		matches := st.sel.matchAll(n, i > 0)
		if st.index >= len(matches) {
			return nil
		}
		n = matches[st.index]
	}
	return n
}

func (h *Handle) Exists(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	h.doc.mu.RLock()
	defer h.doc.mu.RUnlock()
	return h.node() != nil, nil
}

func (h *Handle) Visible(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	h.doc.mu.RLock()
	defer h.doc.mu.RUnlock()
	n := h.node()
	return n != nil && rendered(n), nil
}

func (h *Handle) Text(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	h.doc.mu.RLock()
	defer h.doc.mu.RUnlock()
	n := h.node()
	if n == nil {
		return "", fmt.Errorf("%s: %w", h.Describe(), ErrNoNode)
	}
	if isFormControl(n) {
		return htmlquery.SelectAttr(n, "value"), nil
	}
	return strings.Join(strings.Fields(htmlquery.InnerText(n)), " "), nil
}

// Click checks that the element could be clicked. A static document has no
// behaviour to trigger, so nothing else happens.
func (h *Handle) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.doc.mu.RLock()
	defer h.doc.mu.RUnlock()
	n := h.node()
	if n == nil {
		return fmt.Errorf("click %s: %w", h.Describe(), ErrNoNode)
	}
	if !rendered(n) {
		return fmt.Errorf("click %s: element is not visible", h.Describe())
	}
	return nil
}

// Type appends text to the value attribute of a form control.
func (h *Handle) Type(ctx context.Context, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	h.doc.mu.Lock()
	defer h.doc.mu.Unlock()
	n := h.node()
	if n == nil {
		return fmt.Errorf("type into %s: %w", h.Describe(), ErrNoNode)
	}
	if !isFormControl(n) {
		return fmt.Errorf("type into %s: <%s> is not a form control", h.Describe(), n.Data)
	}
	setAttr(n, "value", htmlquery.SelectAttr(n, "value")+text)
	return nil
}

var (
	_ element.Handle   = (*Handle)(nil)
	_ element.Provider = (*Provider)(nil)
)
