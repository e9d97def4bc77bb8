package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/chromedp/chromedp"

	"github.com/xkilldash9x/pagekit/internal/element"
)

// ErrNoNode is returned by actions on a handle whose locator matches nothing.
var ErrNoNode = errors.New("no matching node")

// Provider resolves element descriptors in a Tab. Handles are locator paths
// re-evaluated on every call, so they never go stale; a navigation simply
// makes them point at the new document.
type Provider struct {
	tab *Tab
}

func (p *Provider) Find(ctx context.Context, scope element.Handle, d element.Descriptor) (element.Handle, error) {
	parent, err := p.scopeOf(scope)
	if err != nil {
		return nil, err
	}
	if err := checkLocator(d); err != nil {
		return nil, err
	}
	return parent.child(d.Name, d.Locator, 0), nil
}

func (p *Provider) FindAll(ctx context.Context, scope element.Handle, d element.Descriptor) ([]element.Handle, error) {
	parent, err := p.scopeOf(scope)
	if err != nil {
		return nil, err
	}
	if err := checkLocator(d); err != nil {
		return nil, err
	}

	arg := step{Strategy: d.Locator.Strategy, Value: d.Locator.Value}
	res, err := p.tab.run(ctx, call{Steps: parent.steps, Op: opCount, Arg: &arg})
	if err != nil {
		return nil, fmt.Errorf("count %q: %w", d.Name, err)
	}

	out := make([]element.Handle, 0, res.Count)
	for i := 0; i < res.Count; i++ {
		out = append(out, parent.child(fmt.Sprintf("%s[%d]", d.Name, i), d.Locator, i))
	}
	return out, nil
}

func (p *Provider) scopeOf(scope element.Handle) (*Handle, error) {
	if scope == nil {
		return &Handle{tab: p.tab}, nil
	}
	h, ok := scope.(*Handle)
	if !ok || h.tab != p.tab {
		return nil, fmt.Errorf("scope %s was not created by this tab", scope.Describe())
	}
	return h, nil
}

func checkLocator(d element.Descriptor) error {
	switch d.Locator.Strategy {
	case element.CSS, element.XPath:
		return nil
	default:
		return fmt.Errorf("element %q: unsupported locator %s", d.Name, d.Locator)
	}
}

// Handle is a path of locator steps from the document root.
type Handle struct {
	tab   *Tab
	name  string
	loc   element.Locator
	steps []step
}

func (h *Handle) child(name string, loc element.Locator, index int) *Handle {
	steps := make([]step, len(h.steps), len(h.steps)+1)
	copy(steps, h.steps)
	path := name
	if h.name != "" {
		path = h.name + "/" + name
	}
	return &Handle{
		tab:   h.tab,
		name:  path,
		loc:   loc,
		steps: append(steps, step{Strategy: loc.Strategy, Value: loc.Value, Index: index}),
	}
}

func (h *Handle) Describe() string {
	if len(h.steps) == 0 {
		return "document"
	}
	return fmt.Sprintf("%s (%s)", h.name, h.loc)
}

func (h *Handle) eval(ctx context.Context, op string) (result, error) {
	return h.tab.run(ctx, call{Steps: h.steps, Op: op})
}

func (h *Handle) Exists(ctx context.Context) (bool, error) {
	res, err := h.eval(ctx, opExists)
	if err != nil {
		return false, err
	}
	return res.Found, nil
}

func (h *Handle) Visible(ctx context.Context) (bool, error) {
	res, err := h.eval(ctx, opVisible)
	if err != nil {
		return false, err
	}
	return res.Found && res.OK, nil
}

func (h *Handle) Text(ctx context.Context) (string, error) {
	res, err := h.eval(ctx, opText)
	if err != nil {
		return "", err
	}
	if !res.Found {
		return "", fmt.Errorf("%s: %w", h.Describe(), ErrNoNode)
	}
	return res.Text, nil
}

// Click scrolls the element into view and clicks its centre.
func (h *Handle) Click(ctx context.Context) error {
	res, err := h.eval(ctx, opCenter)
	if err != nil {
		return fmt.Errorf("click %s: %w", h.Describe(), err)
	}
	if !res.Found {
		return fmt.Errorf("click %s: %w", h.Describe(), ErrNoNode)
	}
	if !res.OK {
		return fmt.Errorf("click %s: element is not visible", h.Describe())
	}

	runCtx, stop := CombineContext(h.tab.ctx, ctx)
	defer stop()
	if err := chromedp.Run(runCtx, chromedp.MouseClickXY(res.X, res.Y)); err != nil {
		return fmt.Errorf("click %s: %w", h.Describe(), err)
	}
	return nil
}

// Type focuses the element and sends text as key events.
func (h *Handle) Type(ctx context.Context, text string) error {
	res, err := h.eval(ctx, opFocus)
	if err != nil {
		return fmt.Errorf("type into %s: %w", h.Describe(), err)
	}
	if !res.Found {
		return fmt.Errorf("type into %s: %w", h.Describe(), ErrNoNode)
	}
	if !res.OK {
		return fmt.Errorf("type into %s: element cannot take focus", h.Describe())
	}

	runCtx, stop := CombineContext(h.tab.ctx, ctx)
	defer stop()
	if err := chromedp.Run(runCtx, chromedp.KeyEvent(text)); err != nil {
		return fmt.Errorf("type into %s: %w", h.Describe(), err)
	}
	return nil
}

var (
	_ element.Handle   = (*Handle)(nil)
	_ element.Provider = (*Provider)(nil)
)
