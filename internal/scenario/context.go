// Package scenario provides the per-scenario Context: the current page, its
// resolved elements and the scenario's own variable scope.
package scenario

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/catalog"
	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/vars"
	"github.com/xkilldash9x/pagekit/internal/wait"
)

// Options wires a Context to its collaborators. Catalog, Provider and Engine
// are shared between scenarios; everything else a Context creates is its own.
type Options struct {
	Catalog  *catalog.Catalog
	Provider element.Provider
	Engine   *wait.Engine
	Logger   *zap.Logger
	// External supplies configured values consulted before scope variables.
	External vars.Lookup
	// MaxPasses caps template substitution. Zero keeps the default.
	MaxPasses int
}

// Context is the state of one scenario. Create one per scenario with New and
// drop it when the scenario ends; contexts never share variables or pages.
type Context struct {
	id       string
	logger   *zap.Logger
	catalog  *catalog.Catalog
	provider element.Provider
	engine   *wait.Engine
	vars     *vars.Store

	mu       sync.Mutex
	current  catalog.Page
	instance *element.Instance
}

// New creates a scenario context with a fresh variable scope.
func New(opts Options) (*Context, error) {
	if opts.Catalog == nil {
		return nil, &InvalidArgumentError{Op: "new scenario", Reason: "page catalog is required"}
	}
	if opts.Provider == nil {
		return nil, &InvalidArgumentError{Op: "new scenario", Reason: "handle provider is required"}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	engine := opts.Engine
	if engine == nil {
		engine = wait.NewEngine(logger, wait.Options{})
	}

	id := uuid.NewString()
	logger = logger.Named("scenario").With(zap.String("scenario_id", id))

	storeOpts := []vars.Option{vars.WithLogger(logger), vars.WithMaxPasses(opts.MaxPasses)}
	if opts.External != nil {
		storeOpts = append(storeOpts, vars.WithExternal(opts.External))
	}

	return &Context{
		id:       id,
		logger:   logger,
		catalog:  opts.Catalog,
		provider: opts.Provider,
		engine:   engine,
		vars:     vars.NewStore(storeOpts...),
	}, nil
}

// ID returns the scenario's unique id.
func (c *Context) ID() string { return c.id }

// Vars returns the scenario's variable scope.
func (c *Context) Vars() *vars.Store { return c.vars }

// Catalog returns the shared page catalog.
func (c *Context) Catalog() *catalog.Catalog { return c.catalog }

// SetCurrentPage makes page the current page and resolves its elements. A nil
// page is rejected; there is no way to clear the current page. If resolution
// fails the previous page stays current.
func (c *Context) SetCurrentPage(ctx context.Context, page catalog.Page) error {
	if page == nil {
		return &InvalidArgumentError{Op: "set current page", Reason: "page must not be nil"}
	}
	desc := catalog.DescriptorOf(page)
	if desc == nil {
		return &InvalidArgumentError{Op: "set current page", Reason: "page is a nil pointer or has no descriptor"}
	}

	inst, err := element.Resolve(ctx, desc, c.provider)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.current = page
	c.instance = inst
	c.mu.Unlock()

	c.logger.Debug("Current page set.", zap.String("page", desc.Name()))
	return nil
}

// SetCurrentPageByName looks name up in the catalog, makes it current and,
// when waitAppeared is set, waits for it to appear.
func (c *Context) SetCurrentPageByName(ctx context.Context, name string, waitAppeared bool) error {
	page, err := c.catalog.Get(name)
	if err != nil {
		return err
	}
	if err := c.SetCurrentPage(ctx, page); err != nil {
		return err
	}
	if waitAppeared {
		return c.Appeared(ctx)
	}
	return nil
}

// CurrentPage returns the current page.
func (c *Context) CurrentPage() (catalog.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil, c.noPage()
	}
	return c.current, nil
}

// Instance returns the resolved elements of the current page.
func (c *Context) Instance() (*element.Instance, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.instance == nil {
		return nil, c.noPage()
	}
	return c.instance, nil
}

// Reinitialize resolves the current page again. Call it after a navigation
// or any change that may have invalidated the handles.
func (c *Context) Reinitialize(ctx context.Context) error {
	page, err := c.CurrentPage()
	if err != nil {
		return err
	}
	return c.SetCurrentPage(ctx, page)
}

// GetPage returns a page from the catalog.
func (c *Context) GetPage(name string) (catalog.Page, error) {
	return c.catalog.Get(name)
}

// GetPageAs returns a page from the catalog as a T, failing with a
// *catalog.TypeMismatchError when the page has another type.
func GetPageAs[T catalog.Page](c *Context, name string) (T, error) {
	return catalog.Lookup[T](c.catalog, name)
}

// Element returns a single element of the current page.
func (c *Context) Element(name string) (element.Handle, error) {
	inst, err := c.Instance()
	if err != nil {
		return nil, err
	}
	return inst.Element(name)
}

// ElementList returns a list of the current page.
func (c *Context) ElementList(name string) ([]element.Handle, error) {
	inst, err := c.Instance()
	if err != nil {
		return nil, err
	}
	return inst.ElementList(name)
}

// Block returns a nested block of the current page.
func (c *Context) Block(name string) (*element.Instance, error) {
	inst, err := c.Instance()
	if err != nil {
		return nil, err
	}
	return inst.Block(name)
}

// Appeared waits for the current page to appear.
func (c *Context) Appeared(ctx context.Context) error {
	inst, err := c.Instance()
	if err != nil {
		return err
	}
	return c.engine.Appeared(ctx, inst)
}

// Disappeared waits for the current page to disappear.
func (c *Context) Disappeared(ctx context.Context) error {
	inst, err := c.Instance()
	if err != nil {
		return err
	}
	return c.engine.Disappeared(ctx, inst)
}

// Close ends the scenario, dropping its variables and current page.
func (c *Context) Close() {
	c.mu.Lock()
	c.current = nil
	c.instance = nil
	c.mu.Unlock()
	c.vars.Clear()
	c.logger.Debug("Scenario closed.")
}

func (c *Context) noPage() error {
	return fmt.Errorf("scenario %s: %w", c.id, ErrNoCurrentPage)
}
