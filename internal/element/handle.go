// Package element maps the human-readable element names a page declares onto
// live element handles supplied by a driver.
//
// A page is described once by a Source (usually a Table) and turned into an
// immutable PageDescriptor by Build. Resolve then pairs the descriptor with a
// Provider to produce an Instance holding the handles for the currently loaded
// document. Descriptors survive navigation; instances do not.
package element

import "context"

// Handle is a reference to a single element owned by a driver. Implementations
// are expected to be lazy: the handle identifies the element, and each method
// locates it again in the live document.
type Handle interface {
	// Describe returns a short identity for diagnostics, typically the locator path.
	Describe() string
	Exists(ctx context.Context) (bool, error)
	Visible(ctx context.Context) (bool, error)
	Text(ctx context.Context) (string, error)
	Click(ctx context.Context) error
	Type(ctx context.Context, text string) error
}

// Provider produces handles for declared elements. scope is the handle of the
// enclosing block, or nil for the page root.
type Provider interface {
	// Find returns a handle for a single element declaration.
	Find(ctx context.Context, scope Handle, d Descriptor) (Handle, error)
	// FindAll returns one handle per element currently matching a list declaration.
	FindAll(ctx context.Context, scope Handle, d Descriptor) ([]Handle, error)
}
