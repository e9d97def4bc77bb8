// Package snapshot serves element handles from a parsed HTML document instead
// of a live browser. Handles re-run their locators on every call, so
// replacing the document behaves like a navigation.
package snapshot

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/antchfx/htmlquery"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/net/html"
)

// Document is a mutable holder for a parsed HTML tree.
type Document struct {
	mu   sync.RWMutex
	root *html.Node
	gen  int
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := htmlquery.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return &Document{root: root}, nil
}

// ParseString parses an HTML string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// LoadFile parses the HTML file at path. A leading ~ is expanded.
func LoadFile(path string) (*Document, error) {
	expanded, err := homedir.Expand(path)
	if err != nil {
		return nil, fmt.Errorf("expand snapshot path %q: %w", path, err)
	}
	data, err := os.ReadFile(expanded)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Replace swaps in a new document. Existing handles see the new content on
// their next call.
func (d *Document) Replace(r io.Reader) error {
	root, err := htmlquery.Parse(r)
	if err != nil {
		return fmt.Errorf("parse html: %w", err)
	}
	d.mu.Lock()
	d.root = root
	d.gen++
	d.mu.Unlock()
	return nil
}

// ReplaceString is Replace for a string.
func (d *Document) ReplaceString(s string) error {
	return d.Replace(strings.NewReader(s))
}

// Generation counts Replace calls.
func (d *Document) Generation() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.gen
}

// Title returns the text of the document's <title>.
func (d *Document) Title() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if n := htmlquery.FindOne(d.root, "//title"); n != nil {
		return strings.TrimSpace(htmlquery.InnerText(n))
	}
	return ""
}

// Render serializes the current document.
func (d *Document) Render() (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	var buf bytes.Buffer
	if err := html.Render(&buf, d.root); err != nil {
		return "", err
	}
	return buf.String(), nil
}
