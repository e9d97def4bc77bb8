package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"

	"github.com/xkilldash9x/pagekit/internal/element"
)

// File is the on-disk layout of a page table file.
//
//	pages:
//	  - name: Login
//	    url: "{base.url}/login"
//	    elements:
//	      - {name: Username, css: "#user"}
//	      - {name: Errors, kind: list, css: .error}
//	      - name: Header
//	        kind: block
//	        css: header
//	        elements:
//	          - {name: Logo, css: .logo}
//	      - {name: Remember me, css: "#remember", optional: true}
type File struct {
	Pages []PageSpec `yaml:"pages"`
}

// PageSpec declares one page.
type PageSpec struct {
	Name string `yaml:"name"`
	// URL is a template passed through variable substitution before use.
	URL      string        `yaml:"url,omitempty"`
	Elements []ElementSpec `yaml:"elements"`
}

// ElementSpec declares one element. Kind defaults to "element"; a list sets Of
// to "block" to repeat a nested layout.
type ElementSpec struct {
	Name     string        `yaml:"name"`
	Kind     string        `yaml:"kind,omitempty"`
	Of       string        `yaml:"of,omitempty"`
	Type     string        `yaml:"type,omitempty"`
	CSS      string        `yaml:"css,omitempty"`
	XPath    string        `yaml:"xpath,omitempty"`
	Optional bool          `yaml:"optional,omitempty"`
	Elements []ElementSpec `yaml:"elements,omitempty"`
}

// DeclaredPage is a page defined by a page table file.
type DeclaredPage struct {
	descriptor *element.PageDescriptor
	url        string
}

// Descriptor implements Page.
func (p *DeclaredPage) Descriptor() *element.PageDescriptor {
	if p == nil {
		return nil
	}
	return p.descriptor
}

// URL returns the page's URL template, or "" when none was declared.
func (p *DeclaredPage) URL() string {
	if p == nil {
		return ""
	}
	return p.url
}

// LoadYAML decodes a page table file and builds every page in it. Unknown
// fields are rejected so typos surface at load time.
func LoadYAML(r io.Reader) ([]*DeclaredPage, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decode page table: %w", err)
	}

	pages := make([]*DeclaredPage, 0, len(f.Pages))
	for _, spec := range f.Pages {
		p, err := spec.Build()
		if err != nil {
			return nil, err
		}
		pages = append(pages, p)
	}
	return pages, nil
}

// LoadFiles loads page tables from each path in order. A leading ~ is
// expanded to the home directory.
func LoadFiles(paths ...string) ([]*DeclaredPage, error) {
	var all []*DeclaredPage
	for _, path := range paths {
		expanded, err := homedir.Expand(path)
		if err != nil {
			return nil, fmt.Errorf("expand page table path %q: %w", path, err)
		}
		data, err := os.ReadFile(expanded)
		if err != nil {
			return nil, fmt.Errorf("read page table: %w", err)
		}
		pages, err := LoadYAML(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", expanded, err)
		}
		all = append(all, pages...)
	}
	return all, nil
}

// Build turns the spec into a page.
func (s PageSpec) Build() (*DeclaredPage, error) {
	table, err := tableOf(s.Name, s.Elements)
	if err != nil {
		return nil, err
	}
	desc, err := element.Build(table)
	if err != nil {
		return nil, err
	}
	return &DeclaredPage{descriptor: desc, url: s.URL}, nil
}

func tableOf(name string, specs []ElementSpec) (*element.Table, error) {
	table := element.NewTable(name)
	for _, es := range specs {
		d, err := es.declaration(name)
		if err != nil {
			return nil, err
		}
		table.Declare(d)
	}
	return table, nil
}

func (es ElementSpec) declaration(owner string) (element.Declaration, error) {
	invalid := func(reason string) error {
		return &element.InvalidDeclarationError{Owner: owner, Name: es.Name, Reason: reason}
	}

	d := element.Declaration{
		Name:     es.Name,
		Shape:    element.Shape(es.Kind),
		Of:       element.Shape(es.Of),
		Optional: es.Optional,
	}
	if d.Shape == "" {
		d.Shape = element.ShapeElement
	}

	switch {
	case es.CSS != "" && es.XPath != "":
		return d, invalid("set either css or xpath, not both")
	case es.CSS != "":
		d.Locator = element.ByCSS(es.CSS)
	case es.XPath != "":
		d.Locator = element.ByXPath(es.XPath)
	}

	nests := d.Shape == element.ShapeBlock || (d.Shape == element.ShapeList && d.Of == element.ShapeBlock)
	if !nests {
		if len(es.Elements) > 0 {
			return d, invalid(fmt.Sprintf("a %s cannot declare nested elements", d.Shape))
		}
		return d, nil
	}

	blockName := es.Type
	if blockName == "" {
		blockName = es.Name
	}
	nested, err := tableOf(blockName, es.Elements)
	if err != nil {
		return d, err
	}
	d.Block = nested
	return d, nil
}
