package element

import "strings"

// Strategy selects how a locator value is interpreted by a Provider.
type Strategy string

const (
	CSS   Strategy = "css"
	XPath Strategy = "xpath"
)

// Locator tells a Provider where to find an element relative to its scope.
type Locator struct {
	Strategy Strategy `yaml:"strategy" json:"strategy"`
	Value    string   `yaml:"value" json:"value"`
}

// ByCSS returns a CSS selector locator.
func ByCSS(selector string) Locator { return Locator{Strategy: CSS, Value: selector} }

// ByXPath returns an XPath locator.
func ByXPath(expr string) Locator { return Locator{Strategy: XPath, Value: expr} }

// IsZero reports whether the locator is empty.
func (l Locator) IsZero() bool { return l.Strategy == "" && strings.TrimSpace(l.Value) == "" }

func (l Locator) String() string {
	if l.IsZero() {
		return "<scope>"
	}
	return string(l.Strategy) + "=" + l.Value
}

// Shape is the declared type of an item, before classification.
type Shape string

const (
	ShapeElement Shape = "element"
	ShapeBlock   Shape = "block"
	ShapeList    Shape = "list"
)

// Declaration is the raw metadata a page author supplies for one element.
type Declaration struct {
	Name  string
	Shape Shape
	// Of is the item shape of a list: ShapeElement or ShapeBlock.
	Of       Shape
	Optional bool
	Locator  Locator
	// Block describes the nested elements of a block or of each list item block.
	Block Source
}

// Source enumerates the declarations of a page or block type.
type Source interface {
	SourceName() string
	Declarations() []Declaration
}

// Table is a Source built in code by the page author.
//
//	login := element.NewTable("Login").
//		Element("Username", element.ByCSS("#user")).
//		Element("Password", element.ByCSS("#pass")).
//		Element("Remember me", element.ByCSS("#remember")).Optional()
type Table struct {
	name  string
	decls []Declaration
}

// NewTable starts an empty declaration table.
func NewTable(name string) *Table {
	return &Table{name: name}
}

// SourceName implements Source.
func (t *Table) SourceName() string { return t.name }

// Declarations implements Source.
func (t *Table) Declarations() []Declaration {
	out := make([]Declaration, len(t.decls))
	copy(out, t.decls)
	return out
}

// Declare appends a raw declaration.
func (t *Table) Declare(d Declaration) *Table {
	t.decls = append(t.decls, d)
	return t
}

// Element declares a single interactive element.
func (t *Table) Element(name string, loc Locator) *Table {
	return t.Declare(Declaration{Name: name, Shape: ShapeElement, Locator: loc})
}

// List declares a homogeneous sequence of elements.
func (t *Table) List(name string, loc Locator) *Table {
	return t.Declare(Declaration{Name: name, Shape: ShapeList, Of: ShapeElement, Locator: loc})
}

// Block declares a nested region. An empty locator scopes the block to its parent.
func (t *Table) Block(name string, loc Locator, src Source) *Table {
	return t.Declare(Declaration{Name: name, Shape: ShapeBlock, Locator: loc, Block: src})
}

// ListOfBlocks declares a sequence of regions sharing one block layout, such as table rows.
func (t *Table) ListOfBlocks(name string, loc Locator, src Source) *Table {
	return t.Declare(Declaration{Name: name, Shape: ShapeList, Of: ShapeBlock, Locator: loc, Block: src})
}

// Optional marks the most recent declaration as optional. Optional elements
// do not take part in appeared/disappeared checks.
func (t *Table) Optional() *Table {
	if n := len(t.decls); n > 0 {
		t.decls[n-1].Optional = true
	}
	return t
}
