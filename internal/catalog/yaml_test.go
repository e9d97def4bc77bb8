package catalog_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/pagekit/internal/catalog"
	"github.com/xkilldash9x/pagekit/internal/element"
)

const pagesYAML = `
pages:
  - name: Login
    url: "{base.url}/login"
    elements:
      - {name: Username, css: "#user"}
      - {name: Password, xpath: "//input[@type='password']"}
      - {name: Errors, kind: list, css: .error}
      - name: Header
        kind: block
        type: SiteHeader
        css: header
        elements:
          - {name: Logo, css: .logo}
      - {name: Remember me, css: "#remember", optional: true}
  - name: Results
    elements:
      - name: Rows
        kind: list
        of: block
        css: tr
        elements:
          - {name: Title, css: td.title}
`

func TestLoadYAML(t *testing.T) {
	pages, err := catalog.LoadYAML(strings.NewReader(pagesYAML))
	require.NoError(t, err)
	require.Len(t, pages, 2)

	login := pages[0]
	assert.Equal(t, "{base.url}/login", login.URL())
	desc := login.Descriptor()
	assert.Equal(t, "Login", desc.Name())
	assert.Equal(t, 5, desc.Len())

	pw, ok := desc.Lookup("Password")
	require.True(t, ok)
	assert.Equal(t, element.ByXPath("//input[@type='password']"), pw.Locator)

	errs, _ := desc.Lookup("Errors")
	assert.Equal(t, element.ListOf, errs.Kind)
	assert.False(t, errs.IsBlockList())

	header, _ := desc.Lookup("Header")
	assert.Equal(t, element.Block, header.Kind)
	assert.Equal(t, "SiteHeader", header.Nested.Name())

	remember, _ := desc.Lookup("Remember me")
	assert.True(t, remember.Optional)

	rows, ok := pages[1].Descriptor().Lookup("Rows")
	require.True(t, ok)
	assert.True(t, rows.IsBlockList())
	assert.Equal(t, "Rows", rows.Nested.Name(), "nested type defaults to the element name")
}

func TestLoadYAML_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		is   error
		msg  string
	}{
		{
			name: "unknown kind",
			doc:  "pages:\n  - name: P\n    elements:\n      - {name: X, kind: widget, css: x}\n",
			is:   element.ErrInvalidDeclaration,
			msg:  "widget",
		},
		{
			name: "duplicate element",
			doc:  "pages:\n  - name: P\n    elements:\n      - {name: X, css: a}\n      - {name: X, css: b}\n",
			is:   element.ErrDuplicateName,
		},
		{
			name: "both locators",
			doc:  "pages:\n  - name: P\n    elements:\n      - {name: X, css: a, xpath: //a}\n",
			is:   element.ErrInvalidDeclaration,
			msg:  "not both",
		},
		{
			name: "nested elements on a leaf",
			doc:  "pages:\n  - name: P\n    elements:\n      - name: X\n        css: a\n        elements:\n          - {name: Y, css: b}\n",
			is:   element.ErrInvalidDeclaration,
			msg:  "cannot declare nested elements",
		},
		{
			name: "element without locator",
			doc:  "pages:\n  - name: P\n    elements:\n      - {name: X}\n",
			is:   element.ErrInvalidDeclaration,
			msg:  "no locator",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := catalog.LoadYAML(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.is)
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}

	t.Run("unknown field", func(t *testing.T) {
		_, err := catalog.LoadYAML(strings.NewReader("pages:\n  - name: P\n    selector: x\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "selector")
	})

	t.Run("empty document", func(t *testing.T) {
		pages, err := catalog.LoadYAML(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, pages)
	})
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "login.yaml")
	second := filepath.Join(dir, "search.yaml")
	require.NoError(t, os.WriteFile(first, []byte(pagesYAML), 0o600))
	require.NoError(t, os.WriteFile(second, []byte("pages:\n  - name: Search\n    elements:\n      - {name: Query, css: input}\n"), 0o600))

	pages, err := catalog.LoadFiles(first, second)
	require.NoError(t, err)
	require.Len(t, pages, 3)

	b := catalog.NewBuilder(nil)
	for _, p := range pages {
		b.Add(p)
	}
	c, err := b.Build()
	require.NoError(t, err)
	assert.Equal(t, []string{"Login", "Results", "Search"}, c.Names())

	declared, err := catalog.Lookup[*catalog.DeclaredPage](c, "Login")
	require.NoError(t, err)
	assert.NotEmpty(t, declared.URL())

	_, err = catalog.LoadFiles(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
