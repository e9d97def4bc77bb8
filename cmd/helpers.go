package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/catalog"
	"github.com/xkilldash9x/pagekit/internal/config"
	"github.com/xkilldash9x/pagekit/internal/vars"
)

// variableFlags are shared by every command that expands variables.
type variableFlags struct {
	sets       []string
	properties []string
}

func (f *variableFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringArrayVar(&f.sets, "set", nil, "set a scenario variable (name=value, repeatable)")
	cmd.Flags().StringSliceVar(&f.properties, "properties", nil, "property files consulted before scenario variables (default from variables.property_files)")
}

// parseSets splits name=value pairs. Later pairs override earlier ones.
func parseSets(sets []string) (map[string]string, error) {
	out := make(map[string]string, len(sets))
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q: want name=value", s)
		}
		out[name] = value
	}
	return out, nil
}

// propertySource loads the property files named on the command line, falling
// back to the configured ones.
func (f *variableFlags) propertySource(cfg *config.Config) (*config.PropertySource, error) {
	paths := f.properties
	if len(paths) == 0 {
		paths = cfg.Variables.PropertyFiles
	}
	return config.LoadProperties(paths...)
}

// apply stores the --set values in store.
func (f *variableFlags) apply(store *vars.Store) error {
	values, err := parseSets(f.sets)
	if err != nil {
		return err
	}
	for name, value := range values {
		store.Put(name, value)
	}
	return nil
}

// newStore builds a standalone variable store for commands that run outside a
// scenario.
func (f *variableFlags) newStore(cfg *config.Config, logger *zap.Logger) (*vars.Store, error) {
	props, err := f.propertySource(cfg)
	if err != nil {
		return nil, err
	}
	store := vars.NewStore(
		vars.WithExternal(props),
		vars.WithMaxPasses(cfg.Variables.MaxPasses),
		vars.WithLogger(logger),
	)
	if err := f.apply(store); err != nil {
		return nil, err
	}
	return store, nil
}

// loadCatalog reads page table files into a catalog. The declared pages are
// returned by name so callers can reach their URL templates.
func loadCatalog(paths []string, logger *zap.Logger) (*catalog.Catalog, map[string]*catalog.DeclaredPage, error) {
	if len(paths) == 0 {
		return nil, nil, fmt.Errorf("no page table files given (use --catalog or catalog.paths)")
	}
	pages, err := catalog.LoadFiles(paths...)
	if err != nil {
		return nil, nil, err
	}

	builder := catalog.NewBuilder(logger)
	declared := make(map[string]*catalog.DeclaredPage, len(pages))
	for _, p := range pages {
		builder.Add(p)
		declared[p.Descriptor().Name()] = p
	}
	cat, err := builder.Build()
	if err != nil {
		return nil, nil, err
	}
	return cat, declared, nil
}

func catalogPaths(flagPaths []string, cfg *config.Config) []string {
	if len(flagPaths) > 0 {
		return flagPaths
	}
	return cfg.Catalog.Paths
}
