package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/xkilldash9x/pagekit/internal/observability"
)

func newCatalogCmd() *cobra.Command {
	catalogCmd := &cobra.Command{
		Use:   "catalog",
		Short: "Work with page table files",
	}
	catalogCmd.AddCommand(newCatalogValidateCmd())
	return catalogCmd
}

func newCatalogValidateCmd() *cobra.Command {
	var paths []string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load page table files and report every page they declare",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := configFrom(cmd)
			logger := observability.GetLogger()

			cat, declared, err := loadCatalog(catalogPaths(paths, cfg), logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, name := range cat.Names() {
				page := declared[name]
				line := fmt.Sprintf("%s: %d elements", name, page.Descriptor().Len())
				if page.URL() != "" {
					line += fmt.Sprintf(", url %s", page.URL())
				}
				if _, err := fmt.Fprintln(out, line); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintf(out, "%d pages OK\n", cat.Len())
			return err
		},
	}
	cmd.Flags().StringSliceVar(&paths, "catalog", nil, "page table files (default from catalog.paths)")
	return cmd
}
