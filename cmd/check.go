package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/browser"
	"github.com/xkilldash9x/pagekit/internal/config"
	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/observability"
	"github.com/xkilldash9x/pagekit/internal/scenario"
	"github.com/xkilldash9x/pagekit/internal/snapshot"
	"github.com/xkilldash9x/pagekit/internal/wait"
)

type checkOptions struct {
	catalogs    []string
	page        string
	snapshot    string
	url         string
	mode        string
	disappeared bool
	vars        variableFlags
}

func newCheckCmd() *cobra.Command {
	var opts checkOptions

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Resolve a page and wait for it to appear (or disappear)",
		Long: `Resolve a page from the catalog against an HTML snapshot or a live browser
and wait until its mandatory elements are visible.

With --snapshot the page is checked against a saved HTML file. Otherwise a
headless browser opens --url, or the url declared for the page; the url is a
template expanded with the scenario variables first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd.Context(), cmd, configFrom(cmd), opts, observability.GetLogger())
		},
	}

	cmd.Flags().StringSliceVar(&opts.catalogs, "catalog", nil, "page table files (default from catalog.paths)")
	cmd.Flags().StringVarP(&opts.page, "page", "p", "", "name of the page to check")
	cmd.Flags().StringVar(&opts.snapshot, "snapshot", "", "HTML file to check instead of a live browser")
	cmd.Flags().StringVar(&opts.url, "url", "", "url template to open (default is the page's declared url)")
	cmd.Flags().StringVar(&opts.mode, "mode", "", "wait mode: concurrent or sequential (default from wait.mode)")
	cmd.Flags().BoolVar(&opts.disappeared, "disappeared", false, "wait for the page to disappear instead")
	opts.vars.register(cmd)
	_ = cmd.MarkFlagRequired("page")
	cmd.MarkFlagsMutuallyExclusive("snapshot", "url")
	return cmd
}

// target is where a check runs: a parsed snapshot or a browser tab.
type target struct {
	provider element.Provider
	// navigate is nil for snapshots.
	navigate func(ctx context.Context, url string) error
	close    func()
}

func openTarget(ctx context.Context, cfg *config.Config, opts checkOptions, logger *zap.Logger) (*target, error) {
	if opts.snapshot != "" {
		doc, err := snapshot.LoadFile(opts.snapshot)
		if err != nil {
			return nil, err
		}
		return &target{provider: snapshot.NewProvider(doc), close: func() {}}, nil
	}

	b, err := browser.Launch(ctx, cfg.Browser, logger)
	if err != nil {
		return nil, err
	}
	tab, err := b.NewTab(ctx)
	if err != nil {
		b.Close()
		return nil, err
	}
	return &target{
		provider: tab.Provider(),
		navigate: tab.Navigate,
		close: func() {
			tab.Close()
			b.Close()
		},
	}, nil
}

func runCheck(ctx context.Context, cmd *cobra.Command, cfg *config.Config, opts checkOptions, logger *zap.Logger) error {
	if opts.mode != "" {
		cfg.Wait.Mode = opts.mode
	}
	waitOpts, err := wait.OptionsFromConfig(cfg.Wait)
	if err != nil {
		return err
	}

	cat, declared, err := loadCatalog(catalogPaths(opts.catalogs, cfg), logger)
	if err != nil {
		return err
	}
	page, err := cat.Get(opts.page)
	if err != nil {
		return err
	}

	urlTemplate := opts.url
	if urlTemplate == "" && opts.snapshot == "" {
		if dp, ok := declared[opts.page]; ok {
			urlTemplate = dp.URL()
		}
		if urlTemplate == "" {
			return fmt.Errorf("page %q declares no url; pass --url or --snapshot", opts.page)
		}
	}

	props, err := opts.vars.propertySource(cfg)
	if err != nil {
		return err
	}

	tgt, err := openTarget(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}
	defer tgt.close()

	sc, err := scenario.New(scenario.Options{
		Catalog:   cat,
		Provider:  tgt.provider,
		Engine:    wait.NewEngine(logger, waitOpts),
		Logger:    logger,
		External:  props,
		MaxPasses: cfg.Variables.MaxPasses,
	})
	if err != nil {
		return err
	}
	defer sc.Close()

	if err := opts.vars.apply(sc.Vars()); err != nil {
		return err
	}

	if tgt.navigate != nil {
		url, err := sc.Vars().ReplaceVariables(urlTemplate)
		if err != nil {
			return err
		}
		logger.Info("Opening page.", zap.String("page", opts.page), zap.String("url", url))
		if err := tgt.navigate(ctx, url); err != nil {
			return err
		}
	}

	if err := sc.SetCurrentPage(ctx, page); err != nil {
		return err
	}
	inst, err := sc.Instance()
	if err != nil {
		return err
	}

	state := "appeared"
	if opts.disappeared {
		state = "disappeared"
		err = sc.Disappeared(ctx)
	} else {
		err = sc.Appeared(ctx)
	}
	if err != nil {
		var timeout *wait.TimeoutError
		if errors.As(err, &timeout) {
			logger.Warn("Page check timed out.",
				zap.String("page", opts.page),
				zap.String("element", timeout.Handle),
				zap.String("condition", timeout.Condition))
		}
		return err
	}

	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%d mandatory elements)\n",
		opts.page, state, len(inst.PrimaryElements()))
	return err
}
