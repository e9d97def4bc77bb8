// Package browser drives a Chrome tab through chromedp and exposes its DOM as
// element handles.
package browser

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/xkilldash9x/pagekit/internal/config"
)

const (
	launchTimeout            = 30 * time.Second
	defaultNavigationTimeout = 90 * time.Second
)

// Browser owns one Chrome process.
type Browser struct {
	logger      *zap.Logger
	cfg         config.BrowserConfig
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// Launch starts Chrome and checks that it responds.
func Launch(ctx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Browser, error) {
	b := &Browser{
		logger: logger.Named("browser"),
		cfg:    cfg,
	}
	b.logger.Info("Launching browser...", zap.Bool("headless", cfg.Headless), zap.String("exec_path", cfg.ExecPath))

	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(ctx, DefaultAllocatorOptions(cfg)...)

	// Run a trivial task to confirm the browser is alive.
	probeCtx, cancelProbe := context.WithTimeout(b.allocCtx, launchTimeout)
	defer cancelProbe()
	probeCtx, cancelTab := chromedp.NewContext(probeCtx)
	defer cancelTab()
	if err := chromedp.Run(probeCtx, chromedp.Navigate("about:blank")); err != nil {
		b.allocCancel()
		return nil, fmt.Errorf("browser failed to start or respond: %w", err)
	}

	b.logger.Info("Browser launched.")
	return b, nil
}

// DefaultAllocatorOptions assembles the Chrome flags for cfg.
func DefaultAllocatorOptions(cfg config.BrowserConfig) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	opts = append(opts,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", cfg.Headless),
		chromedp.Flag("disable-extensions", true),
	)
	if cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ExecPath))
	}
	if cfg.IgnoreTLSErrors {
		opts = append(opts,
			chromedp.Flag("ignore-certificate-errors", true),
			chromedp.Flag("allow-insecure-localhost", true),
		)
	}
	if cfg.DisableCache {
		opts = append(opts,
			chromedp.Flag("disk-cache-size", "0"),
			chromedp.Flag("media-cache-size", "0"),
			chromedp.Flag("disable-cache", true),
		)
	}

	// Custom arguments from the configuration, "--name=value" or "--name".
	for _, arg := range cfg.Args {
		name, value, hasValue := strings.Cut(arg, "=")
		name = strings.TrimPrefix(name, "--")
		if name == "" {
			continue
		}
		if hasValue {
			opts = append(opts, chromedp.Flag(name, value))
		} else {
			opts = append(opts, chromedp.Flag(name, true))
		}
	}

	// Flags required inside containers.
	if runtime.GOOS == "linux" {
		opts = append(opts,
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)
	}
	return opts
}

// NewTab opens a tab.
func (b *Browser) NewTab(ctx context.Context) (*Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tabCtx, cancel := chromedp.NewContext(b.allocCtx)
	// The first Run must use the tab context itself: it starts the browser
	// and creates the target, both bound to that context's lifetime.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, fmt.Errorf("open tab: %w", err)
	}

	timeout := b.cfg.NavigationTimeout
	if timeout <= 0 {
		timeout = defaultNavigationTimeout
	}
	return &Tab{
		ctx:        tabCtx,
		cancel:     cancel,
		logger:     b.logger.Named("tab"),
		navTimeout: timeout,
	}, nil
}

// Close terminates the browser process.
func (b *Browser) Close() {
	b.allocCancel()
	b.logger.Info("Browser closed.")
}

// Tab is one browser tab.
type Tab struct {
	ctx        context.Context
	cancel     context.CancelFunc
	logger     *zap.Logger
	navTimeout time.Duration
}

// Navigate loads url and waits for the load event.
func (t *Tab) Navigate(ctx context.Context, url string) error {
	runCtx, stop := CombineContext(t.ctx, ctx)
	defer stop()
	runCtx, cancel := context.WithTimeout(runCtx, t.navTimeout)
	defer cancel()

	t.logger.Debug("Navigating.", zap.String("url", url))
	if err := chromedp.Run(runCtx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// Title returns the document title.
func (t *Tab) Title(ctx context.Context) (string, error) {
	runCtx, stop := CombineContext(t.ctx, ctx)
	defer stop()
	var title string
	if err := chromedp.Run(runCtx, chromedp.Title(&title)); err != nil {
		return "", err
	}
	return title, nil
}

// Provider returns a handle provider over this tab's document.
func (t *Tab) Provider() *Provider {
	return &Provider{tab: t}
}

// Close closes the tab.
func (t *Tab) Close() {
	t.cancel()
}

func evalByValue(p *cdpruntime.EvaluateParams) *cdpruntime.EvaluateParams {
	return p.WithReturnByValue(true).WithSilent(true)
}

// run evaluates one resolver call in the tab.
func (t *Tab) run(ctx context.Context, c call) (result, error) {
	script, err := buildScript(c)
	if err != nil {
		return result{}, err
	}
	runCtx, stop := CombineContext(t.ctx, ctx)
	defer stop()

	var res result
	if err := chromedp.Run(runCtx, chromedp.Evaluate(script, &res, evalByValue)); err != nil {
		return result{}, err
	}
	return res, nil
}
