package wait_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pagekit/internal/config"
	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/element/elementtest"
	"github.com/xkilldash9x/pagekit/internal/wait"
)

func newEngine(t *testing.T, opts wait.Options) *wait.Engine {
	t.Helper()
	if opts.PollInterval == 0 {
		opts.PollInterval = 5 * time.Millisecond
	}
	return wait.NewEngine(zaptest.NewLogger(t), opts)
}

func handles(hs ...*elementtest.Handle) []element.Handle {
	out := make([]element.Handle, len(hs))
	for i, h := range hs {
		out[i] = h
	}
	return out
}

func TestUntil_Concurrent(t *testing.T) {
	t.Run("returns once every handle is satisfied", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		engine := newEngine(t, wait.Options{})

		a := elementtest.NewHandle("a").AppearAfter(10 * time.Millisecond)
		b := elementtest.NewHandle("b").AppearAfter(20 * time.Millisecond)

		start := time.Now()
		err := engine.Until(context.Background(), handles(a, b), wait.Visible, time.Second, wait.Concurrent)
		require.NoError(t, err)
		assert.Less(t, time.Since(start), 500*time.Millisecond)
	})

	t.Run("names the slow handle when the shared budget expires", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		engine := newEngine(t, wait.Options{})

		fast := elementtest.NewHandle("fast").AppearAfter(10 * time.Millisecond)
		medium := elementtest.NewHandle("medium").AppearAfter(20 * time.Millisecond)
		slow := elementtest.NewHandle("slow").AppearAfter(5 * time.Second)

		start := time.Now()
		err := engine.Until(context.Background(), handles(fast, medium, slow), wait.Visible, 200*time.Millisecond, wait.Concurrent)
		elapsed := time.Since(start)

		require.Error(t, err)
		assert.ErrorIs(t, err, wait.ErrTimeout)
		var timeout *wait.TimeoutError
		require.ErrorAs(t, err, &timeout)
		assert.Equal(t, "slow", timeout.Handle)
		assert.Equal(t, "visible", timeout.Condition)
		assert.Equal(t, wait.Concurrent, timeout.Mode)
		assert.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
		assert.Less(t, elapsed, 2*time.Second, "the budget is shared, not per handle")
	})

	t.Run("budgets are shared across handles", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		engine := newEngine(t, wait.Options{})

		a := elementtest.NewHandle("a").AppearAfter(150 * time.Millisecond)
		b := elementtest.NewHandle("b").AppearAfter(250 * time.Millisecond)

		err := engine.Until(context.Background(), handles(a, b), wait.Visible, 200*time.Millisecond, wait.Concurrent)
		var timeout *wait.TimeoutError
		require.ErrorAs(t, err, &timeout)
		assert.Equal(t, "b", timeout.Handle)
	})
}

func TestUntil_Sequential(t *testing.T) {
	t.Run("each handle gets its own budget", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		engine := newEngine(t, wait.Options{})

		a := elementtest.NewHandle("a").AppearAfter(150 * time.Millisecond)
		b := elementtest.NewHandle("b").AppearAfter(250 * time.Millisecond)

		err := engine.Until(context.Background(), handles(a, b), wait.Visible, 200*time.Millisecond, wait.Sequential)
		assert.NoError(t, err)
	})

	t.Run("aborts on the first failing handle", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		engine := newEngine(t, wait.Options{})

		never := elementtest.NewHandle("never").SetVisible(false)
		untouched := elementtest.NewHandle("untouched")

		err := engine.Until(context.Background(), handles(never, untouched), wait.Visible, 50*time.Millisecond, wait.Sequential)
		var timeout *wait.TimeoutError
		require.ErrorAs(t, err, &timeout)
		assert.Equal(t, "never", timeout.Handle)
		assert.Equal(t, wait.Sequential, timeout.Mode)
		assert.Zero(t, untouched.Checks(), "later handles are not polled after a failure")
	})
}

func TestUntil_DriverErrors(t *testing.T) {
	t.Run("transient errors count as not yet satisfied", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		engine := newEngine(t, wait.Options{})

		flaky := elementtest.NewHandle("flaky").SetErr(errors.New("node is detached from document"))
		go func() {
			time.Sleep(30 * time.Millisecond)
			flaky.SetErr(nil)
		}()

		err := engine.Until(context.Background(), handles(flaky), wait.Visible, time.Second, wait.Concurrent)
		assert.NoError(t, err)
	})

	t.Run("persistent errors surface on the timeout", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		engine := newEngine(t, wait.Options{})

		broken := elementtest.NewHandle("broken").SetErr(errors.New("no node found"))
		err := engine.Until(context.Background(), handles(broken), wait.Visible, 40*time.Millisecond, wait.Concurrent)

		var timeout *wait.TimeoutError
		require.ErrorAs(t, err, &timeout)
		require.Error(t, timeout.LastErr)
		assert.Contains(t, err.Error(), "no node found")
	})
}

func TestUntil_Arguments(t *testing.T) {
	engine := newEngine(t, wait.Options{})

	assert.NoError(t, engine.Until(context.Background(), nil, wait.Visible, time.Second, wait.Concurrent),
		"nothing to wait for is trivially satisfied")

	err := engine.Until(context.Background(), handles(elementtest.NewHandle("a")), wait.Visible, 0, wait.Concurrent)
	require.Error(t, err)
	assert.NotErrorIs(t, err, wait.ErrTimeout)
}

func TestUntil_CallerCancellation(t *testing.T) {
	defer goleak.VerifyNone(t)
	engine := newEngine(t, wait.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	err := engine.Until(ctx, handles(elementtest.NewHandle("x").SetVisible(false)), wait.Visible, 5*time.Second, wait.Concurrent)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, wait.ErrTimeout)
}

func TestUntil_RateLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	unlimited := newEngine(t, wait.Options{PollInterval: 2 * time.Millisecond})
	free := elementtest.NewHandle("free").SetVisible(false)
	_ = unlimited.Until(context.Background(), handles(free), wait.Visible, 300*time.Millisecond, wait.Concurrent)

	limited := newEngine(t, wait.Options{PollInterval: 2 * time.Millisecond, MaxChecksPerSecond: 10})
	capped := elementtest.NewHandle("capped").SetVisible(false)
	_ = limited.Until(context.Background(), handles(capped), wait.Visible, 300*time.Millisecond, wait.Concurrent)

	assert.Greater(t, free.Checks(), 30)
	assert.LessOrEqual(t, capped.Checks(), 15)
}

func TestConditions(t *testing.T) {
	ctx := context.Background()

	t.Run("absent covers hidden and removed", func(t *testing.T) {
		ok, err := wait.Absent.Check(ctx, elementtest.NewHandle("h").SetHidden())
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = wait.Absent.Check(ctx, elementtest.NewHandle("v"))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("detached requires removal", func(t *testing.T) {
		ok, err := wait.Detached.Check(ctx, elementtest.NewHandle("h").SetHidden())
		require.NoError(t, err)
		assert.False(t, ok)

		ok, err = wait.Detached.Check(ctx, elementtest.NewHandle("g").SetVisible(false))
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("has text", func(t *testing.T) {
		cond := wait.HasText("Welcome")
		ok, err := cond.Check(ctx, elementtest.NewHandle("t").SetText("Welcome back, alice"))
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Contains(t, cond.Name, "Welcome")
	})
}

func TestParseMode(t *testing.T) {
	m, err := wait.ParseMode("Sequential")
	require.NoError(t, err)
	assert.Equal(t, wait.Sequential, m)

	m, err = wait.ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, wait.Concurrent, m)

	_, err = wait.ParseMode("eventually")
	assert.Error(t, err)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.NewDefaultConfig().Wait
	cfg.Mode = config.WaitModeSequential

	opts, err := wait.OptionsFromConfig(cfg)
	require.NoError(t, err)
	assert.Equal(t, wait.Sequential, opts.Mode)
	assert.Equal(t, cfg.AppearTimeout, opts.AppearTimeout)
	assert.Equal(t, cfg.PollInterval, opts.PollInterval)
}

func resolvePage(t *testing.T, provider *elementtest.Provider) *element.Instance {
	t.Helper()
	header := element.NewTable("Header").
		Element("Logo", element.ByCSS(".logo")).
		Element("Search", element.ByCSS(".search")).Optional()
	desc := element.MustBuild(element.NewTable("Home").
		Element("Title", element.ByCSS("h1")).
		Block("Header", element.ByCSS("header"), header).
		Element("Cookie banner", element.ByCSS(".cookies")).Optional())

	inst, err := element.Resolve(context.Background(), desc, provider)
	require.NoError(t, err)
	return inst
}

func TestAppeared(t *testing.T) {
	t.Run("waits for mandatory leaves and blocks", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		provider := elementtest.NewProvider()
		inst := resolvePage(t, provider)
		provider.Handle("Header/Logo").AppearAfter(30 * time.Millisecond)
		provider.Handle("Cookie banner").SetVisible(false)
		provider.Handle("Header/Search").SetVisible(false)

		engine := newEngine(t, wait.Options{AppearTimeout: time.Second})
		assert.NoError(t, engine.Appeared(context.Background(), inst))
	})

	t.Run("names the missing nested element", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		provider := elementtest.NewProvider()
		inst := resolvePage(t, provider)
		provider.Handle("Header/Logo").SetHidden()

		engine := newEngine(t, wait.Options{AppearTimeout: 50 * time.Millisecond})
		err := engine.Appeared(context.Background(), inst)
		var timeout *wait.TimeoutError
		require.ErrorAs(t, err, &timeout)
		assert.Equal(t, "Header/Logo", timeout.Handle)
		assert.Contains(t, err.Error(), `"Home" has not appeared`)
	})
}

func TestDisappeared(t *testing.T) {
	t.Run("succeeds once primary elements are gone", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		provider := elementtest.NewProvider()
		inst := resolvePage(t, provider)
		provider.Handle("Title").VanishAfter(20 * time.Millisecond)
		provider.Handle("Header/Logo").SetHidden()

		engine := newEngine(t, wait.Options{DisappearTimeout: time.Second})
		assert.NoError(t, engine.Disappeared(context.Background(), inst))
	})

	t.Run("optional elements may linger", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		provider := elementtest.NewProvider()
		inst := resolvePage(t, provider)
		provider.Handle("Title").SetVisible(false)
		provider.Handle("Header/Logo").SetVisible(false)

		engine := newEngine(t, wait.Options{DisappearTimeout: 100 * time.Millisecond})
		assert.NoError(t, engine.Disappeared(context.Background(), inst))
	})

	t.Run("fails when an element stays", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		provider := elementtest.NewProvider()
		inst := resolvePage(t, provider)
		provider.Handle("Header/Logo").SetVisible(false)

		engine := newEngine(t, wait.Options{DisappearTimeout: 50 * time.Millisecond, Mode: wait.Sequential})
		err := engine.Disappeared(context.Background(), inst)
		var timeout *wait.TimeoutError
		require.ErrorAs(t, err, &timeout)
		assert.Equal(t, "Title", timeout.Handle)
		assert.Equal(t, "absent", timeout.Condition)
	})
}
