package browser_test

import (
	"context"
	"net/url"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/pagekit/internal/browser"
	"github.com/xkilldash9x/pagekit/internal/config"
	"github.com/xkilldash9x/pagekit/internal/element"
	"github.com/xkilldash9x/pagekit/internal/wait"
)

const fixtureHTML = `<!DOCTYPE html>
<html><head><title>Fixture</title></head>
<body>
  <form>
    <input id="user">
    <button id="go" type="button" onclick="document.getElementById('banner').style.display='none'">Go</button>
  </form>
  <div id="banner">Welcome</div>
  <ul><li class="item">one</li><li class="item">two</li><li class="item" style="display:none">three</li></ul>
</body></html>`

// chromePath finds a Chrome binary or skips the test.
func chromePath(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("browser tests are skipped in short mode")
	}
	if p := os.Getenv("PAGEKIT_TEST_CHROME"); p != "" {
		return p
	}
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if p, err := exec.LookPath(name); err == nil {
			return p
		}
	}
	t.Skip("no Chrome binary found")
	return ""
}

func openFixture(t *testing.T) *browser.Tab {
	t.Helper()
	execPath := chromePath(t)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	t.Cleanup(cancel)

	b, err := browser.Launch(ctx, config.BrowserConfig{Headless: true, ExecPath: execPath, DisableCache: true}, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(b.Close)

	tab, err := b.NewTab(ctx)
	require.NoError(t, err)
	t.Cleanup(tab.Close)

	require.NoError(t, tab.Navigate(ctx, "data:text/html,"+url.PathEscape(fixtureHTML)))
	return tab
}

func TestTab_Integration(t *testing.T) {
	tab := openFixture(t)
	ctx := context.Background()

	title, err := tab.Title(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Fixture", title)

	page := element.MustBuild(element.NewTable("Fixture").
		Element("User", element.ByCSS("#user")).
		Element("Go", element.ByXPath("//button[@id='go']")).
		Element("Banner", element.ByCSS("#banner")).
		List("Items", element.ByCSS("li.item")))

	inst, err := element.Resolve(ctx, page, tab.Provider())
	require.NoError(t, err)

	items, err := inst.ElementList("Items")
	require.NoError(t, err)
	require.Len(t, items, 3)
	visible, err := items[2].Visible(ctx)
	require.NoError(t, err)
	assert.False(t, visible)

	user, _ := inst.Element("User")
	require.NoError(t, user.Type(ctx, "alice"))
	text, err := user.Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", text)

	banner, _ := inst.Element("Banner")
	engine := wait.NewEngine(zaptest.NewLogger(t), wait.Options{PollInterval: 20 * time.Millisecond})
	require.NoError(t, engine.Until(ctx, []element.Handle{banner}, wait.HasText("Welcome"), 5*time.Second, wait.Concurrent))

	goButton, _ := inst.Element("Go")
	require.NoError(t, goButton.Click(ctx))
	require.NoError(t, engine.Until(ctx, []element.Handle{banner}, wait.Absent, 5*time.Second, wait.Concurrent))

	exists, err := banner.Exists(ctx)
	require.NoError(t, err)
	assert.True(t, exists, "hidden, not removed")
}
