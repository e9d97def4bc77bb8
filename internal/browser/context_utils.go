package browser

import "context"

// CombineContext returns a context derived from tabCtx, which carries the CDP
// target, that is also cancelled when opCtx is done. Actions run on the tab
// while honouring the caller's deadline.
func CombineContext(tabCtx, opCtx context.Context) (context.Context, context.CancelFunc) {
	combined, cancel := context.WithCancel(tabCtx)
	stop := context.AfterFunc(opCtx, cancel)
	return combined, func() {
		stop()
		cancel()
	}
}
