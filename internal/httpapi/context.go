package httpapi

import (
	"context"
	"time"
)

// serverBaseCtx is a process-level context that can be canceled on shutdown.
// Defaults to Background if not set.
var serverBaseCtx = context.Background()

// SetBaseContext sets the process-level base context used by handlers.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// requestContext derives the context for long-running work: it ends when
// the client goes away, the server shuts down, or sendTimeout elapses.
// The returned cancel func must be called when the handler ends.
func requestContext(r context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(r)
	stop := context.AfterFunc(serverBaseCtx, cancel)
	if sendTimeout > 0 {
		var tcancel context.CancelFunc
		ctx, tcancel = context.WithTimeout(ctx, time.Duration(sendTimeout)*time.Second)
		return ctx, func() { tcancel(); stop(); cancel() }
	}
	return ctx, func() { stop(); cancel() }
}
