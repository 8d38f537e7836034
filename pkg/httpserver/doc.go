// Package httpserver runs an http.Handler with configurable timeouts,
// graceful shutdown bound to a context, and health-check handlers.
//
//	srv := httpserver.NewFromConfig(cfg, httpserver.WithLogger(log))
//	if err := srv.Run(ctx, handler); err != nil {
//		return err
//	}
//
// Run returns when ctx is cancelled or Shutdown is called. Listen failures
// are wrapped with ErrStart, shutdown failures with ErrShutdown.
package httpserver
