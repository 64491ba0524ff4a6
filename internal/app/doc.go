// Package app wires the attendance web service together.
//
// NewApplication resolves directories, starts OpenTelemetry, loads the
// mapping store and builds the service, router and HTTP server. Run serves
// until its context is cancelled and then shuts the server down within
// Server.ShutdownTimeout.
//
// Typical use from main:
//
//	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
//	defer stop()
//	a, err := app.NewApplication(cfg, logger)
//	if err != nil {
//	    return err
//	}
//	return a.Run(ctx)
package app
