// Package app wires the POScope web service together: configuration,
// logging, OpenTelemetry, the session store, the services and the chi
// router.
//
// # Initialization Flow
//
//	1. Load configuration from the environment (POSCOPE_* variables)
//	2. Initialize slog and OpenTelemetry providers
//	3. Build the POS pipeline and the calendar feature builder
//	4. Create the in-memory session store
//	5. Create services and mount the HTTP handlers
//
// # Usage
//
//	application, err := app.NewApplication()
//	if err != nil {
//	    os.Exit(1)
//	}
//	if err := application.Run(); err != nil {
//	    os.Exit(1)
//	}
//
// Tests build an Application from an explicit configuration with New.
//
// # Graceful Shutdown
//
// Run blocks until SIGINT or SIGTERM. Stop drains in-flight requests,
// stops the session sweeper, flushes telemetry and closes the log file.
// Session data lives only in memory and is dropped on shutdown.
//
// Initialization errors are returned to the caller; the package never
// calls os.Exit.
package app
