// Package app wires configuration, logging, telemetry and the pipeline
// steps into a single Application used by the galton command.
//
// # Initialization Flow
//
//	1. Load configuration from defaults, galton.yaml and GALTON_* variables
//	2. Apply command line overrides and validate again
//	3. Resolve paths and create the output and log directories
//	4. Initialize logging and OpenTelemetry
//	5. Register the impute, reindex, reshape and describe steps
//
// # Usage
//
//	a, err := app.NewApplication(app.Options{DataDir: "data"})
//	if err != nil {
//	    return err
//	}
//	defer a.Stop(ctx)
//	_, err = a.Run(ctx)
//
// Every run writes galton-manifest.json to the logs directory. Stop
// flushes spans and writes the Prometheus textfile.
package app
