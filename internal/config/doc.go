// Package config provides configuration management for the Galton pipeline.
// It loads settings from multiple sources, validates them, and resolves
// every file path the stages read and write.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file (galton.yaml or configs/galton.yaml)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern GALTON_* for namespacing:
//
//	GALTON_LOGGING_LEVEL=debug
//	GALTON_PATHS_DATA_DIR=/srv/galton/data
//	GALTON_REINDEX_ANOMALOUS=205
//	GALTON_REINDEX_TARGET=137
//	GALTON_TELEMETRY_TRACING=true
//
// The imputation tables are only configurable from the YAML file:
//
//	imputation:
//	  sons:
//	    - {label: short, rank: 0, value: 4.5}
//	    - {label: deformed, rank: 1, value: 5.5}
//	  aliases:
//	    "136A": 205
//
// # Path Management
//
// NewPaths derives every input and output file from the data directory:
//
//	paths, err := config.NewPaths(cfg.Paths)
//	if err != nil {
//	    return err
//	}
//	if err := paths.EnsureDirectories(); err != nil {
//	    return err
//	}
package config
