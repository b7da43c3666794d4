// Package config provides centralized configuration management for POScope.
// It handles loading configuration from multiple sources, validation, and provides
// a type-safe API for accessing configuration values throughout the application.
//
// # Configuration Sources
//
// Configuration is loaded from the following sources in order of precedence:
//
//	1. Environment variables (highest priority)
//	2. YAML configuration file (POSCOPE_CONFIG, config.yaml or configs/config.yaml)
//	3. Default values (lowest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern POSCOPE_<SECTION>_<FIELD>:
//
//	POSCOPE_SERVER_PORT=8080
//	POSCOPE_LOGGING_LEVEL=debug
//	POSCOPE_PIPELINE_ACCOUNT_STORES=ub396203:west,ub396207:east
//	POSCOPE_FEATURES_LAST_WEEK_BY_TERM=SPR:14,AUT:15
//
// # Pipeline and Feature Settings
//
// The account-to-store map decides which register exports belong to which
// cafeteria; accounts not listed are rejected during cleaning. The last-week
// rule flags week 15 of every term unless LastWeekByTerm overrides a term.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// # Testing
//
// Use config.Default() to obtain a valid configuration that needs no
// environment variables or files.
package config
