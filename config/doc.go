// Package config loads and validates netguard configuration.
//
// Configuration comes from a YAML file merged with environment variables,
// with a .env file loaded first when present. Environment variables override
// file values using underscore-separated paths (e.g. LOGGING_LEVEL or
// BREAKER_FAILURE_THRESHOLD).
//
// # Usage
//
//	var cfg app.Config
//	err := config.Load("netguard", &cfg)
//
// Struct validation uses `validate` tags, see ValidateStruct.
package config
