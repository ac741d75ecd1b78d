// Package config loads environment-based configuration structs.
//
// Each package in the repository owns its Config struct and tags fields with
// `env` tags (github.com/caarlos0/env). config.Load parses a struct once per
// process and caches the result, so independent packages can load the same
// Config type without double-parsing or races.
package config
