// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server settings, logging, process-wide circuit defaults, and the
// guarded upstream for the demo service. Per-key circuit overrides live in the
// flat app_circuit_* namespace and are resolved by internal/overrides.
package config
