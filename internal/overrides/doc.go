// Package overrides resolves per-command-key circuit settings from a flat
// key-value namespace. Keys follow the shape app_circuit_<key>_<setting>,
// e.g. app_circuit_fetch_user_force_open. A missing entry means "use the
// caller-supplied default".
package overrides
