// Package config loads service configuration from LOPAN_* environment
// variables with sane defaults, covering the HTTP servers, the result
// cache backend, the audit sink backend and the engine tunables.
// Malformed values fall back to their defaults; inconsistent
// combinations fail validation at startup.
package config
