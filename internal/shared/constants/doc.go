// Package constants centralizes defaults shared across the CLI, the API
// service and the audit pipeline.
//
// File permissions, fetch limits and identities live in one place so cmd/ and
// internal/ can reference them without introducing import cycles.
package constants
