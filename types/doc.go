// Package types contains the core data model and capability interfaces for
// the profscale library.
//
// It is a leaf package with no dependencies on the rest of the module, so
// internal packages can depend on it without importing the root profscale
// package. The root package re-exports the commonly used definitions via
// type aliases.
package types
