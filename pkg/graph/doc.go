// Package graph derives the feature dependency graph of a D-File and checks
// it against the effective execution order, so ordering mistakes surface
// before a run instead of as per-feature failures during one.
package graph
