// Package dfile defines the Design Record (D-File) types for vibecad.
// A D-File is the validated, immutable description of a CAD part as an
// ordered list of construction features plus metadata. It is produced by
// the compiler from generator output and consumed by the execution engine.
package dfile
