// Package model defines the core data structures used throughout metanull.
//
// This package contains the following main types:
//   - MetadataReport: The structured result of inspecting an image
//   - SanitizationConfig: The immutable settings of one sanitize call
//   - SanitizationResult: The outcome of a sanitize call with diagnostics
//   - Summary: A severity roll-up of a MetadataReport
//
// Models live in their own package so that the engine, report writers,
// history database and CLI can share them without import cycles.
//
// The models are serializable to JSON for report output and history
// storage.
package model
