// Package internal contains the core implementation packages for xsltlens.
//
// This package follows Go's internal package convention, making these
// packages unavailable for import by external modules while providing
// all the core functionality for the xsltlens CLI tool.
//
// # Package Organization
//
// The internal packages are organized by analysis stage and supporting
// concern:
//
//   - parser: XSLT template and variable extraction with complexity scoring
//   - semantic: pattern detection, data flow, and risk diagnostics
//   - execution: execution graph construction and path enumeration
//   - coordinator: pipeline orchestration for single files and batches
//   - registry: analysis result registry with event broadcasting
//   - watcher: file system monitoring with debouncing
//   - config: configuration management with validation
//   - errors: the structured error taxonomy shared across stages
//   - logging: structured logging on top of log/slog
//   - types: the data model shared by every stage
package internal
