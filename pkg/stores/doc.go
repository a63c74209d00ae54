// Package stores provides the build history persistence layer for p4forge.
// It includes SQLite-based storage with WAL mode, connection pooling, and
// CRUD operations for runs, per-package build results, and run events.
package stores
