// Package store provides a SQLite-backed record server implementing
// collection.Strategy.
//
// Every entity shares one records table keyed by (entity, id). The body
// column holds the record as RFC 8785 canonical JSON and body_hash its
// domain-separated SHA-256, so identical records always produce identical
// rows.
//
// # Critical Patterns
//
// Logical Identity and Time
//   - Creation order uses seq INTEGER (logical clock), NEVER timestamps
//   - Updates keep the seq of the original insert
//
// Deterministic Query Results
//   - All list queries include: ORDER BY seq ASC, id ASC COLLATE BINARY
//   - Where-queries are lowered through queryir and querysql, then every
//     row is re-checked with value.MatchesWhere
//
// Server-Assigned Identity
//   - Upsert without an id assigns one from the configured generator
//     (UUIDv7 by default)
//   - Upsert with an id overlays the given fields on the stored record
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait up to 5s for locks
//   - foreign_keys=ON: Enforce referential integrity
//   - Single connection: SQLite supports one writer at a time
package store
