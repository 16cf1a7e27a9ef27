// Package store persists the owning entities: users, movies and
// groups.
//
// The denormalized relationship counters (followers, friends, likes,
// group members and pending requests) live as columns on the entity
// rows. They are never written directly by handlers; the social edge
// store adjusts them through the CounterApplier seam inside the same
// transaction as the edge mutation that caused the change.
//
// One Store implementation serves three consumers: entity CRUD for the
// API handlers, ownership lookups for the access resolver
// (access.EntityDirectory), and counter application plus snapshots for
// the social package. Backends: MemoryStore for tests and local runs,
// SQLStore for Postgres and SQLite, and CachedStore as an optional
// redis read-through wrapper.
package store
