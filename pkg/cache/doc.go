// Package cache provides a generic key-value cache with TTL support,
// backed by Redis in production and by an in-process map in tests.
// The redirect resolver uses it to avoid re-querying the document
// store for hot slugs.
package cache
