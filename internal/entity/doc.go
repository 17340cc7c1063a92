// Package entity defines the stored records shared by all slug-bearing
// kinds (users, businesses, articles) and their PostgreSQL store.
//
// Every record carries a current slug plus an append-only slug history;
// the invariant maintained across the package is that exactly one slug
// per entity is current at any instant and history entries are never
// removed or reordered.
package entity
