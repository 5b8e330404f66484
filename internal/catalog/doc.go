// Package catalog persists the content catalogue and the generation history
// records produced while jobs run, backed by SQLite.
//
// Contents are the registered product images a job may reference; lookups are
// always scoped to the owning user so a foreign content id reads as missing.
// Generations, captions, and ad copies are written by the pipeline stages as
// they complete and link back to one another by id. Job state itself is never
// stored here; it lives only in the in-memory registry.
package catalog
