// Package postgres provides PostgreSQL implementations of the store
// interfaces. All database errors are routed through MapError so callers
// only ever see the store package's sentinel errors.
package postgres
