// Package store defines the persistence interfaces the services depend on,
// the composable TaskFilter query layer, and shared database helpers such
// as transaction management and store error types. Concrete implementations
// live under internal/platform.
package store
