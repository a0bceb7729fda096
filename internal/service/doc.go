// Package service contains the application's business logic, coordinating
// between the API layer, the data stores, the cache, and the background job
// system. Services own transaction boundaries and cache invalidation;
// handlers and jobs stay thin.
package service
