// Package database provides PostgreSQL connection pool management for the
// postgres snapshot backend.
package database
