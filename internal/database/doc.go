// Package database provides the PostgreSQL connection pool backing the
// odds journal.
package database
