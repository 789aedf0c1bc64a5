// internal/store/postgres/postgres.go

// Package postgres implements the record-store adapter on PostgreSQL.
package postgres

import (
	"database/sql"

	"school-event-automation/internal/common/logger"
)

// Store talks to the shared record database. All writes are single
// statements; the cascade relies on idempotency checks, not transactions,
// because other platform services write to the same tables.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{db: db, log: log}
}
