package core

import (
	"fmt"
	"os"

	"trackcore/internal/infra/journal/memory"
	"trackcore/internal/infra/journal/postgres"
	"trackcore/internal/infra/journal/sqlite"
)

// JournalDriver identifies a concrete journal backend.
type JournalDriver string

const (
	JournalMemory   JournalDriver = "memory"   // in-memory only (tests / ephemeral)
	JournalSQLite   JournalDriver = "sqlite"   // embedded sqlite file
	JournalPostgres JournalDriver = "postgres" // PostgreSQL server
)

// OpenJournal selects a journal backend using environment variables.
// Defaults to sqlite when unset.
//
//	TRACKCORE_JOURNAL_DRIVER: memory|sqlite|postgres (default sqlite)
//	TRACKCORE_SQLITE_PATH: path to sqlite file (default ./trackcore.db)
//	TRACKCORE_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenJournal() (Journal, error) {
	driver := os.Getenv("TRACKCORE_JOURNAL_DRIVER")
	if driver == "" {
		driver = string(JournalSQLite)
	}
	switch JournalDriver(driver) {
	case JournalMemory:
		return memory.NewJournal(), nil
	case JournalSQLite:
		return sqlite.NewJournal(os.Getenv("TRACKCORE_SQLITE_PATH"))
	case JournalPostgres:
		return postgres.NewJournal(os.Getenv("TRACKCORE_POSTGRES_DSN"))
	default:
		return nil, fmt.Errorf("unknown journal driver %s", driver)
	}
}
