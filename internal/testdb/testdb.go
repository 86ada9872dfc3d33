// Package testdb provides a shared test database helper for fast,
// realistic testing against an in-memory SQLite database.
package testdb

import (
	"context"
	"testing"

	"github.com/Bilal-khan980/semantic-search-assistant/internal/database"
)

// New creates an in-memory SQLite database, closed automatically when the
// test finishes. Schema setup is left to the caller; the journal migrates
// itself on construction.
func New(t *testing.T) database.Database {
	t.Helper()
	ctx := context.Background()
	db, err := database.NewDatabase(ctx, "sqlite:///:memory:")
	if err != nil {
		t.Fatalf("testdb.New: open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}
