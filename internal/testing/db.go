// Package testing provides testing utilities and helpers for the signalist project.
package testing

import (
	"path/filepath"
	"testing"

	"github.com/aristath/signalist/internal/database"
)

// NewTestDB creates a file-backed SQLite database in a temporary directory and
// applies the schema registered for name (database.NameSignalist or
// database.NameClientData). Unknown names yield an empty database.
// The database is closed automatically when the test finishes.
func NewTestDB(t *testing.T, name string) *database.DB {
	t.Helper()

	profile := database.ProfileStandard
	if name == database.NameClientData {
		profile = database.ProfileCache
	}

	db, err := database.New(database.Config{
		Path:    filepath.Join(t.TempDir(), name+".db"),
		Profile: profile,
		Name:    name,
	})
	if err != nil {
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
	})

	if err := db.Migrate(); err != nil {
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db
}
