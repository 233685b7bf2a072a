package marker

import (
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/vmunix/skipd/internal/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if _, err := db.Exec(migrations.InitialSQL); err != nil {
		t.Fatalf("apply schema: %v", err)
	}
	return db
}

// ptr is a helper to create pointer to value
func ptr[T any](v T) *T {
	return &v
}

func episodeRecord(itemID int64) *Record {
	return &Record{
		ItemID:        itemID,
		Kind:          KindEpisode,
		Title:         "Pilot",
		ShowTitle:     "Dexter",
		ParentID:      ptr(int64(100)),
		GrandparentID: ptr(int64(10)),
		DurationMS:    50 * 60 * 1000,
		Location:      "/tv/dexter/s01e01.mkv",
	}
}
