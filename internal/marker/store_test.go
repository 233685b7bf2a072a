package marker

import (
	"errors"
	"testing"
	"time"
)

func TestStore_UpsertAndGet(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	rec := episodeRecord(1)
	rec.ThemeStart = ptr(int64(20))
	rec.ThemeEnd = ptr(int64(180))
	rec.HasRecap = ptr(true)

	before := time.Now()
	if err := store.Upsert(rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if rec.UpdatedAt.Before(before) {
		t.Errorf("UpdatedAt %v should be set on upsert", rec.UpdatedAt)
	}

	got, err := store.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Kind != KindEpisode {
		t.Errorf("Kind = %q, want %q", got.Kind, KindEpisode)
	}
	if got.ThemeStart == nil || *got.ThemeStart != 20 {
		t.Errorf("ThemeStart = %v, want 20", got.ThemeStart)
	}
	if got.ThemeEnd == nil || *got.ThemeEnd != 180 {
		t.Errorf("ThemeEnd = %v, want 180", got.ThemeEnd)
	}
	if got.HeuristicEnd != nil {
		t.Errorf("HeuristicEnd = %v, want nil (never searched)", got.HeuristicEnd)
	}
	if got.HasRecap == nil || !*got.HasRecap {
		t.Errorf("HasRecap = %v, want true", got.HasRecap)
	}
	if got.GrandparentID == nil || *got.GrandparentID != 10 {
		t.Errorf("GrandparentID = %v, want 10", got.GrandparentID)
	}
}

func TestStore_Get_NotFound(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	_, err := store.Get(999)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get(999) error = %v, want ErrNotFound", err)
	}
}

func TestStore_Upsert_SingleRecordPerItem(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	rec := episodeRecord(1)
	rec.ThemeEnd = ptr(int64(180))
	if err := store.Upsert(rec); err != nil {
		t.Fatalf("first Upsert: %v", err)
	}
	rec.ThemeEnd = ptr(int64(185))
	if err := store.Upsert(rec); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	all, err := store.ListAll()
	if err != nil {
		t.Fatalf("ListAll: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("got %d records, want 1", len(all))
	}
	if *all[0].ThemeEnd != 185 {
		t.Errorf("ThemeEnd = %d, want 185", *all[0].ThemeEnd)
	}
}

func TestStore_Upsert_PreservesCorrections(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	rec := episodeRecord(1)
	rec.ThemeEnd = ptr(int64(180))
	if err := store.Upsert(rec); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.SetCorrected(1, FieldThemeEnd, 120); err != nil {
		t.Fatalf("SetCorrected: %v", err)
	}

	// Re-analysis comes back with a different detected value and no
	// knowledge of the correction.
	again := episodeRecord(1)
	again.ThemeEnd = ptr(int64(50))
	if err := store.Upsert(again); err != nil {
		t.Fatalf("re-Upsert: %v", err)
	}

	got, err := store.Get(1)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CorrectThemeEnd == nil || *got.CorrectThemeEnd != 120 {
		t.Errorf("CorrectThemeEnd = %v, want 120 (correction must survive re-analysis)", got.CorrectThemeEnd)
	}
	if got.ThemeEnd == nil || *got.ThemeEnd != 50 {
		t.Errorf("ThemeEnd = %v, want 50 (detected value must update)", got.ThemeEnd)
	}
}

func TestStore_SetCorrected_UnknownItem(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	err := store.SetCorrected(42, FieldThemeEnd, 120)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("SetCorrected on missing item = %v, want ErrNotFound", err)
	}
}

func TestStore_SetCorrected_RejectsUnknownField(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	if err := store.Upsert(episodeRecord(1)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.SetCorrected(1, CorrectedField("location"), 1); err == nil {
		t.Error("SetCorrected with arbitrary column name should fail")
	}
}

func TestStore_Delete_Idempotent(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	if err := store.Upsert(episodeRecord(1)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := store.Delete(1); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Get(1); !errors.Is(err, ErrNotFound) {
		t.Errorf("Get after delete = %v, want ErrNotFound", err)
	}
	// Deleting again is a no-op.
	if err := store.Delete(1); err != nil {
		t.Errorf("second Delete: %v", err)
	}
}

func TestStore_Upsert_RejectsBadKind(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	rec := episodeRecord(1)
	rec.Kind = Kind("trailer")
	err := store.Upsert(rec)
	if !errors.Is(err, ErrConstraint) {
		t.Errorf("Upsert with bad kind = %v, want ErrConstraint", err)
	}
}

func TestTx_RollbackLeavesNoPartialRecord(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	tx, err := store.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := tx.Upsert(episodeRecord(7)); err != nil {
		t.Fatalf("tx Upsert: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	if _, err := store.Get(7); !errors.Is(err, ErrNotFound) {
		t.Errorf("record visible after rollback: %v", err)
	}
}

func TestTx_CommitMakesRecordVisible(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)

	tx, err := store.Begin()
	if err != nil {
		t.Fatalf("Begin: %v", err)
	}
	if err := tx.Upsert(episodeRecord(7)); err != nil {
		t.Fatalf("tx Upsert: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if _, err := store.Get(7); err != nil {
		t.Errorf("Get after commit: %v", err)
	}
}
