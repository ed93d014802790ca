package storage

import (
	"errors"
	"testing"
)

func exerciseDatabase(t *testing.T, db Database) {
	t.Helper()
	if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	for _, k := range []string{"a/2", "a/1", "b/1", "a/3"} {
		if err := db.Put([]byte(k), []byte("v"+k)); err != nil {
			t.Fatalf("put %s: %v", k, err)
		}
	}
	if err := db.Delete([]byte("a/3")); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var keys []string
	if err := db.Iterate([]byte("a/"), func(k, v []byte) bool {
		keys = append(keys, string(k))
		return true
	}); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(keys) != 2 || keys[0] != "a/1" || keys[1] != "a/2" {
		t.Fatalf("unexpected keys %v", keys)
	}

	batch := new(Batch)
	batch.Put([]byte("c/1"), []byte("x"))
	batch.Delete([]byte("b/1"))
	if err := db.Write(batch); err != nil {
		t.Fatalf("write: %v", err)
	}
	if v, err := db.Get([]byte("c/1")); err != nil || string(v) != "x" {
		t.Fatalf("batched put missing: %q %v", v, err)
	}
	if _, err := db.Get([]byte("b/1")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("batched delete not applied: %v", err)
	}
}

func TestMemDB(t *testing.T) {
	exerciseDatabase(t, NewMemDB())
}

func TestLevelDB(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()
	exerciseDatabase(t, db)
}

func TestOverlayCommitAndDiscard(t *testing.T) {
	parent := NewMemDB()
	_ = parent.Put([]byte("k/1"), []byte("old"))
	_ = parent.Put([]byte("k/2"), []byte("keep"))

	overlay := NewOverlay(parent)
	_ = overlay.Put([]byte("k/1"), []byte("new"))
	_ = overlay.Delete([]byte("k/2"))
	_ = overlay.Put([]byte("k/3"), []byte("added"))

	if v, _ := parent.Get([]byte("k/1")); string(v) != "old" {
		t.Fatalf("parent mutated before commit")
	}
	var seen []string
	_ = overlay.Iterate([]byte("k/"), func(k, v []byte) bool {
		seen = append(seen, string(k)+"="+string(v))
		return true
	})
	if len(seen) != 2 || seen[0] != "k/1=new" || seen[1] != "k/3=added" {
		t.Fatalf("unexpected merged view %v", seen)
	}

	discarded := NewOverlay(parent)
	_ = discarded.Put([]byte("k/1"), []byte("dropped"))
	if !discarded.Dirty() {
		t.Fatalf("expected dirty overlay")
	}

	if err := overlay.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if v, _ := parent.Get([]byte("k/1")); string(v) != "new" {
		t.Fatalf("commit not applied: %q", v)
	}
	if _, err := parent.Get([]byte("k/2")); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete not applied")
	}
	if overlay.Dirty() {
		t.Fatalf("overlay should be clean after commit")
	}
}
