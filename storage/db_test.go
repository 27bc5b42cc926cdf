package storage

import (
	"errors"
	"testing"
)

func TestMemDB(t *testing.T) {
	db := NewMemDB()
	defer db.Close()

	key := []byte("launch/params")
	if _, err := db.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing key err = %v, want ErrNotFound", err)
	}
	has, err := db.Has(key)
	if err != nil || has {
		t.Fatalf("missing key has=%v err=%v", has, err)
	}

	value := []byte{1, 2, 3}
	if err := db.Put(key, value); err != nil {
		t.Fatalf("put: %v", err)
	}
	// The store must not alias caller buffers.
	value[0] = 9
	got, err := db.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got[0] != 1 {
		t.Fatalf("stored value aliased caller buffer: %v", got)
	}
	got[1] = 9
	again, err := db.Get(key)
	if err != nil || again[1] != 2 {
		t.Fatalf("returned value aliased store: %v err=%v", again, err)
	}

	if err := db.Delete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted key err = %v, want ErrNotFound", err)
	}
	// Deleting a missing key is not an error.
	if err := db.Delete(key); err != nil {
		t.Fatalf("repeat delete: %v", err)
	}
}

func TestLevelDBRoundTrip(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	key := []byte("launch/proposal/xyz")
	if _, err := db.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing key err = %v, want ErrNotFound", err)
	}
	if err := db.Put(key, []byte("payload")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := db.Get(key)
	if err != nil || string(got) != "payload" {
		t.Fatalf("get = %q err=%v", got, err)
	}
	has, err := db.Has(key)
	if err != nil || !has {
		t.Fatalf("has=%v err=%v", has, err)
	}
	if err := db.Delete(key); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := db.Get(key); !errors.Is(err, ErrNotFound) {
		t.Fatalf("deleted key err = %v, want ErrNotFound", err)
	}
}
