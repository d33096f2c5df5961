package testsupport

import (
	"context"
	"testing"

	"github.com/RyanBlaney/trackiq/config"
	"github.com/RyanBlaney/trackiq/features"
	"github.com/RyanBlaney/trackiq/storage"
)

// MustOpenStore opens a storage.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *storage.Store {
	t.Helper()

	store, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustInsert stores vec under filename.
func MustInsert(t testing.TB, store *storage.Store, filename string, vec features.Vector) *storage.Record {
	t.Helper()

	rec, err := store.Insert(context.Background(), filename, vec)
	if err != nil {
		t.Fatalf("store.Insert: %v", err)
	}
	return rec
}

// SampleVector returns a vector whose fields are base, base+1, ... in key order.
func SampleVector(base float64) features.Vector {
	values := make([]float64, len(features.Names()))
	for i := range values {
		values[i] = base + float64(i)
	}
	vec, _ := features.FromValues(values)
	return vec
}
