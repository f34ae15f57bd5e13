package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSlots(t *testing.T) {
	openers := map[string]func(t *testing.T) Slot{
		"memory": func(t *testing.T) Slot { return NewMemorySlot() },
		"bolt": func(t *testing.T) Slot {
			s, err := NewBoltSlot(filepath.Join(t.TempDir(), "data", "finx.db"))
			if err != nil {
				t.Fatalf("open bolt slot: %v", err)
			}
			return s
		},
		"sqlite": func(t *testing.T) Slot {
			s, err := NewSQLiteSlot(filepath.Join(t.TempDir(), "data", "finx.sqlite"))
			if err != nil {
				t.Fatalf("open sqlite slot: %v", err)
			}
			return s
		},
	}

	for name, open := range openers {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := open(t)
			defer s.Close()

			if _, found, err := s.Get(ctx, DefaultKey); err != nil || found {
				t.Fatalf("expected missing key, found=%v err=%v", found, err)
			}

			if err := s.Put(ctx, DefaultKey, []byte(`[1]`)); err != nil {
				t.Fatalf("put: %v", err)
			}
			if err := s.Put(ctx, DefaultKey, []byte(`[]`)); err != nil {
				t.Fatalf("overwrite: %v", err)
			}
			got, found, err := s.Get(ctx, DefaultKey)
			if err != nil || !found || string(got) != "[]" {
				t.Fatalf("expected overwritten payload, got %q found=%v err=%v", got, found, err)
			}

			if _, found, _ := s.Get(ctx, "other"); found {
				t.Fatal("keys must be independent")
			}
		})
	}
}

func TestBoltSlotPersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "finx.db")

	s, err := NewBoltSlot(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	a := NewAdapter(s, DefaultKey, quietLogger())
	if err := a.Save(ctx, sampleLedger()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = NewBoltSlot(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()
	if got := NewAdapter(s, DefaultKey, quietLogger()).Load(ctx); len(got) != len(sampleLedger()) {
		t.Fatalf("expected %d transactions after reopen, got %d", len(sampleLedger()), len(got))
	}
}

func TestSQLiteSlotMigrationsAreIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "finx.sqlite")
	for i := 0; i < 2; i++ {
		s, err := NewSQLiteSlot(path)
		if err != nil {
			t.Fatalf("open #%d: %v", i, err)
		}
		if err := s.Close(); err != nil {
			t.Fatalf("close #%d: %v", i, err)
		}
	}
}
