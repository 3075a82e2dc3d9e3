package badgerstore

import (
	"context"
	"errors"
	"testing"

	"github.com/yanizio/libretv-sites/internal/site"
	"github.com/yanizio/libretv-sites/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open("")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	rec := site.Record{ID: "qiqi", API: "https://x.test/api", Name: "Test Site", CreatedAt: "c", UpdatedAt: "c"}
	if err := s.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(ctx, rec); !errors.Is(err, store.ErrConflict) {
		t.Fatalf("duplicate Insert err = %v, want ErrConflict", err)
	}

	if err := s.UpdateFields(ctx, "qiqi", site.Fields{API: "https://y.test", Name: "B", Adult: true, UpdatedAt: "u"}); err != nil {
		t.Fatalf("UpdateFields: %v", err)
	}
	got, err := s.FindOne(ctx, "qiqi")
	if err != nil {
		t.Fatalf("FindOne: %v", err)
	}
	want := site.Record{ID: "qiqi", API: "https://y.test", Name: "B", Adult: true, CreatedAt: "c", UpdatedAt: "u"}
	if *got != want {
		t.Fatalf("got %+v, want %+v", *got, want)
	}

	if err := s.Delete(ctx, "qiqi"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "qiqi"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("second Delete err = %v, want ErrNotFound", err)
	}
	if err := s.UpdateFields(ctx, "qiqi", site.Fields{}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("UpdateFields missing err = %v, want ErrNotFound", err)
	}
}

func TestFindAllCountsAfterDeletes(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	ids := []string{"a", "b", "c", "d", "e"}
	for _, id := range ids {
		if err := s.Insert(ctx, site.Record{ID: id, API: "https://x.test", Name: id}); err != nil {
			t.Fatalf("Insert %s: %v", id, err)
		}
	}
	for _, id := range ids[:2] {
		if err := s.Delete(ctx, id); err != nil {
			t.Fatalf("Delete %s: %v", id, err)
		}
	}
	all, err := s.FindAll(ctx)
	if err != nil {
		t.Fatalf("FindAll: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(FindAll) = %d, want 3", len(all))
	}
}
