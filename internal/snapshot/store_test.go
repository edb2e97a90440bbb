package snapshot

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/mesh-intelligence/rim/internal/paths"
	"github.com/mesh-intelligence/rim/pkg/record"
	"github.com/mesh-intelligence/rim/pkg/service"
	"github.com/mesh-intelligence/rim/pkg/types"
)

var userKind = &record.Kind{Name: "User"}

func attached(t *testing.T) *Store {
	t.Helper()
	s := NewStore(nil)
	if err := s.Attach(t.TempDir()); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	t.Cleanup(func() { s.Detach() })
	return s
}

func TestStore_Attach(t *testing.T) {
	dir := t.TempDir()
	s := NewStore(nil)
	if err := s.Attach(dir); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	defer s.Detach()

	if _, err := os.Stat(paths.SnapshotFile(dir)); err != nil {
		t.Errorf("snapshot.db not created: %v", err)
	}
	if s.Path() != paths.SnapshotFile(dir) {
		t.Errorf("Path = %q", s.Path())
	}
	if err := s.Attach(dir); !errors.Is(err, ErrAlreadyAttached) {
		t.Errorf("expected ErrAlreadyAttached, got %v", err)
	}
}

func TestStore_Detach(t *testing.T) {
	s := NewStore(nil)
	if err := s.Attach(t.TempDir()); err != nil {
		t.Fatalf("Attach failed: %v", err)
	}
	if err := s.Detach(); err != nil {
		t.Fatalf("Detach failed: %v", err)
	}
	if err := s.Detach(); err != nil {
		t.Errorf("second Detach should not error, got %v", err)
	}

	ctx := context.Background()
	if _, err := s.Save(ctx, "User", service.NewState()); !errors.Is(err, ErrDetached) {
		t.Errorf("Save: expected ErrDetached, got %v", err)
	}
	if _, err := s.Load(ctx, "User", userKind); !errors.Is(err, ErrDetached) {
		t.Errorf("Load: expected ErrDetached, got %v", err)
	}
	if _, err := s.Collections(ctx); !errors.Is(err, ErrDetached) {
		t.Errorf("Collections: expected ErrDetached, got %v", err)
	}
	if err := s.Clear(ctx, "User"); !errors.Is(err, ErrDetached) {
		t.Errorf("Clear: expected ErrDetached, got %v", err)
	}
}

func TestStore_SaveAndLoad(t *testing.T) {
	s := attached(t)
	ctx := context.Background()

	st := service.NewState().
		Set(userKind.New(types.Document{"ID": "2", "name": "Bo", "tags": []any{"a"}})).
		Set(userKind.New(types.Document{"ID": "1", "name": "Ann"}).SetDirty(true).SetFetching(true)).
		Set(userKind.NewDraft(types.Document{"name": "Draft"}))

	info, err := s.Save(ctx, "User", st)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if info.Records != 3 || info.SnapshotID == "" {
		t.Errorf("unexpected info %+v", info)
	}

	got, err := s.Load(ctx, "User", userKind)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 records, got %d", len(got))
	}
	if got[0].Identity() != "1" || got[1].Identity() != "2" || got[2].Identity() != record.DefaultNewID {
		t.Errorf("unexpected order: %v %v %v", got[0], got[1], got[2])
	}
	if !got[0].IsDirty() || got[0].IsFetching() {
		t.Errorf("record 1 flags: dirty=%v fetching=%v", got[0].IsDirty(), got[0].IsFetching())
	}
	if !got[2].IsNew() {
		t.Error("draft should stay new")
	}
	if tags, ok := got[1].Get("tags").([]any); !ok || len(tags) != 1 || tags[0] != "a" {
		t.Errorf("tags = %#v", got[1].Get("tags"))
	}
}

func TestStore_SaveReplacesPreviousSnapshot(t *testing.T) {
	s := attached(t)
	ctx := context.Background()

	first := service.NewState().Set(userKind.New(types.Document{"ID": "1"})).Set(userKind.New(types.Document{"ID": "2"}))
	if _, err := s.Save(ctx, "User", first); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	second := service.NewState().Set(userKind.New(types.Document{"ID": "3"}))
	if _, err := s.Save(ctx, "User", second); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Load(ctx, "User", userKind)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 1 || got[0].Identity() != "3" {
		t.Errorf("expected only record 3, got %v", got)
	}

	infos, err := s.Collections(ctx)
	if err != nil {
		t.Fatalf("Collections failed: %v", err)
	}
	if len(infos) != 1 || infos[0].Collection != "User" || infos[0].Records != 1 {
		t.Errorf("unexpected collections %+v", infos)
	}
}

func TestStore_Restore(t *testing.T) {
	s := attached(t)
	ctx := context.Background()

	src := service.New(userKind)
	src.SetByID(userKind.New(types.Document{"ID": "1", "name": "Ann"}))
	if _, err := s.Save(ctx, src.Name(), src.State()); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	dst := service.New(userKind)
	dst.SetByID(userKind.New(types.Document{"ID": "stale"}))
	n, err := s.Restore(ctx, dst)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if n != 1 {
		t.Errorf("restored %d records", n)
	}
	if _, ok := dst.GetByID("stale"); ok {
		t.Error("stale record survived restore")
	}
	r, ok := dst.GetByID("1")
	if !ok || r.Get("name") != "Ann" {
		t.Errorf("record 1 = %v", r)
	}
}

func TestStore_Clear(t *testing.T) {
	s := attached(t)
	ctx := context.Background()

	st := service.NewState().Set(userKind.New(types.Document{"ID": "1"}))
	for _, c := range []string{"User", "Team"} {
		if _, err := s.Save(ctx, c, st); err != nil {
			t.Fatalf("Save %s failed: %v", c, err)
		}
	}
	if err := s.Clear(ctx, "User"); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}

	got, err := s.Load(ctx, "User", userKind)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no User records, got %d", len(got))
	}
	infos, _ := s.Collections(ctx)
	if len(infos) != 1 || infos[0].Collection != "Team" {
		t.Errorf("unexpected collections %+v", infos)
	}
}
