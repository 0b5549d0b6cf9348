package registry

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bgdnvk/wpdeploy/internal/kvstore"
	"github.com/bgdnvk/wpdeploy/internal/session"
)

func named(name, branch string) session.Session {
	s := session.Default()
	s.TargetName = name
	s.Branch = branch
	return s
}

func TestSaveReplacesSameName(t *testing.T) {
	ctx := context.Background()
	m := New(kvstore.NewMemory(), "", 0)

	for _, s := range []session.Session{named("A", "v1"), named("B", "v1"), named("A", "v2")} {
		if _, err := m.Save(ctx, s); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	list, err := m.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(list))
	}
	if list[0].TargetName != "A" || list[0].Branch != "v2" {
		t.Errorf("expected latest A first, got %s@%s", list[0].TargetName, list[0].Branch)
	}
	if list[1].TargetName != "B" {
		t.Errorf("expected B second, got %s", list[1].TargetName)
	}
}

func TestSaveCapsAtLimit(t *testing.T) {
	ctx := context.Background()
	m := New(kvstore.NewMemory(), "", DefaultLimit)

	for i := 0; i < 14; i++ {
		if _, err := m.Save(ctx, named(fmt.Sprintf("site-%d", i), "main")); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}
	list, _ := m.List(ctx)
	if len(list) != DefaultLimit {
		t.Fatalf("expected %d entries, got %d", DefaultLimit, len(list))
	}
	if list[0].TargetName != "site-13" || list[len(list)-1].TargetName != "site-4" {
		t.Errorf("unexpected window: first %s last %s", list[0].TargetName, list[len(list)-1].TargetName)
	}
}

func TestStoredAsPlainJSON(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	m := New(kv, "", 0)
	if _, err := m.Save(ctx, named("shop", "main")); err != nil {
		t.Fatalf("Save: %v", err)
	}
	raw, ok, _ := kv.Get(ctx, DefaultKey)
	if !ok || raw[0] != '[' {
		t.Errorf("expected a JSON array in the registry slot, got %q", raw)
	}
}

func TestCorruptListIsReplaced(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	_ = kv.Set(ctx, DefaultKey, "{not json")
	m := New(kv, "", 0)

	if _, err := m.List(ctx); !errors.Is(err, ErrCorrupt) {
		t.Errorf("expected ErrCorrupt, got %v", err)
	}
	list, err := m.Save(ctx, named("fresh", "main"))
	if err != nil {
		t.Fatalf("Save over corrupt list: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected fresh list of 1, got %d", len(list))
	}
}

func TestFindAndClear(t *testing.T) {
	ctx := context.Background()
	m := New(kvstore.NewMemory(), "", 0)
	_, _ = m.Save(ctx, named("blog", "develop"))

	got, err := m.Find(ctx, "blog")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if got.Branch != "develop" {
		t.Errorf("expected branch develop, got %s", got.Branch)
	}
	if _, err := m.Find(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	if err := m.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	list, _ := m.List(ctx)
	if len(list) != 0 {
		t.Errorf("expected empty registry, got %d entries", len(list))
	}
}

func TestOlderEntriesPickUpDefaults(t *testing.T) {
	ctx := context.Background()
	kv := kvstore.NewMemory()
	_ = kv.Set(ctx, DefaultKey, `[{"targetName":"legacy","gitUrl":"https://github.com/acme/legacy"}]`)

	list, err := New(kv, "", 0).List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(list))
	}
	if list[0].DeploymentMode != session.ModeSync || list[0].Branch != "main" {
		t.Errorf("expected defaults for missing fields, got mode %q branch %q", list[0].DeploymentMode, list[0].Branch)
	}
}
