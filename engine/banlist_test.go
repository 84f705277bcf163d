package engine

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/onnwee/linkline/testutil"
)

func TestBanRegistryBanUnban(t *testing.T) {
	ctx := context.Background()
	store := &testutil.MemStore{}
	reg := NewBanRegistry(store)

	if !reg.Ban(ctx, "@SomeUser") {
		t.Fatal("first ban must report a change")
	}
	if reg.Ban(ctx, "someuser") {
		t.Error("repeat ban of the same normalized user must be a no-op")
	}
	if !reg.IsBanned("SOMEUSER") {
		t.Error("membership check must normalize its input")
	}
	if !reg.IsBanned("@someuser") {
		t.Error("membership check must strip @")
	}

	if got := store.Saved(); !reflect.DeepEqual(got, []string{"someuser"}) {
		t.Errorf("persisted = %v, want [someuser]", got)
	}

	if !reg.Unban(ctx, "SomeUser") {
		t.Fatal("unban of a member must report a change")
	}
	if reg.Unban(ctx, "someuser") {
		t.Error("unban of a non-member must be a no-op")
	}
	if reg.IsBanned("someuser") {
		t.Error("user must no longer be banned")
	}
	if got := store.Saved(); len(got) != 0 {
		t.Errorf("persisted = %v, want empty", got)
	}
}

func TestBanRegistryEmptyInput(t *testing.T) {
	ctx := context.Background()
	store := &testutil.MemStore{}
	reg := NewBanRegistry(store)

	if reg.Ban(ctx, "") || reg.Ban(ctx, "@") || reg.Ban(ctx, "  ") {
		t.Error("empty or @-only input must never ban")
	}
	if store.SaveCount() != 0 {
		t.Errorf("saves = %d, want 0 for rejected input", store.SaveCount())
	}
	if reg.IsBanned("") {
		t.Error("empty input is never banned")
	}
}

func TestBanRegistryListSorted(t *testing.T) {
	ctx := context.Background()
	reg := NewBanRegistry(&testutil.MemStore{})
	reg.Ban(ctx, "zeta")
	reg.Ban(ctx, "alpha")
	reg.Ban(ctx, "mid")

	want := []string{"alpha", "mid", "zeta"}
	if got := reg.List(); !reflect.DeepEqual(got, want) {
		t.Errorf("List() = %v, want %v", got, want)
	}
}

func TestBanRegistryLoad(t *testing.T) {
	ctx := context.Background()
	store := &testutil.MemStore{Users: []string{"@Mixed", "lower", ""}}
	reg := NewBanRegistry(store)
	if err := reg.Load(ctx); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reg.IsBanned("mixed") || !reg.IsBanned("lower") {
		t.Error("loaded entries must be normalized and banned")
	}
	if got := len(reg.List()); got != 2 {
		t.Errorf("len = %d, want 2 (empty entry dropped)", got)
	}

	store.LoadErr = errors.New("db down")
	if err := reg.Load(ctx); err == nil {
		t.Error("Load must surface store errors")
	}
}

func TestBanRegistryPersistRetry(t *testing.T) {
	ctx := context.Background()
	store := &testutil.MemStore{SaveErr: errors.New("db down")}
	reg := NewBanRegistry(store)

	if !reg.Ban(ctx, "someuser") {
		t.Fatal("ban must take effect in memory even when persistence fails")
	}
	if !reg.IsBanned("someuser") {
		t.Error("in-memory set is authoritative despite the failed write")
	}

	// Next mutation retries the full rewrite.
	store.SaveErr = nil
	reg.Ban(ctx, "other")
	want := []string{"other", "someuser"}
	if got := store.Saved(); !reflect.DeepEqual(got, want) {
		t.Errorf("persisted after retry = %v, want %v", got, want)
	}
}

func TestBanRegistryDirtyRetryOnRedundantMutation(t *testing.T) {
	ctx := context.Background()
	store := &testutil.MemStore{SaveErr: errors.New("db down")}
	reg := NewBanRegistry(store)
	reg.Ban(ctx, "someuser")

	store.SaveErr = nil
	// A redundant ban of an existing member still flushes the dirty set.
	if reg.Ban(ctx, "someuser") {
		t.Error("redundant ban must not report a change")
	}
	if got := store.Saved(); !reflect.DeepEqual(got, []string{"someuser"}) {
		t.Errorf("persisted = %v, want [someuser]", got)
	}
}
