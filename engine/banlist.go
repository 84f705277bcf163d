package engine

import (
	"context"
	"log/slog"
	"sort"
)

// BanStore persists the full ban set. Implementations are simple get/set
// wrappers over an external key-value store.
type BanStore interface {
	Load(ctx context.Context) ([]string, error)
	Save(ctx context.Context, users []string) error
}

// BanRegistry is the mutable set of banned (normalized) usernames. It is
// owned by the engine dispatch loop and must not be shared across
// goroutines. The in-memory set is authoritative; a failed store write only
// marks the registry dirty so the next mutation rewrites the full set.
type BanRegistry struct {
	store BanStore
	users map[string]struct{}
	dirty bool
}

func NewBanRegistry(store BanStore) *BanRegistry {
	return &BanRegistry{store: store, users: make(map[string]struct{})}
}

// Load replaces the in-memory set with the persisted one. Call once at
// startup before serving mutations.
func (b *BanRegistry) Load(ctx context.Context) error {
	users, err := b.store.Load(ctx)
	if err != nil {
		return err
	}
	b.users = make(map[string]struct{}, len(users))
	for _, u := range users {
		if n := NormalizeUser(u); n != "" {
			b.users[n] = struct{}{}
		}
	}
	return nil
}

// Ban adds a user to the set and persists it. Returns false when the user
// was already banned (idempotent; no notification needed).
func (b *BanRegistry) Ban(ctx context.Context, user string) bool {
	u := NormalizeUser(user)
	if u == "" {
		return false
	}
	_, exists := b.users[u]
	if exists && !b.dirty {
		return false
	}
	b.users[u] = struct{}{}
	b.persist(ctx)
	return !exists
}

// Unban removes a user from the set and persists it. Unban of a non-member
// is a no-op.
func (b *BanRegistry) Unban(ctx context.Context, user string) bool {
	u := NormalizeUser(user)
	if u == "" {
		return false
	}
	_, exists := b.users[u]
	if !exists {
		if b.dirty {
			b.persist(ctx)
		}
		return false
	}
	delete(b.users, u)
	b.persist(ctx)
	return true
}

// IsBanned reports membership for the given (unnormalized) user. Empty input
// is never banned.
func (b *BanRegistry) IsBanned(user string) bool {
	u := NormalizeUser(user)
	if u == "" {
		return false
	}
	_, ok := b.users[u]
	return ok
}

// List returns the banned usernames sorted for stable output.
func (b *BanRegistry) List() []string {
	out := make([]string, 0, len(b.users))
	for u := range b.users {
		out = append(out, u)
	}
	sort.Strings(out)
	return out
}

func (b *BanRegistry) persist(ctx context.Context) {
	if err := b.store.Save(ctx, b.List()); err != nil {
		b.dirty = true
		slog.Error("ban list persist failed; will retry on next mutation", slog.Any("err", err))
		return
	}
	b.dirty = false
}
