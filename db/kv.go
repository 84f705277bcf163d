package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// GetKV returns the value stored under key, or empty string if absent.
func GetKV(ctx context.Context, dbx *sql.DB, key string) (string, error) {
	var v string
	err := dbx.QueryRowContext(ctx, `SELECT value FROM kv WHERE key=$1`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

// SetKV upserts a key-value pair.
func SetKV(ctx context.Context, dbx *sql.DB, key, value string) error {
	_, err := dbx.ExecContext(ctx,
		`INSERT INTO kv (key,value,updated_at) VALUES ($1,$2,NOW())
		 ON CONFLICT(key) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`,
		key, value)
	return err
}

// banListKey is where the full ban set lives, as a JSON array of normalized
// usernames, rewritten in full on every mutation.
const banListKey = "banlist"

// KVBanStore persists the ban list in the kv table. It implements
// engine.BanStore.
type KVBanStore struct {
	DB *sql.DB
}

func (s *KVBanStore) Load(ctx context.Context) ([]string, error) {
	raw, err := GetKV(ctx, s.DB, banListKey)
	if err != nil {
		return nil, fmt.Errorf("load ban list: %w", err)
	}
	return DecodeBanList(raw)
}

func (s *KVBanStore) Save(ctx context.Context, users []string) error {
	raw, err := EncodeBanList(users)
	if err != nil {
		return fmt.Errorf("encode ban list: %w", err)
	}
	if err := SetKV(ctx, s.DB, banListKey, raw); err != nil {
		return fmt.Errorf("save ban list: %w", err)
	}
	return nil
}

// EncodeBanList renders the ban set as its stored JSON form.
func EncodeBanList(users []string) (string, error) {
	if users == nil {
		users = []string{}
	}
	b, err := json.Marshal(users)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// DecodeBanList parses the stored JSON form; empty input yields an empty set.
func DecodeBanList(raw string) ([]string, error) {
	if raw == "" {
		return nil, nil
	}
	var users []string
	if err := json.Unmarshal([]byte(raw), &users); err != nil {
		return nil, fmt.Errorf("decode ban list: %w", err)
	}
	return users, nil
}
