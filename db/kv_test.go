package db_test

import (
	"context"
	"reflect"
	"testing"

	"github.com/onnwee/linkline/db"
	"github.com/onnwee/linkline/testutil"
)

func TestEncodeDecodeBanList(t *testing.T) {
	tests := []struct {
		name  string
		users []string
		want  string
	}{
		{name: "nil encodes as empty array", users: nil, want: "[]"},
		{name: "empty", users: []string{}, want: "[]"},
		{name: "single", users: []string{"spammer"}, want: `["spammer"]`},
		{name: "multiple", users: []string{"a", "b"}, want: `["a","b"]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := db.EncodeBanList(tt.users)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if raw != tt.want {
				t.Errorf("encoded = %q, want %q", raw, tt.want)
			}
			back, err := db.DecodeBanList(raw)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			want := tt.users
			if len(want) == 0 {
				// nil and empty both round-trip to a zero-length set
				if len(back) != 0 {
					t.Errorf("decoded = %v, want empty", back)
				}
				return
			}
			if !reflect.DeepEqual(back, want) {
				t.Errorf("round trip = %v, want %v", back, want)
			}
		})
	}
}

func TestDecodeBanListEmptyAndInvalid(t *testing.T) {
	got, err := db.DecodeBanList("")
	if err != nil || got != nil {
		t.Errorf("decode empty = %v, %v; want nil, nil", got, err)
	}
	if _, err := db.DecodeBanList("{not json"); err == nil {
		t.Error("invalid JSON must be an error")
	}
}

func TestKVRoundTrip(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()

	if v, err := db.GetKV(ctx, database, "test-missing"); err != nil || v != "" {
		t.Errorf("missing key = %q, %v; want empty, nil", v, err)
	}
	if err := db.SetKV(ctx, database, "test-key", "one"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := db.SetKV(ctx, database, "test-key", "two"); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	v, err := db.GetKV(ctx, database, "test-key")
	if err != nil || v != "two" {
		t.Errorf("get = %q, %v; want two, nil", v, err)
	}
}

func TestKVBanStore(t *testing.T) {
	database := testutil.SetupTestDB(t)
	ctx := context.Background()
	store := &db.KVBanStore{DB: database}

	if err := store.Save(ctx, []string{"spammer", "other"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if !reflect.DeepEqual(got, []string{"spammer", "other"}) {
		t.Errorf("loaded = %v", got)
	}

	if err := store.Save(ctx, nil); err != nil {
		t.Fatalf("save nil: %v", err)
	}
	got, err = store.Load(ctx)
	if err != nil || len(got) != 0 {
		t.Errorf("loaded after clear = %v, %v; want empty", got, err)
	}
}
