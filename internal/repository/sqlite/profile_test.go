package sqlite

import (
	"context"
	"testing"

	"github.com/sakif/tsubuyaki/internal/model"
)

// TESTING WITH IN-MEMORY SQLITE:
// ":memory:" creates a fresh database that exists only during the test.
// Each test gets its own, so there is no cleanup between cases.
//
// newTestDB is a test helper. t.Helper() makes failures point at the
// caller's line instead of this function.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestGetProfile_Missing(t *testing.T) {
	db := newTestDB(t)

	got, err := db.GetProfile(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if got != nil {
		t.Errorf("GetProfile() = %+v, want nil for a missing profile", got)
	}
}

func TestUpsertProfile_Insert(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	p := &model.Profile{ID: "u1", Name: "Hana", Handle: "hana", Avatar: "🌸"}
	if err := db.UpsertProfile(ctx, p); err != nil {
		t.Fatalf("UpsertProfile() error = %v", err)
	}

	got, err := db.GetProfile(ctx, "u1")
	if err != nil {
		t.Fatalf("GetProfile() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetProfile() = nil after upsert")
	}
	if got.Name != "Hana" || got.Handle != "hana" || got.Avatar != "🌸" {
		t.Errorf("GetProfile() = %+v, want Hana/hana/🌸", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not set")
	}
}

// Upserting the same ID twice must leave one row with the latest values.
func TestUpsertProfile_Idempotent(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	first := &model.Profile{ID: "u1", Name: "Hana", Handle: "hana", Avatar: "🌸"}
	if err := db.UpsertProfile(ctx, first); err != nil {
		t.Fatalf("first UpsertProfile() error = %v", err)
	}
	second := &model.Profile{ID: "u1", Name: "Hanako", Handle: "hanako", Avatar: "🌷"}
	if err := db.UpsertProfile(ctx, second); err != nil {
		t.Fatalf("second UpsertProfile() error = %v", err)
	}

	var count int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM profiles WHERE id = ?`, "u1").Scan(&count); err != nil {
		t.Fatalf("counting profiles: %v", err)
	}
	if count != 1 {
		t.Errorf("profile rows = %d, want 1", count)
	}

	got, _ := db.GetProfile(ctx, "u1")
	if got.Name != "Hanako" || got.Handle != "hanako" || got.Avatar != "🌷" {
		t.Errorf("GetProfile() = %+v, want the second write", got)
	}
}

func TestUpsertProfile_KeepsBio(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if err := db.UpsertProfile(ctx, &model.Profile{ID: "u1", Name: "Hana"}); err != nil {
		t.Fatalf("UpsertProfile() error = %v", err)
	}
	// Bio is edited elsewhere; simulate it directly.
	if _, err := db.conn.Exec(`UPDATE profiles SET bio = ? WHERE id = ?`, "hello", "u1"); err != nil {
		t.Fatalf("setting bio: %v", err)
	}
	if err := db.UpsertProfile(ctx, &model.Profile{ID: "u1", Name: "Hana2"}); err != nil {
		t.Fatalf("UpsertProfile() error = %v", err)
	}

	got, _ := db.GetProfile(ctx, "u1")
	if got.Bio != "hello" {
		t.Errorf("Bio = %q, want %q", got.Bio, "hello")
	}
	if got.Name != "Hana2" {
		t.Errorf("Name = %q, want %q", got.Name, "Hana2")
	}
}
