package database

import (
	"context"
	"testing"
	"time"

	"cinetrail/models"
)

func TestFavoriteAdd_New(t *testing.T) {
	repo := setupTestDB(t).Favorites
	ctx := context.Background()

	stored, created, err := repo.Add(ctx, models.Favorite{AccountID: "acct-1", MovieID: "603", Title: "The Matrix"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if !created {
		t.Error("expected created to be true")
	}
	if stored.ID == "" || stored.CreatedAt.IsZero() {
		t.Errorf("expected id and timestamp to be filled, got %+v", stored)
	}

	got, err := repo.Get(ctx, "acct-1", "603")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got == nil || got.Title != "The Matrix" || got.ID != stored.ID {
		t.Fatalf("unexpected favorite %+v", got)
	}
}

func TestFavoriteAdd_DuplicateReturnsExisting(t *testing.T) {
	repo := setupTestDB(t).Favorites
	ctx := context.Background()

	first, _, err := repo.Add(ctx, models.Favorite{AccountID: "acct-1", MovieID: "603", Title: "The Matrix"})
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	second, created, err := repo.Add(ctx, models.Favorite{AccountID: "acct-1", MovieID: "603", Title: "Changed"})
	if err != nil {
		t.Fatalf("second Add failed: %v", err)
	}
	if created {
		t.Error("expected duplicate add to report created=false")
	}
	if second.ID != first.ID || second.Title != "The Matrix" {
		t.Errorf("expected stored row unchanged, got %+v", second)
	}

	list, _ := repo.List(ctx, "acct-1")
	if len(list) != 1 {
		t.Fatalf("expected 1 favorite, got %d", len(list))
	}
}

func TestFavoriteGet_NotFound(t *testing.T) {
	repo := setupTestDB(t).Favorites
	got, err := repo.Get(context.Background(), "acct-1", "1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestFavoriteRemove(t *testing.T) {
	repo := setupTestDB(t).Favorites
	ctx := context.Background()
	repo.Add(ctx, models.Favorite{AccountID: "acct-1", MovieID: "603"})

	removed, err := repo.Remove(ctx, "acct-1", "603")
	if err != nil || !removed {
		t.Fatalf("expected removal, got removed=%v err=%v", removed, err)
	}
	removed, err = repo.Remove(ctx, "acct-1", "603")
	if err != nil || removed {
		t.Fatalf("expected second removal to be a no-op, got removed=%v err=%v", removed, err)
	}
}

func TestFavoriteList_NewestFirstPerAccount(t *testing.T) {
	repo := setupTestDB(t).Favorites
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	repo.Add(ctx, models.Favorite{AccountID: "acct-1", MovieID: "1", CreatedAt: base})
	repo.Add(ctx, models.Favorite{AccountID: "acct-1", MovieID: "2", CreatedAt: base.Add(2 * time.Hour)})
	repo.Add(ctx, models.Favorite{AccountID: "acct-1", MovieID: "3", CreatedAt: base.Add(time.Hour)})
	repo.Add(ctx, models.Favorite{AccountID: "acct-2", MovieID: "4", CreatedAt: base})

	list, err := repo.List(ctx, "acct-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 favorites, got %d", len(list))
	}
	want := []string{"2", "3", "1"}
	for i, id := range want {
		if list[i].MovieID != id {
			t.Fatalf("position %d: expected movie %s, got %s", i, id, list[i].MovieID)
		}
	}

	empty, err := repo.List(ctx, "nobody")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil list, got %#v", empty)
	}
}

func TestFavoriteDeleteForAccount(t *testing.T) {
	repo := setupTestDB(t).Favorites
	ctx := context.Background()
	repo.Add(ctx, models.Favorite{AccountID: "acct-1", MovieID: "1"})
	repo.Add(ctx, models.Favorite{AccountID: "acct-1", MovieID: "2"})
	repo.Add(ctx, models.Favorite{AccountID: "acct-2", MovieID: "1"})

	n, err := repo.DeleteForAccount(ctx, "acct-1")
	if err != nil {
		t.Fatalf("DeleteForAccount failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deleted, got %d", n)
	}
	if list, _ := repo.List(ctx, "acct-2"); len(list) != 1 {
		t.Fatalf("expected other account untouched, got %d", len(list))
	}
}
