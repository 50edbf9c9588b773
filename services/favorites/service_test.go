package favorites

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"cinetrail/internal/database"
	"cinetrail/models"
)

var matrix = models.MovieRef{ID: "603", Title: "The Matrix", PosterPath: "/matrix.jpg"}

func newMockService(t *testing.T) (*Service, *MockStore) {
	t.Helper()
	ctrl := gomock.NewController(t)
	store := NewMockStore(ctrl)
	return NewService(store), store
}

func newSQLiteService(t *testing.T) *Service {
	t.Helper()
	db, err := database.NewDB(database.Config{DatabasePath: filepath.Join(t.TempDir(), "favorites.db")})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewService(NewSQLiteStore(db.Favorites))
}

func TestToggle(t *testing.T) {
	ctx := context.Background()
	errBoom := errors.New("boom")

	tests := []struct {
		name     string
		believed bool
		setup    func(*MockStore)
		want     bool
		wantErr  error
	}{
		{
			name:     "adds when both agree it is not a favorite",
			believed: false,
			setup: func(m *MockStore) {
				m.EXPECT().IsFavorite(gomock.Any(), "acct-1", "603").Return(false, nil)
				m.EXPECT().Add(gomock.Any(), gomock.Any()).DoAndReturn(
					func(_ context.Context, fav models.Favorite) (models.Favorite, error) {
						assert.Equal(t, "acct-1", fav.AccountID)
						assert.Equal(t, "603", fav.MovieID)
						assert.Equal(t, "The Matrix", fav.Title)
						assert.Equal(t, "https://image.tmdb.org/t/p/w500/matrix.jpg", fav.PosterURL)
						return fav, nil
					})
			},
			want: true,
		},
		{
			name:     "removes when both agree it is a favorite",
			believed: true,
			setup: func(m *MockStore) {
				m.EXPECT().IsFavorite(gomock.Any(), "acct-1", "603").Return(true, nil)
				m.EXPECT().Remove(gomock.Any(), "acct-1", "603").Return(true, nil)
			},
			want: false,
		},
		{
			name:     "stored favorite wins over stale client",
			believed: false,
			setup: func(m *MockStore) {
				m.EXPECT().IsFavorite(gomock.Any(), "acct-1", "603").Return(true, nil)
			},
			want: true,
		},
		{
			name:     "stored absence wins over stale client",
			believed: true,
			setup: func(m *MockStore) {
				m.EXPECT().IsFavorite(gomock.Any(), "acct-1", "603").Return(false, nil)
			},
			want: false,
		},
		{
			name:     "read failure keeps believed state",
			believed: true,
			setup: func(m *MockStore) {
				m.EXPECT().IsFavorite(gomock.Any(), "acct-1", "603").Return(false, errBoom)
			},
			want:    true,
			wantErr: errBoom,
		},
		{
			name:     "write failure keeps believed state",
			believed: false,
			setup: func(m *MockStore) {
				m.EXPECT().IsFavorite(gomock.Any(), "acct-1", "603").Return(false, nil)
				m.EXPECT().Add(gomock.Any(), gomock.Any()).Return(models.Favorite{}, errBoom)
			},
			want:    false,
			wantErr: errBoom,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc, store := newMockService(t)
			tc.setup(store)

			got, err := svc.Toggle(ctx, "acct-1", matrix, tc.believed)
			if tc.wantErr != nil {
				assert.ErrorIs(t, err, tc.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestToggle_RequiresAccountAndMovie(t *testing.T) {
	svc, _ := newMockService(t)
	ctx := context.Background()

	got, err := svc.Toggle(ctx, "", matrix, true)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.True(t, got)

	got, err = svc.Toggle(ctx, "acct-1", models.MovieRef{}, false)
	assert.ErrorIs(t, err, ErrMovieRequired)
	assert.False(t, got)
}

func TestAnonymousReadsAndWrites(t *testing.T) {
	svc, _ := newMockService(t)
	ctx := context.Background()

	list, err := svc.List(ctx, "")
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	ok, err := svc.IsFavorite(ctx, "", "603")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Add(ctx, "", matrix)
	assert.ErrorIs(t, err, ErrNotAuthenticated)

	_, err = svc.Remove(ctx, "  ", "603")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestListWrapsStoreErrors(t *testing.T) {
	svc, store := newMockService(t)
	errBoom := errors.New("disk on fire")
	store.EXPECT().List(gomock.Any(), "acct-1").Return(nil, errBoom)

	_, err := svc.List(context.Background(), "acct-1")
	assert.ErrorIs(t, err, errBoom)
}

func TestSQLiteRoundTrip(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	fav, err := svc.Add(ctx, "acct-1", matrix)
	require.NoError(t, err)
	assert.Equal(t, "https://image.tmdb.org/t/p/w500/matrix.jpg", fav.PosterURL)

	again, err := svc.Add(ctx, "acct-1", matrix)
	require.NoError(t, err)
	assert.Equal(t, fav.ID, again.ID, "double add must not duplicate")

	_, err = svc.Add(ctx, "acct-1", models.MovieRef{ID: "604", Title: "Reloaded"})
	require.NoError(t, err)

	list, err := svc.List(ctx, "acct-1")
	require.NoError(t, err)
	require.Len(t, list, 2)

	ok, err := svc.IsFavorite(ctx, "acct-1", "603")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.IsFavorite(ctx, "acct-2", "603")
	require.NoError(t, err)
	assert.False(t, ok)

	removed, err := svc.Remove(ctx, "acct-1", "603")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.Remove(ctx, "acct-1", "603")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestSQLiteToggleSequence(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	state, err := svc.Toggle(ctx, "acct-1", matrix, false)
	require.NoError(t, err)
	assert.True(t, state)

	// A second device still believes it is not a favorite.
	state, err = svc.Toggle(ctx, "acct-1", matrix, false)
	require.NoError(t, err)
	assert.True(t, state, "stale toggle reconciles instead of adding twice")

	list, err := svc.List(ctx, "acct-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)

	state, err = svc.Toggle(ctx, "acct-1", matrix, true)
	require.NoError(t, err)
	assert.False(t, state)

	ok, err := svc.IsFavorite(ctx, "acct-1", "603")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRemoveAll(t *testing.T) {
	svc := newSQLiteService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "acct-1", matrix)
	require.NoError(t, err)
	_, err = svc.Add(ctx, "acct-1", models.MovieRef{ID: "604", Title: "Reloaded"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, "acct-2", matrix)
	require.NoError(t, err)

	n, err := svc.RemoveAll(ctx, "acct-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	list, err := svc.List(ctx, "acct-1")
	require.NoError(t, err)
	assert.Empty(t, list)

	ok, err := svc.IsFavorite(ctx, "acct-2", "603")
	require.NoError(t, err)
	assert.True(t, ok, "other accounts keep their favorites")

	_, err = svc.RemoveAll(ctx, " ")
	assert.ErrorIs(t, err, ErrNotAuthenticated)
}

func TestRemoveAllWrapsStoreErrors(t *testing.T) {
	svc, store := newMockService(t)
	errBoom := errors.New("database is locked")
	store.EXPECT().DeleteForAccount(gomock.Any(), "acct-1").Return(0, errBoom)

	_, err := svc.RemoveAll(context.Background(), "acct-1")
	assert.ErrorIs(t, err, errBoom)
}
