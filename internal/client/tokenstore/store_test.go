package tokenstore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/dmitrijs2005/facegate/internal/client/models"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := OpenDatabase(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// contract runs the behaviour every backend must share.
func contract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("empty store", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		got, err := s.Get(ctx)
		require.NoError(t, err)
		require.True(t, got.Empty())
		require.False(t, s.HasAccess(ctx))
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, models.Tokens{Access: "T1", Refresh: "R1"}))

		got, err := s.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, models.Tokens{Access: "T1", Refresh: "R1"}, got)
		require.True(t, s.HasAccess(ctx))
	})

	t.Run("set replaces both fields", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, models.Tokens{Access: "T1", Refresh: "R1"}))
		require.NoError(t, s.Set(ctx, models.Tokens{Access: "T2"}))

		got, err := s.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, models.Tokens{Access: "T2"}, got, "stale refresh token must not survive a replace")
	})

	t.Run("set rejects empty access", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, models.Tokens{Access: "T1", Refresh: "R1"}))
		require.ErrorIs(t, s.Set(ctx, models.Tokens{Refresh: "R2"}), ErrEmptyAccess)

		got, err := s.Get(ctx)
		require.NoError(t, err)
		require.Equal(t, models.Tokens{Access: "T1", Refresh: "R1"}, got)
	})

	t.Run("clear removes both", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Set(ctx, models.Tokens{Access: "T1", Refresh: "R1"}))
		require.NoError(t, s.Clear(ctx))
		require.NoError(t, s.Clear(ctx))

		got, err := s.Get(ctx)
		require.NoError(t, err)
		require.True(t, got.Empty())
		require.False(t, s.HasAccess(ctx))
	})

	t.Run("concurrent writers never tear the pair", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		pairs := []models.Tokens{{Access: "A1", Refresh: "R1"}, {Access: "A2", Refresh: "R2"}}
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func(p models.Tokens) {
				defer wg.Done()
				_ = s.Set(ctx, p)
			}(pairs[i%2])
			go func() {
				defer wg.Done()
				got, err := s.Get(ctx)
				if err != nil || got.Empty() {
					return
				}
				if got != pairs[0] && got != pairs[1] {
					t.Errorf("torn pair observed: %+v", got)
				}
			}()
		}
		wg.Wait()
	})
}

func TestMemoryStore(t *testing.T) {
	contract(t, func(t *testing.T) Store { return NewMemoryStore() })
}

func TestSQLiteStore(t *testing.T) {
	contract(t, func(t *testing.T) Store { return NewSQLiteStore(openTestDB(t)) })
}

func TestSealedSQLiteStore(t *testing.T) {
	contract(t, func(t *testing.T) Store {
		s, err := NewSealedSQLiteStore(context.Background(), openTestDB(t), []byte("secret"))
		require.NoError(t, err)
		return s
	})
}

func TestSealedSQLiteStore_ValuesAreNotPlaintext(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s, err := NewSealedSQLiteStore(ctx, db, []byte("secret"))
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, models.Tokens{Access: "access-T1", Refresh: "refresh-R1"}))

	var raw []byte
	require.NoError(t, db.QueryRow(`SELECT value FROM metadata WHERE key = 'access_token'`).Scan(&raw))
	require.NotContains(t, string(raw), "access-T1")
}

func TestSealedSQLiteStore_SurvivesReopenWithSameSecret(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "client.db")

	db, err := OpenDatabase(ctx, path)
	require.NoError(t, err)
	s, err := NewSealedSQLiteStore(ctx, db, []byte("secret"))
	require.NoError(t, err)
	require.NoError(t, s.Set(ctx, models.Tokens{Access: "T1", Refresh: "R1"}))
	require.NoError(t, db.Close())

	db, err = OpenDatabase(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	s, err = NewSealedSQLiteStore(ctx, db, []byte("secret"))
	require.NoError(t, err)
	got, err := s.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, models.Tokens{Access: "T1", Refresh: "R1"}, got)

	wrong, err := NewSealedSQLiteStore(ctx, db, []byte("other"))
	require.NoError(t, err)
	_, err = wrong.Get(ctx)
	require.Error(t, err)
	require.False(t, wrong.HasAccess(ctx))
}

func TestSQLiteStore_ClearKeepsSalt(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	s, err := NewSealedSQLiteStore(ctx, db, []byte("secret"))
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, models.Tokens{Access: "T1", Refresh: "R1"}))
	require.NoError(t, s.Clear(ctx))

	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM metadata WHERE key = 'store_salt'`).Scan(&n))
	require.Equal(t, 1, n)
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, RunMigrations(context.Background(), db))
	require.NoError(t, RunMigrations(context.Background(), db))
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("FACEGATE_TEST_REDIS_URL")
	if url == "" {
		t.Skip("FACEGATE_TEST_REDIS_URL not set")
	}

	client, err := NewRedisClient(context.Background(), url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	contract(t, func(t *testing.T) Store {
		s := NewRedisStore(client, t.Name())
		require.NoError(t, s.Clear(context.Background()))
		return s
	})
}

func TestNewRedisClient_InvalidURL(t *testing.T) {
	_, err := NewRedisClient(context.Background(), "not-a-url://")
	require.ErrorContains(t, err, "redis: invalid URL")
}
