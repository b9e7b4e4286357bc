package store_test

import (
	"context"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/scribe/internal/store"
	"github.com/kiranshivaraju/scribe/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// migrationsDir returns the absolute path to the migrations directory.
func migrationsDir() string {
	_, filename, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(filename), "..", "..", "migrations")
}

// setupTestDB spins up a Postgres container, runs migrations, and returns a pool.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("scribe_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, pgContainer.Terminate(ctx))
	})

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	err = store.RunMigrations(connStr, migrationsDir())
	require.NoError(t, err)

	// Second run is a no-op.
	require.NoError(t, store.RunMigrations(connStr, migrationsDir()))

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(func() { pool.Close() })

	return pool
}

func newSQLiteStore(t *testing.T) store.Store {
	t.Helper()
	s, err := store.NewSQLiteStore(context.Background(), filepath.Join(t.TempDir(), "db", "scribe.db"))
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s
}

// forEachStore runs fn against SQLite and, outside -short, against Postgres.
func forEachStore(t *testing.T, fn func(t *testing.T, s store.Store)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, newSQLiteStore(t))
	})
	t.Run("postgres", func(t *testing.T) {
		if testing.Short() {
			t.Skip("skipping integration test")
		}
		fn(t, store.NewPostgresStore(setupTestDB(t)))
	})
}

func newJob(kind string) *models.Job {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.Job{
		ID:        uuid.New(),
		Kind:      kind,
		Status:    models.JobStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func createJob(t *testing.T, s store.Store, kind string) *models.Job {
	t.Helper()
	j := newJob(kind)
	require.NoError(t, s.CreateJob(context.Background(), j))
	return j
}

// --- API keys ---

func TestAPIKey_CreateAndGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		now := time.Now().UTC()
		key := &models.APIKey{
			ID:        uuid.New(),
			Name:      "ci",
			KeyHash:   "$2a$10$hash",
			KeyPrefix: "sk_abcd1",
			CreatedAt: now,
			UpdatedAt: now,
		}
		require.NoError(t, s.CreateAPIKey(ctx, key))

		keys, err := s.GetAPIKeyByPrefix(ctx, "sk_abcd1")
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.Equal(t, key.ID, keys[0].ID)
		assert.Equal(t, "ci", keys[0].Name)
		assert.Equal(t, "$2a$10$hash", keys[0].KeyHash)
		assert.Nil(t, keys[0].LastUsedAt)

		none, err := s.GetAPIKeyByPrefix(ctx, "sk_zzzz9")
		require.NoError(t, err)
		assert.Empty(t, none)
	})
}

func TestAPIKey_DuplicateID(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		key := &models.APIKey{ID: uuid.New(), Name: "a", KeyHash: "h", KeyPrefix: "p", CreatedAt: time.Now(), UpdatedAt: time.Now()}
		require.NoError(t, s.CreateAPIKey(ctx, key))
		assert.ErrorIs(t, s.CreateAPIKey(ctx, key), store.ErrDuplicateKey)
	})
}

func TestAPIKey_DuplicateName(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		first := &models.APIKey{ID: uuid.New(), Name: "ops", KeyHash: "h1", KeyPrefix: "sk_one01", CreatedAt: time.Now(), UpdatedAt: time.Now()}
		second := &models.APIKey{ID: uuid.New(), Name: "ops", KeyHash: "h2", KeyPrefix: "sk_two02", CreatedAt: time.Now(), UpdatedAt: time.Now()}
		require.NoError(t, s.CreateAPIKey(ctx, first))
		assert.ErrorIs(t, s.CreateAPIKey(ctx, second), store.ErrDuplicateKey)
	})
}

func TestAPIKey_UpdateLastUsed(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		key := &models.APIKey{ID: uuid.New(), Name: "a", KeyHash: "h", KeyPrefix: "sk_last01", CreatedAt: time.Now(), UpdatedAt: time.Now()}
		require.NoError(t, s.CreateAPIKey(ctx, key))
		require.NoError(t, s.UpdateAPIKeyLastUsed(ctx, key.ID))

		keys, err := s.GetAPIKeyByPrefix(ctx, "sk_last01")
		require.NoError(t, err)
		require.Len(t, keys, 1)
		assert.NotNil(t, keys[0].LastUsedAt)
	})
}

// --- Jobs ---

func TestJob_CreateAndGet(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		j := newJob(models.JobKindTranscription)
		key := j.ID.String() + ".mp3"
		j.MediaKey = &key
		require.NoError(t, s.CreateJob(ctx, j))

		got, err := s.GetJob(ctx, j.ID)
		require.NoError(t, err)
		assert.Equal(t, j.ID, got.ID)
		assert.Equal(t, models.JobKindTranscription, got.Kind)
		assert.Equal(t, models.JobStatusPending, got.Status)
		assert.Equal(t, 0.0, got.Progress)
		require.NotNil(t, got.MediaKey)
		assert.Equal(t, key, *got.MediaKey)
		assert.Nil(t, got.SourceJobID)
		assert.Nil(t, got.Transcript)
		assert.Nil(t, got.Summary)
		assert.Nil(t, got.ErrorMessage)
		assert.Nil(t, got.StartedAt)
		assert.WithinDuration(t, j.CreatedAt, got.CreatedAt, time.Second)
	})
}

func TestJob_SourceBacklink(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		src := createJob(t, s, models.JobKindTranscription)
		j := newJob(models.JobKindSummarization)
		j.SourceJobID = &src.ID
		require.NoError(t, s.CreateJob(ctx, j))

		got, err := s.GetJob(ctx, j.ID)
		require.NoError(t, err)
		require.NotNil(t, got.SourceJobID)
		assert.Equal(t, src.ID, *got.SourceJobID)
	})
}

func TestJob_GetNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		_, err := s.GetJob(context.Background(), uuid.New())
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestJob_PendingToProcessing(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		j := createJob(t, s, models.JobKindTranscription)

		got, err := s.UpdateJob(ctx, j.ID, models.JobStatusPending, store.WithStatus(models.JobStatusProcessing))
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusProcessing, got.Status)
		assert.NotNil(t, got.StartedAt)
		assert.Nil(t, got.CompletedAt)
	})
}

func TestJob_ProgressOnlyIncreases(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		j := createJob(t, s, models.JobKindTranscription)
		_, err := s.UpdateJob(ctx, j.ID, models.JobStatusPending, store.WithStatus(models.JobStatusProcessing))
		require.NoError(t, err)

		got, err := s.UpdateJob(ctx, j.ID, models.JobStatusProcessing, store.WithProgress(0.5))
		require.NoError(t, err)
		assert.Equal(t, 0.5, got.Progress)

		_, err = s.UpdateJob(ctx, j.ID, models.JobStatusProcessing, store.WithProgress(0.5))
		assert.ErrorIs(t, err, store.ErrConflict)
		_, err = s.UpdateJob(ctx, j.ID, models.JobStatusProcessing, store.WithProgress(0.25))
		assert.ErrorIs(t, err, store.ErrConflict)

		cur, err := s.GetJob(ctx, j.ID)
		require.NoError(t, err)
		assert.Equal(t, 0.5, cur.Progress)
	})
}

func TestJob_CompleteWithTranscript(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		j := createJob(t, s, models.JobKindTranscription)
		_, err := s.UpdateJob(ctx, j.ID, models.JobStatusPending, store.WithStatus(models.JobStatusProcessing))
		require.NoError(t, err)

		tr := models.Transcript{
			Text:     "hello\n\nworld",
			Language: "en",
			Segments: []models.Segment{
				{Index: 0, Start: 0, End: 180, Text: "hello"},
				{Index: 1, Start: 180, End: 200, Text: "world"},
			},
		}
		got, err := s.UpdateJob(ctx, j.ID, models.JobStatusProcessing,
			store.WithStatus(models.JobStatusCompleted), store.WithTranscript(tr))
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusCompleted, got.Status)
		assert.Equal(t, 1.0, got.Progress)
		assert.NotNil(t, got.CompletedAt)
		require.NotNil(t, got.Transcript)
		assert.Equal(t, tr, *got.Transcript)

		again, err := s.GetJob(ctx, j.ID)
		require.NoError(t, err)
		assert.Equal(t, tr, *again.Transcript)
	})
}

func TestJob_CompleteWithSummary(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		j := createJob(t, s, models.JobKindSummarization)
		_, err := s.UpdateJob(ctx, j.ID, models.JobStatusPending, store.WithStatus(models.JobStatusProcessing))
		require.NoError(t, err)

		sum := models.Summary{
			Text:     "digest",
			Metadata: models.Metadata{Dates: []string{"5/6/2024"}, Links: []string{"https://example.com."}},
		}
		got, err := s.UpdateJob(ctx, j.ID, models.JobStatusProcessing,
			store.WithStatus(models.JobStatusCompleted), store.WithSummary(sum))
		require.NoError(t, err)
		require.NotNil(t, got.Summary)
		assert.Equal(t, "digest", got.Summary.Text)
		assert.True(t, sum.Metadata.Equal(got.Summary.Metadata))
		assert.Nil(t, got.Transcript)
	})
}

func TestJob_Fail(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		j := createJob(t, s, models.JobKindTranscription)
		_, err := s.UpdateJob(ctx, j.ID, models.JobStatusPending, store.WithStatus(models.JobStatusProcessing))
		require.NoError(t, err)
		_, err = s.UpdateJob(ctx, j.ID, models.JobStatusProcessing, store.WithProgress(0.4))
		require.NoError(t, err)

		got, err := s.UpdateJob(ctx, j.ID, models.JobStatusProcessing,
			store.WithStatus(models.JobStatusFailed), store.WithErrorMessage("unit 1: boom"))
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusFailed, got.Status)
		assert.Equal(t, 0.4, got.Progress)
		require.NotNil(t, got.ErrorMessage)
		assert.Equal(t, "unit 1: boom", *got.ErrorMessage)
		assert.NotNil(t, got.CompletedAt)
	})
}

func TestJob_WrongFromStatusConflicts(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		j := createJob(t, s, models.JobKindTranscription)

		_, err := s.UpdateJob(ctx, j.ID, models.JobStatusProcessing, store.WithStatus(models.JobStatusCompleted))
		assert.ErrorIs(t, err, store.ErrConflict)

		cur, err := s.GetJob(ctx, j.ID)
		require.NoError(t, err)
		assert.Equal(t, models.JobStatusPending, cur.Status)
	})
}

func TestJob_UpdateNotFound(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		_, err := s.UpdateJob(context.Background(), uuid.New(), models.JobStatusPending,
			store.WithStatus(models.JobStatusProcessing))
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestJob_ListStuck(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		ctx := context.Background()
		stuck := createJob(t, s, models.JobKindTranscription)
		_, err := s.UpdateJob(ctx, stuck.ID, models.JobStatusPending, store.WithStatus(models.JobStatusProcessing))
		require.NoError(t, err)
		createJob(t, s, models.JobKindTranscription) // pending, never listed

		jobs, err := s.ListStuckJobs(ctx, time.Now().UTC().Add(time.Minute))
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, stuck.ID, jobs[0].ID)

		jobs, err = s.ListStuckJobs(ctx, time.Now().UTC().Add(-time.Hour))
		require.NoError(t, err)
		assert.Empty(t, jobs)
	})
}

func TestPing(t *testing.T) {
	forEachStore(t, func(t *testing.T, s store.Store) {
		assert.NoError(t, s.Ping(context.Background()))
	})
}

func TestNewSQLiteStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "scribe.db")

	s1, err := store.NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	j := createJob(t, s1, models.JobKindTranscription)
	s1.Close()

	s2, err := store.NewSQLiteStore(ctx, path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.GetJob(ctx, j.ID)
	require.NoError(t, err)
	assert.Equal(t, j.ID, got.ID)
}

func TestNewSQLiteStore_EmptyPath(t *testing.T) {
	_, err := store.NewSQLiteStore(context.Background(), " ")
	assert.Error(t, err)
}
