package store

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/scribe/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildJobUpdate_ProgressGuard(t *testing.T) {
	id := uuid.New()
	now := time.Now()
	query, args, err := buildJobUpdate(dollar, id, models.JobStatusProcessing, []JobUpdateOption{WithProgress(0.5)}, now)
	require.NoError(t, err)

	assert.Equal(t, "UPDATE jobs SET updated_at = $1, progress = $2 WHERE id = $3 AND status = $4 AND progress < $5", query)
	assert.Equal(t, []any{now, 0.5, id, models.JobStatusProcessing, 0.5}, args)
}

func TestBuildJobUpdate_CompleteSetsProgress(t *testing.T) {
	query, args, err := buildJobUpdate(question, uuid.New(), models.JobStatusProcessing,
		[]JobUpdateOption{WithStatus(models.JobStatusCompleted), WithSummary(models.Summary{Text: "x"})}, time.Now())
	require.NoError(t, err)

	assert.Contains(t, query, "completed_at = ?")
	assert.Contains(t, query, "progress = ?")
	assert.Contains(t, query, "summary = ?")
	assert.NotContains(t, query, "progress <")
	assert.Equal(t, strings.Count(query, "?"), len(args))
}

func TestMigrationVersion(t *testing.T) {
	assert.Equal(t, 1, migrationVersion("001_init.sql"))
	assert.Equal(t, 12, migrationVersion("12"))
	assert.Equal(t, 0, migrationVersion("init.sql"))
}
