package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/jobcrawler/internal/crawler"
)

func TestJobStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := NewJobStore()
	ctx := context.Background()
	rec := crawler.Record{Title: "UX Designer", Company: "Acme", SourceURL: "https://jobs.example.com/1"}

	exists, err := store.ExistsBySourceURL(ctx, rec.SourceURL)
	require.NoError(t, err)
	require.False(t, exists)

	id, err := store.InsertJob(ctx, rec)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	exists, err = store.ExistsBySourceURL(ctx, rec.SourceURL)
	require.NoError(t, err)
	require.True(t, exists)

	_, err = store.InsertJob(ctx, rec)
	require.ErrorIs(t, err, crawler.ErrDuplicateJob)

	require.NoError(t, store.InsertBenefits(ctx, id, []string{"Remote", "Gym"}))
	require.Error(t, store.InsertBenefits(ctx, "missing", []string{"x"}))

	jobs := store.Jobs()
	require.Len(t, jobs, 1)
	require.Equal(t, []string{"Remote", "Gym"}, jobs[0].Benefits)

	jobs[0].Benefits[0] = "modified"
	require.Equal(t, "Remote", store.Jobs()[0].Benefits[0])
	require.Equal(t, 1, store.Len())
}
