package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sitescout/sitescout/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Initialize())
	t.Cleanup(func() { store.Close() })

	return store
}

func TestRunRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := models.NewRun("https://example.com")
	run.SitemapURL = "https://example.com/sitemap.xml"
	run.SiteType = "ecommerce"
	run.Platform = "Shopify"
	run.OutputDir = "/tmp/out"
	run.TotalDiscovered = 120

	require.NoError(t, store.CreateRun(ctx, run))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "https://example.com", got.RootURL)
	assert.Equal(t, "https://example.com/sitemap.xml", got.SitemapURL)
	assert.Equal(t, "ecommerce", got.SiteType)
	assert.Equal(t, "Shopify", got.Platform)
	assert.Equal(t, "running", got.Status)
	assert.Equal(t, 120, got.TotalDiscovered)
	assert.WithinDuration(t, run.StartedAt, got.StartedAt, time.Second)
	assert.Nil(t, got.CompletedAt)
}

func TestUpdateRun(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := models.NewRun("https://example.com")
	require.NoError(t, store.CreateRun(ctx, run))

	run.TotalDiscovered = 40
	run.TotalSelected = 10
	run.TotalFetched = 9
	run.TotalFailed = 1
	run.Complete()
	require.NoError(t, store.UpdateRun(ctx, run))

	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "completed", got.Status)
	assert.Equal(t, 40, got.TotalDiscovered)
	assert.Equal(t, 10, got.TotalSelected)
	assert.Equal(t, 9, got.TotalFetched)
	assert.Equal(t, 1, got.TotalFailed)
	require.NotNil(t, got.CompletedAt)
	assert.WithinDuration(t, *run.CompletedAt, *got.CompletedAt, time.Second)
}

func TestGetRunMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetRun(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestListRuns(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		run := models.NewRun("https://example.com")
		run.StartedAt = base.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.CreateRun(ctx, run))
		ids = append(ids, run.ID)
	}

	runs, err := store.ListRuns(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)

	// Most recent first.
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.Equal(t, ids[0], runs[2].ID)

	page, err := store.ListRuns(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, ids[1], page[0].ID)
}

func TestSavePageRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := models.NewRun("https://example.com")
	require.NoError(t, store.CreateRun(ctx, run))

	lastMod := time.Date(2024, 5, 20, 8, 30, 0, 0, time.UTC)
	meta := json.RawMessage(`{"og_title":"About Us"}`)

	page := models.NewPage(run.ID, "https://example.com/about")
	page.Rank = 2
	page.Score = 33.5
	page.Depth = 1
	page.HasKeyword = true
	page.Priority = 0.5
	page.ChangeFreq = "weekly"
	page.LastModified = &lastMod
	page.Title = "About Us"
	page.Description = "Who we are"
	page.Tags = []string{"company", "history"}
	page.TextContent = "We build widgets."
	page.HTMLPath = "002_about.html"
	page.StatusCode = 200
	page.ContentLength = 5120
	page.Metadata = &meta
	page.FetchedAt = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, store.SavePage(ctx, page))

	got, err := store.GetPage(ctx, page.ID)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, page.ID, got.ID)
	assert.Equal(t, run.ID, got.RunID)
	assert.Equal(t, "https://example.com/about", got.URL)
	assert.Equal(t, 2, got.Rank)
	assert.InDelta(t, 33.5, got.Score, 1e-9)
	assert.Equal(t, 1, got.Depth)
	assert.True(t, got.HasKeyword)
	assert.InDelta(t, 0.5, got.Priority, 1e-9)
	assert.Equal(t, "weekly", got.ChangeFreq)
	require.NotNil(t, got.LastModified)
	assert.WithinDuration(t, lastMod, *got.LastModified, time.Second)
	assert.Equal(t, "About Us", got.Title)
	assert.Equal(t, []string{"company", "history"}, got.Tags)
	assert.Equal(t, "We build widgets.", got.TextContent)
	assert.Equal(t, "002_about.html", got.HTMLPath)
	assert.Equal(t, 200, got.StatusCode)
	assert.Equal(t, 5120, got.ContentLength)
	assert.Empty(t, got.FetchError)
	require.NotNil(t, got.Metadata)
	assert.JSONEq(t, string(meta), string(*got.Metadata))
	assert.WithinDuration(t, page.FetchedAt, got.FetchedAt, time.Second)
}

func TestSavePageUpsertsOnRunAndURL(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := models.NewRun("https://example.com")
	require.NoError(t, store.CreateRun(ctx, run))

	page := models.NewPage(run.ID, "https://example.com/about")
	page.Rank = 1
	page.Title = "first pass"
	require.NoError(t, store.SavePage(ctx, page))

	page.Title = "second pass"
	page.StatusCode = 200
	require.NoError(t, store.SavePage(ctx, page))

	pages, err := store.ListPagesByRun(ctx, run.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "second pass", pages[0].Title)
	assert.Equal(t, 200, pages[0].StatusCode)
}

func TestListPagesByRunOrdersByRank(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := models.NewRun("https://example.com")
	require.NoError(t, store.CreateRun(ctx, run))

	for _, p := range []struct {
		url  string
		rank int
	}{
		{"https://example.com/c", 3},
		{"https://example.com/a", 1},
		{"https://example.com/b", 2},
	} {
		page := models.NewPage(run.ID, p.url)
		page.Rank = p.rank
		require.NoError(t, store.SavePage(ctx, page))
	}

	pages, err := store.ListPagesByRun(ctx, run.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, "https://example.com/a", pages[0].URL)
	assert.Equal(t, "https://example.com/b", pages[1].URL)
	assert.Equal(t, "https://example.com/c", pages[2].URL)

	// Other runs' pages stay out of the listing.
	other := models.NewRun("https://other.example")
	require.NoError(t, store.CreateRun(ctx, other))
	stray := models.NewPage(other.ID, "https://other.example/x")
	require.NoError(t, store.SavePage(ctx, stray))

	pages, err = store.ListPagesByRun(ctx, run.ID, 10, 0)
	require.NoError(t, err)
	assert.Len(t, pages, 3)
}

func TestSearchPages(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	run := models.NewRun("https://example.com")
	require.NoError(t, store.CreateRun(ctx, run))

	seed := []struct {
		url   string
		title string
		text  string
		score float64
	}{
		{"https://example.com/pricing", "Pricing Plans", "Compare our pricing tiers.", 28},
		{"https://example.com/about", "About Us", "Our pricing philosophy is simple.", 33.5},
		{"https://example.com/blog/news", "News", "Nothing relevant here.", 5},
	}
	for _, sd := range seed {
		page := models.NewPage(run.ID, sd.url)
		page.Title = sd.title
		page.TextContent = sd.text
		page.Score = sd.score
		require.NoError(t, store.SavePage(ctx, page))
	}

	got, err := store.SearchPages(ctx, "pricing", 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Highest score first.
	assert.Equal(t, "https://example.com/about", got[0].URL)
	assert.Equal(t, "https://example.com/pricing", got[1].URL)

	none, err := store.SearchPages(ctx, "zebra", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestGetPageMissing(t *testing.T) {
	store := newTestStore(t)

	got, err := store.GetPage(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}
