package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/lulutv/internal/cache"
	"github.com/voyagen/lulutv/internal/fetcher"
	"github.com/voyagen/lulutv/internal/models"
)

func catalogRecords() []models.ChannelRecord {
	return []models.ChannelRecord{
		{Name: "Alpha News", Group: "News", Country: "US", Language: "eng", URL: "http://s/alpha"},
		{Name: "Bravo", Group: "Kids", Country: "FR", URL: "http://s/bravo"},
		{Name: "Charlie", Group: "Music", URL: "http://s/charlie"},
		{Name: "Delta News", Group: "Info", Language: "fra", URL: "http://s/delta"},
		{Name: "Echo", Group: "News", URL: "http://s/echo"},
	}
}

type catalogFixture struct {
	catalog *Catalog
	loader  *fakeLoader
	prober  *fakeProber
	results *cache.ResultCache
	src     *mapSource
}

func newCatalogFixture(t *testing.T) *catalogFixture {
	t.Helper()
	loader := newFakeLoader(catalogRecords()...)
	prober := &fakeProber{fn: func(rec models.ChannelRecord) (models.ValidationResult, error) {
		working := !strings.Contains(rec.URL, "bravo") && !strings.Contains(rec.URL, "dead")
		return models.ValidationResult{Working: working, CheckedAt: time.Now()}, nil
	}}
	results := cache.NewResultCache()
	v := NewValidator(context.Background(), loader, prober, results, ValidatorConfig{Concurrency: 2})
	src := newMapSource(map[string]string{
		languageIndexURL: languageIndex,
		countryIndexURL:  countryIndex,
		"http://pl/languages/eng.m3u": "#EXTM3U\n#EXTINF:-1,One\nhttp://e/1\n#EXTINF:-1 tvg-language=\"gle\",Two\nhttp://e/2\n",
		"http://pl/subdivisions/in-ka.m3u": "#EXTINF:-1,Kannada\nhttp://k/1\n#EXTINF:-1,Dead\nhttp://k/dead\n",
		"http://pl/cities/frpar01.m3u":      "#EXTINF:-1,Paris TV\nhttp://p/1\n",
	})
	tx, _ := newTestTaxonomy(t, src)
	return &catalogFixture{
		catalog: NewCatalog(loader, results, v, src, tx),
		loader:  loader,
		prober:  prober,
		results: results,
		src:     src,
	}
}

func names(views []models.ChannelView) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.Name)
	}
	return out
}

func TestListPaginatesWithoutValidation(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	page, err := f.catalog.List(ctx, ListParams{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"Charlie", "Delta News"}, names(page))
	assert.Nil(t, page[0].Working)
	assert.Zero(t, f.prober.calls.Load())

	past, err := f.catalog.List(ctx, ListParams{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestListSubstringFilter(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	got, err := f.catalog.List(ctx, ListParams{Page: 1, Limit: 50, Query: "news"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha News", "Delta News", "Echo"}, names(got))

	got, err = f.catalog.List(ctx, ListParams{Page: 1, Limit: 50, Query: "fra"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Delta News"}, names(got))

	n, err := f.catalog.Count(ctx, "news")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestListWorkingOnlyValidatesMissing(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	f.results.Put("http://s/alpha", models.ValidationResult{Working: false, CheckedAt: time.Now()})

	got, err := f.catalog.List(ctx, ListParams{Page: 1, Limit: 3, WorkingOnly: true})
	require.NoError(t, err)
	// alpha is known down, bravo probes down: the page under-fills.
	assert.Equal(t, []string{"Charlie"}, names(got))
	require.NotNil(t, got[0].Working)
	assert.True(t, *got[0].Working)
	assert.ElementsMatch(t, []string{"http://s/bravo", "http://s/charlie"}, f.prober.probed())
}

func TestListValidateRefreshesStale(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	f.results.Put("http://s/alpha", models.ValidationResult{Working: false, CheckedAt: time.Now().Add(-time.Hour)})

	got, err := f.catalog.List(ctx, ListParams{Page: 1, Limit: 1, Validate: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Working)
	assert.True(t, *got[0].Working)
	require.NotNil(t, got[0].LastChecked)
}

func TestListNarrowsToLanguagePlaylist(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	got, err := f.catalog.List(ctx, ListParams{Page: 1, Limit: 50, Query: "english"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "eng", got[0].Language)
	assert.Equal(t, "gle", got[1].Language)

	n, err := f.catalog.Count(ctx, "English")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestListRefreshSkipsCachedPlaylistText(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	const playlist = "http://pl/languages/eng.m3u"

	_, err := f.catalog.List(ctx, ListParams{Page: 1, Limit: 50, Query: "english"})
	require.NoError(t, err)
	assert.Zero(t, f.src.uncachedCount(playlist))

	_, err = f.catalog.List(ctx, ListParams{Page: 1, Limit: 50, Query: "english", Refresh: true})
	require.NoError(t, err)
	assert.Equal(t, 2, f.src.count(playlist))
	assert.Equal(t, 1, f.src.uncachedCount(playlist))
}

func TestListNarrowsToPlaceAndAnnotatesCountry(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()

	got, err := f.catalog.List(ctx, ListParams{Page: 1, Limit: 50, Query: "Karnataka", WorkingOnly: true})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Kannada", got[0].Name)
	assert.Equal(t, "in", got[0].Country)

	got, err = f.catalog.List(ctx, ListParams{Page: 1, Limit: 50, Query: "Paris"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fr", got[0].Country)
}

func TestListServesStaleIndexOnUpstreamFailure(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	f.loader.err = errors.Join(fetcher.ErrUpstream, errors.New("HTTP 500"))

	got, err := f.catalog.List(ctx, ListParams{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = f.catalog.List(ctx, ListParams{Page: 1, Limit: 2, Refresh: true})
	assert.ErrorIs(t, err, fetcher.ErrUpstream)

	f.loader.current = nil
	_, err = f.catalog.List(ctx, ListParams{Page: 1, Limit: 2})
	assert.ErrorIs(t, err, fetcher.ErrUpstream)
}

func TestSummaryAndSample(t *testing.T) {
	f := newCatalogFixture(t)
	ctx := context.Background()
	f.results.Put("http://s/alpha", models.ValidationResult{Working: true, CheckedAt: time.Now()})
	f.results.Put("http://s/bravo", models.ValidationResult{Working: false, CheckedAt: time.Now()})

	sum, err := f.catalog.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 5, sum.ParsedCount)
	assert.Equal(t, 2, sum.ValidatedCount)
	assert.Equal(t, 1, sum.WorkingCount)
	require.NotNil(t, sum.LastLoaded)

	rep, err := f.catalog.Sample(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, rep.Total)
	assert.Equal(t, 2, rep.SampleCount)
	assert.Equal(t, 2, rep.NonNullLanguage)
	assert.Equal(t, 2, rep.NonNullCountry)
	assert.Equal(t, "Alpha News", rep.Sample[0].Name)

	rep, err = f.catalog.Sample(ctx, 1000)
	require.NoError(t, err)
	assert.Equal(t, 5, rep.SampleCount)
}

func TestAnnotate(t *testing.T) {
	recs := []models.ChannelRecord{{URL: "a"}, {URL: "b", Country: "us", Language: "eng"}}
	out := annotate(append([]models.ChannelRecord(nil), recs...), &models.PlaylistMatch{Type: models.MatchCity, Code: "frpar01"})
	assert.Equal(t, "fr", out[0].Country)
	assert.Equal(t, "us", out[1].Country)

	out = annotate(append([]models.ChannelRecord(nil), recs...), &models.PlaylistMatch{Type: models.MatchSubdivision, Code: "in-ka"})
	assert.Equal(t, "in", out[0].Country)

	out = annotate(append([]models.ChannelRecord(nil), recs...), &models.PlaylistMatch{Type: models.MatchLanguage, Code: "spa"})
	assert.Equal(t, "spa", out[0].Language)
	assert.Empty(t, out[0].Country)
	assert.Equal(t, "eng", out[1].Language)
}
