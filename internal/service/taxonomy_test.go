package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voyagen/lulutv/internal/fetcher"
	"github.com/voyagen/lulutv/internal/models"
	"github.com/voyagen/lulutv/internal/store"
	"github.com/voyagen/lulutv/internal/taxonomy"
)

const (
	languageIndexURL = "http://idx/index.language.m3u"
	countryIndexURL  = "http://idx/index.country.m3u"
)

const languageIndex = "Language\tChannels\tPlaylist\n" +
	"English\t2\thttp://pl/languages/eng.m3u\n" +
	"Castilian\t1\thttp://pl/languages/spa.m3u\n"

const countryIndex = "India\thttp://pl/countries/in.m3u\n" +
	"Karnataka\thttp://pl/subdivisions/in-ka.m3u\n" +
	"Bengaluru\thttp://pl/cities/inblr01.m3u\n" +
	"France\thttp://pl/countries/fr.m3u\n" +
	"Paris\thttp://pl/cities/frpar01.m3u\n"

func newTestTaxonomy(t *testing.T, src *mapSource) (*Taxonomy, store.Store) {
	t.Helper()
	if src == nil {
		src = newMapSource(map[string]string{languageIndexURL: languageIndex, countryIndexURL: countryIndex})
	}
	st := store.NewFileStore(t.TempDir())
	return NewTaxonomy(st, src, taxonomy.NewResolver(), languageIndexURL, countryIndexURL), st
}

func TestTaxonomyFetchesOnceThenServesStore(t *testing.T) {
	src := newMapSource(map[string]string{languageIndexURL: languageIndex, countryIndexURL: countryIndex})
	tx, st := newTestTaxonomy(t, src)
	ctx := context.Background()

	langs, err := tx.Languages(ctx, "", false)
	require.NoError(t, err)
	require.Len(t, langs, 2)

	_, err = tx.Languages(ctx, "", false)
	require.NoError(t, err)
	assert.Equal(t, 1, src.count(languageIndexURL))

	doc, err := st.Load(ctx, models.KindLanguages)
	require.NoError(t, err)
	assert.Len(t, doc.Languages, 2)

	assert.Zero(t, src.uncachedCount(languageIndexURL))

	_, err = tx.Languages(ctx, "", true)
	require.NoError(t, err)
	assert.Equal(t, 2, src.count(languageIndexURL))
	assert.Equal(t, 1, src.uncachedCount(languageIndexURL), "refresh must skip cached manifest text")
}

func TestTaxonomyFilters(t *testing.T) {
	tx, _ := newTestTaxonomy(t, nil)
	ctx := context.Background()

	langs, err := tx.Languages(ctx, "engl", false)
	require.NoError(t, err)
	require.Len(t, langs, 1)
	assert.Equal(t, "eng", langs[0].Code)

	langs, err = tx.Languages(ctx, "SPA", false)
	require.NoError(t, err)
	require.Len(t, langs, 1)

	countries, err := tx.Countries(ctx, "fr", false)
	require.NoError(t, err)
	require.Len(t, countries, 1)
	assert.Equal(t, "France", countries[0].Name)
}

func TestTaxonomyLookups(t *testing.T) {
	tx, _ := newTestTaxonomy(t, nil)
	ctx := context.Background()

	l, err := tx.Language(ctx, "english")
	require.NoError(t, err)
	assert.Equal(t, "eng", l.Code)
	_, err = tx.Language(ctx, "xx")
	assert.ErrorIs(t, err, ErrLanguageNotFound)

	c, err := tx.Country(ctx, "IN")
	require.NoError(t, err)
	assert.Equal(t, "India", c.Name)
	_, err = tx.Country(ctx, "zz")
	assert.ErrorIs(t, err, ErrCountryNotFound)

	s, err := tx.Subdivision(ctx, "in", "karnataka")
	require.NoError(t, err)
	assert.Equal(t, "in-ka", s.Code)
	_, err = tx.Subdivision(ctx, "fr", "in-ka")
	assert.ErrorIs(t, err, ErrSubdivisionNotFound)
	_, err = tx.Subdivision(ctx, "zz", "in-ka")
	assert.ErrorIs(t, err, ErrCountryNotFound)

	city, err := tx.City(ctx, "inblr01")
	require.NoError(t, err)
	assert.Equal(t, "Bengaluru", city.Name)
	city, err = tx.City(ctx, "paris")
	require.NoError(t, err)
	assert.Equal(t, "frpar01", city.Code)
	_, err = tx.City(ctx, "atlantis")
	assert.ErrorIs(t, err, ErrCityNotFound)
}

func TestResolvePlaylist(t *testing.T) {
	tx, _ := newTestTaxonomy(t, nil)
	ctx := context.Background()

	tests := []struct {
		q    string
		want *models.PlaylistMatch
	}{
		{"English", &models.PlaylistMatch{Type: models.MatchLanguage, Code: "eng", URL: "http://pl/languages/eng.m3u"}},
		{"Spanish", &models.PlaylistMatch{Type: models.MatchLanguage, Code: "spa", URL: "http://pl/languages/spa.m3u"}},
		{"fr", &models.PlaylistMatch{Type: models.MatchCountry, Code: "fr", URL: "http://pl/countries/fr.m3u"}},
		{"Republic of India", nil},
		{"in-ka", &models.PlaylistMatch{Type: models.MatchSubdivision, Code: "in-ka", URL: "http://pl/subdivisions/in-ka.m3u"}},
		{"Bengaluru", &models.PlaylistMatch{Type: models.MatchCity, Code: "inblr01", URL: "http://pl/cities/inblr01.m3u"}},
		{"news", nil},
		{"", nil},
	}
	for _, tc := range tests {
		t.Run(tc.q, func(t *testing.T) {
			got, err := tx.ResolvePlaylist(ctx, tc.q)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestResolvePlaylistUpstreamDown(t *testing.T) {
	tx, _ := newTestTaxonomy(t, newMapSource(map[string]string{}))
	_, err := tx.ResolvePlaylist(context.Background(), "English")
	assert.ErrorIs(t, err, fetcher.ErrUpstream)
}
