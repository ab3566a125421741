package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLanguageIndex(t *testing.T) {
	text := "Language\tChannels\tPlaylist\n" +
		"English\t1500\thttps://iptv-org.github.io/iptv/languages/eng.m3u\n" +
		"French    300    https://iptv-org.github.io/iptv/languages/fra.m3u\n" +
		"Broken row\n" +
		"Undefined\tn/a\thttps://iptv-org.github.io/iptv/languages/undefined.m3u\n"

	got := ParseLanguageIndex(text)
	require.Len(t, got, 3)

	assert.Equal(t, "English", got[0].Name)
	assert.Equal(t, "eng", got[0].Code)
	require.NotNil(t, got[0].Channels)
	assert.Equal(t, 1500, *got[0].Channels)

	assert.Equal(t, "fra", got[1].Code)
	assert.Nil(t, got[2].Channels)
	assert.Equal(t, "undefined", got[2].Code)
}

func TestParseCountryIndexNesting(t *testing.T) {
	text := "Andorra\thttps://x/countries/ad.m3u\n" +
		"Canillo\thttps://x/subdivisions/ad-02.m3u\n" +
		"Canillo town\thttps://x/cities/adcan01.m3u\n" +
		"France\thttps://x/countries/fr.m3u\n" +
		"Paris https://x/cities/frpar01.m3u\n" +
		"Other    https://x/misc/other.m3u\n"

	got := ParseCountryIndex(text)
	require.Len(t, got, 2)

	ad := got[0]
	assert.Equal(t, "ad", ad.Code)
	require.Len(t, ad.Subdivisions, 1)
	assert.Equal(t, "ad-02", ad.Subdivisions[0].Code)
	require.Len(t, ad.Subdivisions[0].Cities, 1)
	assert.Equal(t, "adcan01", ad.Subdivisions[0].Cities[0].Code)
	assert.Empty(t, ad.Cities)

	fr := got[1]
	assert.Equal(t, "fr", fr.Code)
	assert.Empty(t, fr.Subdivisions)
	require.Len(t, fr.Cities, 2)
	assert.Equal(t, "Paris", fr.Cities[0].Name)
	assert.Equal(t, "other", fr.Cities[1].Code)
}

func TestParseCountryIndexOrphans(t *testing.T) {
	got := ParseCountryIndex("Somewhere\thttps://x/subdivisions/xx-01.m3u\n")
	require.Len(t, got, 1)
	assert.Equal(t, "unknown", got[0].Name)
	require.Len(t, got[0].Subdivisions, 1)
	assert.Equal(t, "xx-01", got[0].Subdivisions[0].Code)
}
