package models

// UnknownName is the display name used when a manifest entry carries none.
const UnknownName = "Unknown"

// Taxonomy snapshot kinds.
const (
	KindLanguages = "languages"
	KindCountries = "countries"
)

// Taxonomy match types returned when a free-text query names a sub-playlist.
const (
	MatchLanguage    = "language"
	MatchCountry     = "country"
	MatchSubdivision = "subdivision"
	MatchCity        = "city"
)
