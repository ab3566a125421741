package fetcher

import (
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/voyagen/lulutv/internal/models"
)

var (
	reWideGap   = regexp.MustCompile(`\s{2,}`)
	reColumnSep = regexp.MustCompile(`\t+|\s{2,}`)
	reTrailURL  = regexp.MustCompile(`(https?://\S+)$`)
)

// ParseLanguageIndex parses the tabular language index (name, channel count,
// playlist URL). A leading "language" header row is skipped.
func ParseLanguageIndex(text string) []models.Language {
	lines := nonEmptyLines(text)
	if len(lines) > 0 && strings.HasPrefix(strings.ToLower(lines[0]), "language") {
		lines = lines[1:]
	}
	items := make([]models.Language, 0, len(lines))
	for _, ln := range lines {
		parts := splitNonEmpty(strings.Split(ln, "\t"))
		if len(parts) < 3 {
			parts = splitNonEmpty(reWideGap.Split(ln, -1))
		}
		if len(parts) < 3 {
			continue
		}
		lang := models.Language{
			Name:        parts[0],
			PlaylistURL: parts[2],
			Code:        codeFromURL(parts[2]),
		}
		if n, err := strconv.Atoi(parts[1]); err == nil {
			lang.Channels = &n
		}
		items = append(items, lang)
	}
	return items
}

// ParseCountryIndex parses the country index. Rows are nested by the shape of
// their playlist URL: /countries/ opens a country, /subdivisions/ attaches to
// the current country, /cities/ and anything else attach to the current
// subdivision or country.
func ParseCountryIndex(text string) []models.Country {
	var (
		items []models.Country
		// indexes into items / the current country's subdivisions; -1 when unset
		country = -1
		sub     = -1
	)
	openUnknown := func() {
		items = append(items, models.Country{Name: "unknown", Subdivisions: []models.Subdivision{}, Cities: []models.City{}})
		country, sub = len(items)-1, -1
	}
	for _, ln := range nonEmptyLines(text) {
		name, url, ok := splitIndexRow(ln)
		if !ok {
			continue
		}
		lower := strings.ToLower(url)
		code := codeFromURL(url)
		switch {
		case strings.Contains(lower, "/countries/"):
			items = append(items, models.Country{Name: name, PlaylistURL: url, Code: code, Subdivisions: []models.Subdivision{}, Cities: []models.City{}})
			country, sub = len(items)-1, -1
		case strings.Contains(lower, "/subdivisions/"):
			if country < 0 {
				openUnknown()
			}
			c := &items[country]
			c.Subdivisions = append(c.Subdivisions, models.Subdivision{Name: name, PlaylistURL: url, Code: code, Cities: []models.City{}})
			sub = len(c.Subdivisions) - 1
		default:
			city := models.City{Name: name, PlaylistURL: url, Code: code}
			switch {
			case country < 0 && strings.Contains(lower, "/cities/"):
				openUnknown()
				items[country].Cities = append(items[country].Cities, city)
			case country < 0:
				items = append(items, models.Country{Name: name, PlaylistURL: url, Code: code, Subdivisions: []models.Subdivision{}, Cities: []models.City{}})
				country, sub = len(items)-1, -1
			case sub >= 0:
				s := &items[country].Subdivisions[sub]
				s.Cities = append(s.Cities, city)
			default:
				items[country].Cities = append(items[country].Cities, city)
			}
		}
	}
	return items
}

func splitIndexRow(ln string) (name, url string, ok bool) {
	parts := splitNonEmpty(reColumnSep.Split(ln, -1))
	if len(parts) < 2 {
		loc := reTrailURL.FindStringIndex(ln)
		if loc == nil {
			return "", "", false
		}
		parts = []string{strings.TrimSpace(ln[:loc[0]]), ln[loc[0]:loc[1]]}
	}
	return strings.TrimSpace(parts[0]), strings.TrimSpace(parts[len(parts)-1]), true
}

// codeFromURL returns the playlist file name without extension: ".../fr.m3u" -> "fr".
func codeFromURL(u string) string {
	base := path.Base(u)
	return strings.TrimSuffix(base, path.Ext(base))
}

func nonEmptyLines(text string) []string {
	var out []string
	for _, ln := range strings.Split(text, "\n") {
		if ln = strings.TrimSpace(ln); ln != "" {
			out = append(out, ln)
		}
	}
	return out
}

func splitNonEmpty(parts []string) []string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
