package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/voyagen/lulutv/internal/fetcher"
	"github.com/voyagen/lulutv/internal/log"
	"github.com/voyagen/lulutv/internal/models"
	"github.com/voyagen/lulutv/internal/store"
	"github.com/voyagen/lulutv/internal/taxonomy"
)

// Taxonomy serves the language and country indexes. Snapshots are read from
// the store and fetched from upstream when missing or on refresh.
type Taxonomy struct {
	store       store.Store
	src         fetcher.Source
	resolver    *taxonomy.Resolver
	languageURL string
	countryURL  string
	now         func() time.Time
}

func NewTaxonomy(s store.Store, src fetcher.Source, resolver *taxonomy.Resolver, languageURL, countryURL string) *Taxonomy {
	return &Taxonomy{
		store:       s,
		src:         src,
		resolver:    resolver,
		languageURL: languageURL,
		countryURL:  countryURL,
		now:         time.Now,
	}
}

// Languages lists languages whose name contains q or whose code equals q.
func (t *Taxonomy) Languages(ctx context.Context, q string, refresh bool) ([]models.Language, error) {
	items, err := t.languages(ctx, refresh)
	if err != nil {
		return nil, err
	}
	ql := strings.ToLower(strings.TrimSpace(q))
	if ql == "" {
		return items, nil
	}
	out := make([]models.Language, 0)
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), ql) || strings.EqualFold(it.Code, ql) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Language finds a language by code or name, case-insensitively.
func (t *Taxonomy) Language(ctx context.Context, code string) (*models.Language, error) {
	items, err := t.languages(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if matches(code, items[i].Code, items[i].Name) {
			return &items[i], nil
		}
	}
	return nil, ErrLanguageNotFound
}

// Countries lists countries whose name contains q or whose code equals q.
func (t *Taxonomy) Countries(ctx context.Context, q string, refresh bool) ([]models.Country, error) {
	items, err := t.countries(ctx, refresh)
	if err != nil {
		return nil, err
	}
	ql := strings.ToLower(strings.TrimSpace(q))
	if ql == "" {
		return items, nil
	}
	out := make([]models.Country, 0)
	for _, it := range items {
		if strings.Contains(strings.ToLower(it.Name), ql) || strings.EqualFold(it.Code, ql) {
			out = append(out, it)
		}
	}
	return out, nil
}

// Country finds a country by code or name, case-insensitively.
func (t *Taxonomy) Country(ctx context.Context, code string) (*models.Country, error) {
	items, err := t.countries(ctx, false)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if matches(code, items[i].Code, items[i].Name) {
			return &items[i], nil
		}
	}
	return nil, ErrCountryNotFound
}

func (t *Taxonomy) Subdivision(ctx context.Context, country, sub string) (*models.Subdivision, error) {
	c, err := t.Country(ctx, country)
	if err != nil {
		return nil, err
	}
	for i := range c.Subdivisions {
		if matches(sub, c.Subdivisions[i].Code, c.Subdivisions[i].Name) {
			return &c.Subdivisions[i], nil
		}
	}
	return nil, ErrSubdivisionNotFound
}

// City searches country-level cities and then subdivision cities.
func (t *Taxonomy) City(ctx context.Context, city string) (*models.City, error) {
	items, err := t.countries(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, c := range items {
		if found := findCity(city, c.Cities); found != nil {
			return found, nil
		}
		for _, s := range c.Subdivisions {
			if found := findCity(city, s.Cities); found != nil {
				return found, nil
			}
		}
	}
	return nil, ErrCityNotFound
}

// ResolvePlaylist maps a free-text query to a taxonomy sub-playlist: first
// by exact code or name, then through the ISO name resolver. It returns nil
// when nothing matches.
func (t *Taxonomy) ResolvePlaylist(ctx context.Context, q string) (*models.PlaylistMatch, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, nil
	}
	langs, err := t.languages(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, l := range langs {
		if matches(q, l.Code, l.Name) {
			return playlistMatch(models.MatchLanguage, l.Code, l.PlaylistURL), nil
		}
	}
	countries, err := t.countries(ctx, false)
	if err != nil {
		return nil, err
	}
	for _, c := range countries {
		if matches(q, c.Code, c.Name) {
			return playlistMatch(models.MatchCountry, c.Code, c.PlaylistURL), nil
		}
		for _, s := range c.Subdivisions {
			if matches(q, s.Code, s.Name) {
				return playlistMatch(models.MatchSubdivision, s.Code, s.PlaylistURL), nil
			}
		}
		if found := findCity(q, c.Cities); found != nil {
			return playlistMatch(models.MatchCity, found.Code, found.PlaylistURL), nil
		}
		for _, s := range c.Subdivisions {
			if found := findCity(q, s.Cities); found != nil {
				return playlistMatch(models.MatchCity, found.Code, found.PlaylistURL), nil
			}
		}
	}

	if t.resolver == nil {
		return nil, nil
	}
	if code, ok := t.resolver.Language(q); ok {
		for _, l := range langs {
			if strings.EqualFold(l.Code, code) {
				return playlistMatch(models.MatchLanguage, l.Code, l.PlaylistURL), nil
			}
		}
	}
	if code, ok := t.resolver.Country(q); ok {
		for _, c := range countries {
			if strings.EqualFold(c.Code, code) {
				return playlistMatch(models.MatchCountry, c.Code, c.PlaylistURL), nil
			}
		}
	}
	return nil, nil
}

func (t *Taxonomy) languages(ctx context.Context, refresh bool) ([]models.Language, error) {
	doc, err := t.snapshot(ctx, models.KindLanguages, refresh)
	if err != nil {
		return nil, err
	}
	return doc.Languages, nil
}

func (t *Taxonomy) countries(ctx context.Context, refresh bool) ([]models.Country, error) {
	doc, err := t.snapshot(ctx, models.KindCountries, refresh)
	if err != nil {
		return nil, err
	}
	return doc.Countries, nil
}

// snapshot loads kind from the store unless refresh is set, falling back to
// the upstream index, which is then saved.
func (t *Taxonomy) snapshot(ctx context.Context, kind string, refresh bool) (*models.Document, error) {
	logger := log.WithComponentFromContext(ctx, "taxonomy")
	if !refresh {
		doc, err := t.store.Load(ctx, kind)
		if err == nil {
			return doc, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			logger.Warn().Err(err).Str("event", "taxonomy.load_failed").Str("kind", kind).Msg("snapshot unreadable, refetching")
		}
	}

	url := t.languageURL
	if kind == models.KindCountries {
		url = t.countryURL
	}
	fetchCtx := ctx
	if refresh {
		fetchCtx = fetcher.WithoutCache(ctx)
	}
	text, err := t.src.Fetch(fetchCtx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s index: %w", kind, err)
	}

	doc := &models.Document{UpdatedAt: t.now().UTC()}
	if kind == models.KindCountries {
		doc.Countries = fetcher.ParseCountryIndex(text)
	} else {
		doc.Languages = fetcher.ParseLanguageIndex(text)
	}
	if err := t.store.Save(ctx, kind, doc); err != nil {
		logger.Error().Err(err).Str("event", "taxonomy.save_failed").Str("kind", kind).Msg("could not persist snapshot")
	} else {
		logger.Info().Str("event", "taxonomy.saved").Str("kind", kind).Msg("snapshot refreshed")
	}
	return doc, nil
}

func findCity(q string, cities []models.City) *models.City {
	for i := range cities {
		if matches(q, cities[i].Code, cities[i].Name) {
			return &cities[i]
		}
	}
	return nil
}

func playlistMatch(kind, code, url string) *models.PlaylistMatch {
	return &models.PlaylistMatch{Type: kind, Code: strings.ToLower(code), URL: url}
}

// matches reports whether q equals code or name, ignoring case. Empty fields never match.
func matches(q, code, name string) bool {
	q = strings.TrimSpace(q)
	return (code != "" && strings.EqualFold(q, code)) || (name != "" && strings.EqualFold(q, name))
}
