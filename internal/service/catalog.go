package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/voyagen/lulutv/internal/cache"
	"github.com/voyagen/lulutv/internal/fetcher"
	"github.com/voyagen/lulutv/internal/log"
	"github.com/voyagen/lulutv/internal/models"
)

// Listing limits.
const (
	DefaultPageSize = 50
	MaxPageSize     = 500
	MaxSampleSize   = 100
)

// ListParams selects a page of the channel listing.
type ListParams struct {
	Page        int // 1-based
	Limit       int
	Query       string
	Refresh     bool
	Validate    bool
	WorkingOnly bool
}

// Summary describes the loaded index and the validation cache.
type Summary struct {
	ParsedCount    int        `json:"parsed_count"`
	ValidatedCount int        `json:"validated_count"`
	WorkingCount   int        `json:"working_count"`
	LastLoaded     *time.Time `json:"last_loaded"`
}

// SampleEntry is the trimmed record shown by Sample.
type SampleEntry struct {
	Name     string `json:"name"`
	Logo     string `json:"tvg_logo,omitempty"`
	URL      string `json:"url"`
	Language string `json:"language,omitempty"`
	Country  string `json:"country,omitempty"`
	Group    string `json:"group,omitempty"`
}

// SampleReport is a parser sanity check over the loaded index.
type SampleReport struct {
	Total           int           `json:"total"`
	SampleCount     int           `json:"sample_count"`
	NonNullLanguage int           `json:"nonnull_language"`
	NonNullCountry  int           `json:"nonnull_country"`
	Sample          []SampleEntry `json:"sample"`
}

// Catalog serves filtered, paginated channel listings joined with cached
// validation results.
type Catalog struct {
	channels  ChannelLoader
	results   *cache.ResultCache
	validator *Validator
	playlists fetcher.Source
	taxonomy  *Taxonomy
}

// NewCatalog wires a Catalog. taxonomy may be nil, which disables narrowing
// listings to a language or country sub-playlist.
func NewCatalog(channels ChannelLoader, results *cache.ResultCache, validator *Validator, playlists fetcher.Source, taxonomy *Taxonomy) *Catalog {
	return &Catalog{
		channels:  channels,
		results:   results,
		validator: validator,
		playlists: playlists,
		taxonomy:  taxonomy,
	}
}

// List returns one page of channels. With WorkingOnly, page entries without
// a result are validated first and non-working ones are dropped, so a page
// may hold fewer than Limit items.
func (c *Catalog) List(ctx context.Context, p ListParams) ([]models.ChannelView, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 || p.Limit > MaxPageSize {
		p.Limit = DefaultPageSize
	}

	records, err := c.records(ctx, p.Query, p.Refresh)
	if err != nil {
		return nil, err
	}
	page := paginate(records, p.Page, p.Limit)

	if p.Validate {
		if err := c.validator.ValidatePage(ctx, page); err != nil {
			return nil, err
		}
	}
	if p.WorkingOnly {
		var missing []models.ChannelRecord
		for _, rec := range page {
			if _, ok := c.results.Get(rec.URL); !ok {
				missing = append(missing, rec)
			}
		}
		if len(missing) > 0 {
			if err := c.validator.ValidatePage(ctx, missing); err != nil {
				return nil, err
			}
		}
	}

	out := make([]models.ChannelView, 0, len(page))
	for _, rec := range page {
		var res *models.ValidationResult
		if r, ok := c.results.Get(rec.URL); ok {
			res = &r
		}
		if p.WorkingOnly && (res == nil || !res.Working) {
			continue
		}
		out = append(out, models.Attach(rec, res))
	}
	return out, nil
}

// Count returns the number of channels matching q, before pagination.
func (c *Catalog) Count(ctx context.Context, q string) (int, error) {
	records, err := c.records(ctx, q, false)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (c *Catalog) Summary(ctx context.Context) (Summary, error) {
	snap, err := c.snapshot(ctx, false)
	if err != nil {
		return Summary{}, err
	}
	loaded := snap.LoadedAt.UTC()
	return Summary{
		ParsedCount:    len(snap.Records),
		ValidatedCount: c.results.Len(),
		WorkingCount:   c.results.WorkingCount(),
		LastLoaded:     &loaded,
	}, nil
}

// Sample returns the first n records (clamped to 1..100) and field fill counts.
func (c *Catalog) Sample(ctx context.Context, n int) (SampleReport, error) {
	snap, err := c.snapshot(ctx, false)
	if err != nil {
		return SampleReport{}, err
	}
	n = min(max(n, 1), MaxSampleSize)
	rep := SampleReport{Total: len(snap.Records), Sample: make([]SampleEntry, 0, n)}
	for i, rec := range snap.Records {
		if i < n {
			rep.Sample = append(rep.Sample, SampleEntry{
				Name: rec.Name, Logo: rec.Logo, URL: rec.URL,
				Language: rec.Language, Country: rec.Country, Group: rec.Group,
			})
		}
		if strings.TrimSpace(rec.Language) != "" {
			rep.NonNullLanguage++
		}
		if strings.TrimSpace(rec.Country) != "" {
			rep.NonNullCountry++
		}
	}
	rep.SampleCount = len(rep.Sample)
	return rep, nil
}

// records resolves q to a sub-playlist when it names a known language or
// place, and otherwise filters the full index by substring.
func (c *Catalog) records(ctx context.Context, q string, refresh bool) ([]models.ChannelRecord, error) {
	q = strings.TrimSpace(q)
	if q != "" && c.taxonomy != nil {
		match, err := c.taxonomy.ResolvePlaylist(ctx, q)
		if err != nil {
			logger := log.WithComponentFromContext(ctx, "catalog")
			logger.Warn().Err(err).Str("event", "catalog.resolve_failed").Str("q", q).Msg("taxonomy unavailable, searching full index")
		}
		if match != nil && match.URL != "" {
			fetchCtx := ctx
			if refresh {
				fetchCtx = fetcher.WithoutCache(ctx)
			}
			text, err := c.playlists.Fetch(fetchCtx, match.URL)
			if err != nil {
				return nil, fmt.Errorf("fetch %s playlist %s: %w", match.Type, match.Code, err)
			}
			return annotate(fetcher.Parse(text), match), nil
		}
	}

	snap, err := c.snapshot(ctx, refresh)
	if err != nil {
		return nil, err
	}
	if q == "" {
		return snap.Records, nil
	}
	ql := strings.ToLower(q)
	out := make([]models.ChannelRecord, 0)
	for _, rec := range snap.Records {
		if containsFold(rec.Name, ql) || containsFold(rec.Group, ql) ||
			containsFold(rec.Country, ql) || containsFold(rec.Language, ql) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// snapshot loads the index. Without refresh, a failed reload falls back to
// the last good snapshot.
func (c *Catalog) snapshot(ctx context.Context, refresh bool) (*cache.Snapshot, error) {
	snap, err := c.channels.Load(ctx, refresh)
	if err == nil {
		return snap, nil
	}
	if !refresh {
		if cur := c.channels.Current(); cur != nil {
			logger := log.WithComponentFromContext(ctx, "catalog")
			logger.Warn().Err(err).Str("event", "catalog.stale").Time("loaded_at", cur.LoadedAt).Msg("serving stale channel index")
			return cur, nil
		}
	}
	return nil, err
}

// annotate fills the language or country a sub-playlist implies into records
// that lack one. Subdivision and city codes carry the country as their
// prefix ("in-ka", "frpar01").
func annotate(records []models.ChannelRecord, m *models.PlaylistMatch) []models.ChannelRecord {
	code := strings.ToLower(m.Code)
	if m.Type != models.MatchLanguage {
		cc := code
		if before, _, found := strings.Cut(code, "-"); found {
			cc = before
		} else if len(cc) > 2 {
			cc = cc[:2]
		}
		code = lettersOnly(cc)
	}
	for i := range records {
		if m.Type == models.MatchLanguage && records[i].Language == "" {
			records[i].Language = code
		}
		if m.Type != models.MatchLanguage && records[i].Country == "" {
			records[i].Country = code
		}
	}
	return records
}

func lettersOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= 'a' && r <= 'z' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func paginate(records []models.ChannelRecord, page, limit int) []models.ChannelRecord {
	start := (page - 1) * limit
	if start >= len(records) {
		return nil
	}
	return records[start:min(start+limit, len(records))]
}

func containsFold(s, lowerSub string) bool {
	return s != "" && strings.Contains(strings.ToLower(s), lowerSub)
}
