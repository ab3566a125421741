// Package store persists taxonomy snapshots (the language and country indexes).
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/voyagen/lulutv/internal/models"
)

var (
	// ErrNotFound is returned by Load when no snapshot of that kind exists.
	ErrNotFound = errors.New("snapshot not found")
	// ErrUnknownKind is returned for a kind other than languages or countries.
	ErrUnknownKind = errors.New("unknown snapshot kind")
)

// Store loads and saves taxonomy snapshots by kind (models.KindLanguages, models.KindCountries).
type Store interface {
	Load(ctx context.Context, kind string) (*models.Document, error)
	Save(ctx context.Context, kind string, doc *models.Document) error
}

// record is the persisted shape: {"updated_at": ..., "items": [...]}.
type record struct {
	UpdatedAt string          `json:"updated_at"`
	Items     json.RawMessage `json:"items"`
}

// legacyTimeLayout matches timestamps written without a zone offset.
const legacyTimeLayout = "2006-01-02T15:04:05.999999"

func encode(kind string, doc *models.Document) ([]byte, error) {
	var items any
	switch kind {
	case models.KindLanguages:
		items = nonNil(doc.Languages)
	case models.KindCountries:
		items = nonNil(doc.Countries)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", kind, err)
	}
	return json.MarshalIndent(record{
		UpdatedAt: doc.UpdatedAt.UTC().Format(time.RFC3339Nano),
		Items:     raw,
	}, "", "  ")
}

func decode(kind string, data []byte) (*models.Document, error) {
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", kind, err)
	}
	doc := &models.Document{UpdatedAt: parseTime(rec.UpdatedAt)}
	if len(rec.Items) == 0 {
		return doc, nil
	}
	var err error
	switch kind {
	case models.KindLanguages:
		err = json.Unmarshal(rec.Items, &doc.Languages)
	case models.KindCountries:
		err = json.Unmarshal(rec.Items, &doc.Countries)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s items: %w", kind, err)
	}
	return doc, nil
}

func parseTime(s string) time.Time {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	if t, err := time.Parse(legacyTimeLayout, s); err == nil {
		return t
	}
	return time.Time{}
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
