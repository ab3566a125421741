package models

import "time"

// Language is one entry of the language index.
type Language struct {
	Name        string `json:"name"`
	Channels    *int   `json:"channels,omitempty"`
	PlaylistURL string `json:"playlist_url,omitempty"`
	Code        string `json:"code,omitempty"`
}

// City is a playlist scoped to a city.
type City struct {
	Name        string `json:"name"`
	PlaylistURL string `json:"playlist_url,omitempty"`
	Code        string `json:"code,omitempty"`
}

// Subdivision is a playlist scoped to a country subdivision.
type Subdivision struct {
	Name        string `json:"name"`
	PlaylistURL string `json:"playlist_url,omitempty"`
	Code        string `json:"code,omitempty"`
	Cities      []City `json:"cities"`
}

// Country is one entry of the country index, with nested subdivisions and cities.
type Country struct {
	Name         string        `json:"name"`
	PlaylistURL  string        `json:"playlist_url,omitempty"`
	Code         string        `json:"code,omitempty"`
	Subdivisions []Subdivision `json:"subdivisions"`
	Cities       []City        `json:"cities"`
}

// PlaylistMatch is a taxonomy entry matched by a free-text query.
type PlaylistMatch struct {
	Type string `json:"type"`
	Code string `json:"code"`
	URL  string `json:"url"`
}

// Document is a persisted taxonomy snapshot.
type Document struct {
	UpdatedAt time.Time  `json:"updated_at"`
	Languages []Language `json:"languages,omitempty"`
	Countries []Country  `json:"countries,omitempty"`
}
