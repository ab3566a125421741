package models

// ChannelRecord is one playable stream reference parsed from an M3U manifest.
// Records are immutable once parsed; a refresh replaces the whole set.
type ChannelRecord struct {
	ID       string         `json:"id,omitempty"`
	Name     string         `json:"name"`
	TvgID    string         `json:"tvg_id,omitempty"`
	TvgName  string         `json:"tvg_name,omitempty"`
	Logo     string         `json:"tvg_logo,omitempty"`
	Group    string         `json:"group,omitempty"`
	Language string         `json:"language,omitempty"`
	Country  string         `json:"country,omitempty"`
	URL      string         `json:"url"`
	Headers  *StreamHeaders `json:"headers,omitempty"`
}

// ChannelView is a ChannelRecord joined with its cached validation result, if any.
type ChannelView struct {
	ChannelRecord
	Working       *bool   `json:"working"`
	HLSCompatible *bool   `json:"hls_compatible"`
	LastChecked   *string `json:"last_checked"`
	CheckError    *string `json:"check_error"`
}
