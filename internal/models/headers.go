package models

// StreamHeaders holds optional per-stream request hints (from EXTVLCOPT).
type StreamHeaders struct {
	Referrer   string `json:"referrer,omitempty"`
	UserAgent  string `json:"user_agent,omitempty"`
	HTTPOrigin string `json:"http_origin,omitempty"`
}

// Empty reports whether no hint is set.
func (h *StreamHeaders) Empty() bool {
	return h == nil || (h.Referrer == "" && h.UserAgent == "" && h.HTTPOrigin == "")
}
