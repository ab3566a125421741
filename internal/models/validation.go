package models

import "time"

// ValidationResult is the outcome of probing one stream URL.
type ValidationResult struct {
	Working       bool      `json:"working"`
	HLSCompatible bool      `json:"hls_compatible"`
	CheckedAt     time.Time `json:"checked_at"`
	Detail        string    `json:"detail,omitempty"`
}

// Attach returns the view of ch annotated with r. A nil r leaves the
// validation fields unset so clients can tell "unknown" from "down".
func Attach(ch ChannelRecord, r *ValidationResult) ChannelView {
	v := ChannelView{ChannelRecord: ch}
	if r == nil {
		return v
	}
	working, hls := r.Working, r.HLSCompatible
	checked := r.CheckedAt.UTC().Format(time.RFC3339)
	v.Working = &working
	v.HLSCompatible = &hls
	v.LastChecked = &checked
	if r.Detail != "" {
		detail := r.Detail
		v.CheckError = &detail
	}
	return v
}
