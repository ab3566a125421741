package models

import "time"

// JobState is a progress snapshot of a bulk validation run.
type JobState struct {
	JobID            string     `json:"job_id,omitempty"`
	Running          bool       `json:"running"`
	StartedAt        *time.Time `json:"started_at"`
	FinishedAt       *time.Time `json:"finished_at"`
	Total            int        `json:"total"`
	ValidatedOKCount int        `json:"validated"`
	ErrorCount       int        `json:"errors"`
	ProgressPercent  float64    `json:"progress_percent"`
	LastError        string     `json:"last_error,omitempty"`
}
