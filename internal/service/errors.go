package service

import "errors"

var (
	// ErrJobRunning is returned by Start while a bulk validation is in progress,
	// here or on another replica sharing the same lock.
	ErrJobRunning = errors.New("validation already running")

	ErrLanguageNotFound    = errors.New("language not found")
	ErrCountryNotFound     = errors.New("country not found")
	ErrSubdivisionNotFound = errors.New("subdivision not found")
	ErrCityNotFound        = errors.New("city not found")
)
