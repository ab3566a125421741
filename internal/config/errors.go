package config

import "errors"

var (
	ErrInvalidPort        = errors.New("config: server_port must be 1-65535")
	ErrInvalidDuration    = errors.New("config: durations must be positive")
	ErrInvalidNumber      = errors.New("config: not a number")
	ErrInvalidConcurrency = errors.New("config: validate_concurrency must be 1-200")
	ErrInvalidPageSize    = errors.New("config: max_page_size must be 1-500")
	ErrInvalidURL         = errors.New("config: index URLs must be absolute http(s) URLs")
)
