package config

import "time"

// Default constants for run configuration.
const (
	DefaultLogLevel            = "info"
	DefaultJSONLog             = false
	DefaultHTTPTimeout         = 30 * time.Second
	DefaultNavTimeout          = 30 * time.Second
	DefaultDelayMin            = 4 * time.Second
	DefaultDelayMax            = 7 * time.Second
	DefaultChallengeTimeout    = 5 * time.Minute
	DefaultChallengePoll       = 5 * time.Second
	DefaultHeadless            = false
	DefaultRateLimitRPS        = 0.5
	DefaultRateLimitBurst      = 1
	DefaultRetryMaxAttempts    = 3
	DefaultRetryInitialBackoff = 30 * time.Second
	DefaultEmployeeMin         = 10
	DefaultEmployeeMax         = 200
)
