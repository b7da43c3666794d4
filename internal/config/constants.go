package config

import "time"

// Application constants
const (
	AppName = "poscope"

	// EnvPrefix namespaces every environment variable, e.g. POSCOPE_SERVER_PORT
	EnvPrefix = "POSCOPE"

	DefaultPort           = 8080
	DefaultRequestTimeout = 2 * time.Minute

	// Rate limiting
	DefaultRateLimit = 20 // requests per second
	DefaultBurstSize = 40

	// Uploads are held in memory for the duration of a request
	DefaultMaxUploadBytes = 64 << 20

	// Sessions
	DefaultSessionTTL  = 4 * time.Hour
	DefaultMaxSessions = 64
	DefaultMemoEntries = 128

	// Register account codes exported by the POS service
	AccountWest = "ub396203"
	AccountEast = "ub396207"

	// Calendar info markers
	DefaultHolidayMarker  = "Holiday"
	DefaultReplacedMarker = "Replaced"

	// DefaultLastWeek is the week flagged as the last week of every term
	// unless a per-term override is configured
	DefaultLastWeek = 15

	DefaultValidationRatio = 0.2

	// Log settings
	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)
