package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
)

// Startup connectivity retry (transient store outage at boot)
const (
	DBConnectAttempts = 10
	DBConnectInterval = 3 * time.Second
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 30 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerWriteTimeout    = 30 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Database ping timeout for health checks
const DBPingTimeout = 5 * time.Second

// Outbound webhook request timeout
const WebhookTimeout = 5 * time.Second

// Stats response cache TTL (when Redis is configured)
const StatsCacheTTL = 30 * time.Second

// Active-session watchdog
const (
	WatchdogInterval  = time.Hour
	WatchdogThreshold = 16 * time.Hour
)

// The morning wake-up anchoring "today" must fall inside this UTC window.
const (
	WakeWindowStartHour = 4
	WakeWindowEndHour   = 12
)

// Sessions starting before this UTC hour count as night regardless of the
// configured night start hour.
const MorningHour = 7
