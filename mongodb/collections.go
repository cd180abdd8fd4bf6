package mongodb

const (
	SessionsCollection   = "sessions"    // Relay sessions keyed by state
	RateLimitsCollection = "rate_limits" // Fixed-window counters keyed by identifier:action
)
