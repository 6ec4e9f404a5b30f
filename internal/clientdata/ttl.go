package clientdata

import "time"

// TTL constants for cached API responses.
// These are added to the current time when storing to calculate expires_at.
const (
	TTLCompanyNews = 5 * time.Minute
	TTLGeneralNews = 5 * time.Minute
)
