package domain

import "time"

// MaxAllowedOrigins caps how many origins the gate will auto-register
// for a single key.
const MaxAllowedOrigins = 5

// OriginWildcard in an allowed-origin set admits any origin.
const OriginWildcard = "*"

// APIKey is the widget credential embedded in a tenant's site. The key
// itself is publishable (it ships in page source), so it is stored as-is
// and gated by the allowed-origin set rather than secrecy.
type APIKey struct {
	ID             string
	OrgID          string
	Key            string
	AllowedOrigins []string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// AllowsOrigin reports whether origin is admitted verbatim or via the
// wildcard sentinel.
func (k APIKey) AllowsOrigin(origin string) bool {
	for _, o := range k.AllowedOrigins {
		if o == OriginWildcard || o == origin {
			return true
		}
	}
	return false
}
