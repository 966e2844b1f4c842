package supabase

import (
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceRole is the role claim of a Supabase service key.
const ServiceRole = "service_role"

// KeyInfo describes the claims of a legacy JWT API key.
type KeyInfo struct {
	JWT       bool
	Role      string
	ExpiresAt time.Time
}

// InspectKey decodes the claims of a JWT-format API key without verifying
// its signature. Opaque keys yield a zero KeyInfo.
func InspectKey(key string) KeyInfo {
	if strings.Count(key, ".") != 2 {
		return KeyInfo{}
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(key, claims); err != nil {
		return KeyInfo{}
	}

	info := KeyInfo{JWT: true}
	if role, ok := claims["role"].(string); ok {
		info.Role = role
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		info.ExpiresAt = exp.Time
	}
	return info
}

// Check returns a problem with the key, or nil when it looks usable for
// writes at time now.
func (k KeyInfo) Check(now time.Time) error {
	if !k.JWT {
		return nil
	}
	if k.Role != ServiceRole {
		return fmt.Errorf("key role is %q, not %q; writes may be refused by row level security", k.Role, ServiceRole)
	}
	if !k.ExpiresAt.IsZero() && now.After(k.ExpiresAt) {
		return fmt.Errorf("key expired at %s", k.ExpiresAt.Format(time.RFC3339))
	}
	return nil
}
