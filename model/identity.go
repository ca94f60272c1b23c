// authorizer/model/identity.go
package model

import "time"

// IdentityClaims is the canonical identity derived from a bearer credential.
type IdentityClaims struct {
	Subject   string   `json:"sub"`
	Username  string   `json:"username"`
	Email     string   `json:"email,omitempty"`
	ExpiresAt int64    `json:"exp,omitempty"` // unix seconds, 0 when the token carries no expiry
	Groups    []string `json:"groups,omitempty"`
	Demo      bool     `json:"demo,omitempty"`
}

// ExpiredAt reports whether the identity carries an expiry that lies before now.
func (c *IdentityClaims) ExpiredAt(now time.Time) bool {
	return c.ExpiresAt > 0 && c.ExpiresAt < now.Unix()
}
