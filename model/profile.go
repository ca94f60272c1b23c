// authorizer/model/profile.go
package model

import "strings"

const (
	UserStatusConfirmed = "CONFIRMED"

	RiskToleranceLow    = "low"
	RiskToleranceMedium = "medium"
	RiskToleranceHigh   = "high"

	// AnyCountry in AuthorizedCountries disables geo-fencing for the profile.
	AnyCountry     = "*"
	UnknownCountry = "UNKNOWN"
)

// SecurityProfile carries the attributes the risk engine scores a request against.
type SecurityProfile struct {
	Username            string   `json:"username" validate:"required"`
	Email               string   `json:"email,omitempty" validate:"omitempty,email"`
	Role                string   `json:"role" validate:"required"`
	Department          string   `json:"department,omitempty"`
	CountryCode         string   `json:"country_code,omitempty"`
	Timezone            string   `json:"timezone,omitempty"`
	Region              string   `json:"region,omitempty"`
	BusinessStart       string   `json:"business_start" validate:"required,clock"`
	BusinessEnd         string   `json:"business_end" validate:"required,clock"`
	AuthorizedCountries []string `json:"authorized_countries" validate:"required,min=1"`
	RiskTolerance       string   `json:"risk_tolerance" validate:"required,oneof=low medium high"`
	UserStatus          string   `json:"user_status"`
	Enabled             bool     `json:"enabled"`

	// ContinuousOperation marks a 24x7 profile: exempt from the weekend gate, not from hour checks.
	ContinuousOperation bool `json:"continuous_operation,omitempty"`
	KnownDevice         bool `json:"known_device,omitempty"`
}

// Active reports whether the directory considers the account usable.
func (p *SecurityProfile) Active() bool {
	return p.Enabled && p.UserStatus == UserStatusConfirmed
}

// AuthorizesCountry reports whether country is inside the profile's geo-fence.
func (p *SecurityProfile) AuthorizesCountry(country string) bool {
	for _, c := range p.AuthorizedCountries {
		if c == AnyCountry || strings.EqualFold(c, country) {
			return true
		}
	}
	return false
}
