package model

import "math"

type Verdict string

const (
	VerdictAllow       Verdict = "Allow"
	VerdictDeny        Verdict = "Deny"
	VerdictMFARequired Verdict = "MFA_required"
)

// Reason codes attached to every verdict
const (
	ReasonAllow               = "ALLOW"
	ReasonMFARequired         = "MFA_REQUIRED"
	ReasonDeny                = "DENY"
	ReasonTokenMissing        = "TOKEN_MISSING"
	ReasonInvalidJWT          = "INVALID_JWT"
	ReasonNoUserProfile       = "NO_USER_PROFILE"
	ReasonDirectoryError      = "DIRECTORY_UNAVAILABLE"
	ReasonMaintenanceWindow   = "MAINTENANCE_WINDOW"
	ReasonWeekendAccess       = "WEEKEND_ACCESS"
	ReasonNoGroups            = "NO_GROUPS"
	ReasonNoMatchingGroup     = "NO_MATCHING_GROUP"
	ReasonOutsideAllowedHours = "OUTSIDE_ALLOWED_HOURS"
	ReasonIPNotWhitelisted    = "IP_NOT_WHITELISTED"
	ReasonCountryNotAllowed   = "COUNTRY_NOT_ALLOWED"
	ReasonCORSPreflight       = "CORS_PREFLIGHT"
	ReasonEvaluationError     = "EVALUATION_ERROR"
	ReasonInternalError       = "INTERNAL_ERROR"
)

// CheckResult records one signal the engine looked at.
type CheckResult struct {
	Name   string  `json:"name"`
	Passed bool    `json:"passed"`
	Risk   float64 `json:"risk"`
	Detail string  `json:"detail,omitempty"`
}

// Decision is computed per request and never cached.
type Decision struct {
	Verdict    Verdict           `json:"verdict"`
	RiskScore  float64           `json:"risk_score"`
	ReasonCode string            `json:"reason_code"`
	Message    string            `json:"message,omitempty"`
	Engine     string            `json:"engine,omitempty"`
	Country    string            `json:"country,omitempty"`
	Checks     []CheckResult     `json:"checks,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

func Deny(reason, message string) Decision {
	return Decision{Verdict: VerdictDeny, ReasonCode: reason, Message: message}
}

func (d Decision) Allowed() bool {
	return d.Verdict == VerdictAllow
}

// RoundScore rounds a risk score to three decimals.
func RoundScore(score float64) float64 {
	return math.Round(score*1000) / 1000
}
