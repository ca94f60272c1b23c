// authorizer/errors/authz_errors.go
package errors

import "errors"

var (
	ErrTokenMissing   = errors.New("token missing")
	ErrTokenMalformed = errors.New("token malformed")
	ErrTokenExpired   = errors.New("token expired")
	ErrTokenSignature = errors.New("token signature invalid")

	ErrProfileNotFound      = errors.New("user profile not found")
	ErrDirectoryUnavailable = errors.New("profile directory unavailable")

	ErrGeoLookupFailed = errors.New("geo lookup failed")

	ErrEvaluation          = errors.New("policy evaluation failed")
	ErrInvalidPolicyConfig = errors.New("invalid policy configuration")
	ErrNoGroups            = errors.New("no groups for subject")

	ErrAuditUnavailable = errors.New("audit store unavailable")
	ErrInvalidQuery     = errors.New("invalid audit query")
)
