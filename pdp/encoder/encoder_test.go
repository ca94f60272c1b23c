package encoder

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dev-mohitbeniwal/echo/authorizer/model"
	pdp_model "github.com/dev-mohitbeniwal/echo/authorizer/pdp/model"
)

const arn = "arn:aws:execute-api:us-east-1:123456789012:abc/prod/GET/orders"

func fixedClock() time.Time {
	return time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)
}

func subject() Subject {
	return Subject{
		Identity: &model.IdentityClaims{Username: "ana", Email: "ana@token.example"},
		Profile: &model.SecurityProfile{
			Username: "ana", Email: "ana@medisupply.com", Region: "us-east-1",
			Role: "admin", Department: "management",
		},
	}
}

func TestEncoder_Allow(t *testing.T) {
	e := NewEncoder("medisupply", WithClock(fixedClock), WithCORS(map[string]string{"Access-Control-Allow-Origin": "*"}))
	d := pdp_model.Decision{Verdict: pdp_model.VerdictAllow, RiskScore: 0.0724, ReasonCode: pdp_model.ReasonAllow,
		Message: "ok", Engine: "risk", Country: "US"}

	resp := e.Encode(d, arn, subject(), 42*time.Millisecond)

	assert.Equal(t, "ana", resp.PrincipalID)
	assert.Equal(t, PolicyVersion, resp.PolicyDocument.Version)
	require.Len(t, resp.PolicyDocument.Statement, 1)
	st := resp.PolicyDocument.Statement[0]
	assert.Equal(t, []string{ActionInvoke}, st.Action)
	assert.Equal(t, EffectAllow, st.Effect)
	assert.Equal(t, []string{arn}, st.Resource)

	assert.Equal(t, "ana@medisupply.com", resp.Context["email"])
	assert.Equal(t, "admin", resp.Context["role"])
	assert.Equal(t, "management", resp.Context["department"])
	assert.Equal(t, "us-east-1", resp.Context["region"])
	assert.Equal(t, "0.072", resp.Context["risk_score"])
	assert.Equal(t, "42", resp.Context["response_time_ms"])
	assert.Equal(t, AuthStatusAuthorized, resp.Context["auth_status"])
	assert.Equal(t, "ok", resp.Context["reason"])
	assert.Equal(t, "medisupply", resp.Context["service"])
	assert.Equal(t, "2024-03-04T10:00:00Z", resp.Context["timestamp"])
	assert.Equal(t, "*", resp.Context["Access-Control-Allow-Origin"])
	assert.Equal(t, "US", resp.Context["country"])

	for k, v := range resp.Context {
		assert.IsType(t, "", v, k)
	}
}

func TestEncoder_AllowWithoutProfile(t *testing.T) {
	e := NewEncoder("medisupply", WithClock(fixedClock))
	d := pdp_model.Decision{Verdict: pdp_model.VerdictAllow, Engine: "group", Attributes: map[string]string{"group": "ventas", "username": "spoof"}}

	resp := e.Encode(d, arn, Subject{Identity: &model.IdentityClaims{Username: "bob", Email: "bob@x.io"}}, 0)
	assert.Equal(t, "bob", resp.PrincipalID)
	assert.Equal(t, "bob", resp.Context["username"])
	assert.Equal(t, "bob@x.io", resp.Context["email"])
	assert.Equal(t, "ventas", resp.Context["group"])
	assert.Equal(t, "0", resp.Context["risk_score"])
}

func TestEncoder_MFA(t *testing.T) {
	e := NewEncoder("medisupply", WithClock(fixedClock))
	d := pdp_model.Decision{Verdict: pdp_model.VerdictMFARequired, RiskScore: 0.24, ReasonCode: pdp_model.ReasonMFARequired, Message: "second factor"}

	resp := e.Encode(d, arn, subject(), time.Millisecond)
	assert.Equal(t, "ana_mfa_required", resp.PrincipalID)
	assert.Equal(t, EffectDeny, resp.PolicyDocument.Statement[0].Effect)
	assert.Equal(t, AuthStatusMFARequired, resp.Context["auth_status"])
	assert.Equal(t, DefaultMFAURL, resp.Context["mfa_url"])
	assert.Equal(t, "0.24", resp.Context["risk_score"])
	assert.Equal(t, "second factor", resp.Context["reason"])
}

func TestEncoder_Deny(t *testing.T) {
	e := NewEncoder("medisupply", WithClock(fixedClock), WithCORS(map[string]string{"Access-Control-Allow-Methods": "GET"}))

	resp := e.Encode(pdp_model.Deny(pdp_model.ReasonInvalidJWT, "bad token"), arn, Subject{}, time.Millisecond)
	assert.Equal(t, PrincipalDenied, resp.PrincipalID)
	assert.Equal(t, EffectDeny, resp.PolicyDocument.Statement[0].Effect)
	assert.Equal(t, AuthStatusDenied, resp.Context["auth_status"])
	assert.Equal(t, pdp_model.ReasonInvalidJWT, resp.Context["deny_reason"])
	assert.Equal(t, "bad token", resp.Context["deny_message"])
	assert.Equal(t, "GET", resp.Context["Access-Control-Allow-Methods"])
	assert.NotContains(t, resp.Context, "username")

	t.Run("empty verdict is a deny", func(t *testing.T) {
		resp := e.Encode(pdp_model.Decision{}, arn, subject(), 0)
		assert.Equal(t, EffectDeny, resp.PolicyDocument.Statement[0].Effect)
		assert.Equal(t, pdp_model.ReasonDeny, resp.Context["deny_reason"])
	})
}

func TestEncoder_Preflight(t *testing.T) {
	resp := NewEncoder("medisupply", WithClock(fixedClock)).Preflight(arn)
	assert.Equal(t, PrincipalPreflight, resp.PrincipalID)
	assert.Equal(t, EffectAllow, resp.PolicyDocument.Statement[0].Effect)
	assert.Equal(t, pdp_model.ReasonCORSPreflight, resp.Context["reason"])
}
