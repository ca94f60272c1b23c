package encoder

import (
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"

	"github.com/dev-mohitbeniwal/echo/authorizer/model"
	pdp_model "github.com/dev-mohitbeniwal/echo/authorizer/pdp/model"
)

const (
	PolicyVersion = "2012-10-17"
	ActionInvoke  = "execute-api:Invoke"

	EffectAllow = "Allow"
	EffectDeny  = "Deny"

	PrincipalDenied    = "denied"
	PrincipalPreflight = "cors-preflight"
	mfaPrincipalSuffix = "_mfa_required"

	AuthStatusAuthorized  = "AUTHORIZED"
	AuthStatusMFARequired = "MFA_REQUIRED"
	AuthStatusDenied      = "DENIED"

	DefaultMFAURL = "/auth/mfa"
)

// Subject is who the decision was made for. Either field may be nil on early denials.
type Subject struct {
	Identity *model.IdentityClaims
	Profile  *model.SecurityProfile
}

func (s Subject) username() string {
	switch {
	case s.Profile != nil && s.Profile.Username != "":
		return s.Profile.Username
	case s.Identity != nil:
		return s.Identity.Username
	}
	return ""
}

// Encoder renders decisions as API Gateway authorizer responses. Context values are
// always strings.
type Encoder struct {
	service string
	mfaURL  string
	cors    map[string]string
	now     func() time.Time
}

type Option func(*Encoder)

// WithCORS attaches static CORS entries to every verdict context.
func WithCORS(entries map[string]string) Option {
	return func(e *Encoder) { e.cors = entries }
}

func WithMFAURL(url string) Option {
	return func(e *Encoder) { e.mfaURL = url }
}

func WithClock(now func() time.Time) Option {
	return func(e *Encoder) { e.now = now }
}

func NewEncoder(service string, opts ...Option) *Encoder {
	e := &Encoder{service: service, mfaURL: DefaultMFAURL, now: time.Now}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Encode renders d for resource. elapsed is reported as response_time_ms.
func (e *Encoder) Encode(d pdp_model.Decision, resource string, subject Subject, elapsed time.Duration) events.APIGatewayCustomAuthorizerResponse {
	switch d.Verdict {
	case pdp_model.VerdictAllow:
		return e.allow(d, resource, subject, elapsed)
	case pdp_model.VerdictMFARequired:
		return e.mfa(d, resource, subject)
	default:
		return e.deny(d, resource)
	}
}

// Preflight allows a CORS preflight without evaluating credentials.
func (e *Encoder) Preflight(resource string) events.APIGatewayCustomAuthorizerResponse {
	ctx := e.baseContext()
	ctx["auth_status"] = AuthStatusAuthorized
	ctx["reason"] = pdp_model.ReasonCORSPreflight
	return response(PrincipalPreflight, EffectAllow, resource, ctx)
}

func (e *Encoder) allow(d pdp_model.Decision, resource string, subject Subject, elapsed time.Duration) events.APIGatewayCustomAuthorizerResponse {
	username := subject.username()
	ctx := e.baseContext()
	ctx["username"] = username
	if p := subject.Profile; p != nil {
		ctx["email"] = p.Email
		ctx["region"] = p.Region
		ctx["role"] = p.Role
		ctx["department"] = p.Department
	} else if subject.Identity != nil {
		ctx["email"] = subject.Identity.Email
	}
	ctx["risk_score"] = formatScore(d.RiskScore)
	ctx["response_time_ms"] = strconv.FormatInt(elapsed.Milliseconds(), 10)
	ctx["auth_status"] = AuthStatusAuthorized
	ctx["reason"] = d.Message
	e.decorate(ctx, d)
	return response(username, EffectAllow, resource, ctx)
}

// mfa is a Deny statement: the gateway blocks the call and the client reads mfa_url.
func (e *Encoder) mfa(d pdp_model.Decision, resource string, subject Subject) events.APIGatewayCustomAuthorizerResponse {
	username := subject.username()
	ctx := e.baseContext()
	ctx["username"] = username
	ctx["auth_status"] = AuthStatusMFARequired
	ctx["risk_score"] = formatScore(d.RiskScore)
	ctx["reason"] = d.Message
	ctx["mfa_url"] = e.mfaURL
	e.decorate(ctx, d)
	return response(username+mfaPrincipalSuffix, EffectDeny, resource, ctx)
}

func (e *Encoder) deny(d pdp_model.Decision, resource string) events.APIGatewayCustomAuthorizerResponse {
	reason := d.ReasonCode
	if reason == "" {
		reason = pdp_model.ReasonDeny
	}
	ctx := e.baseContext()
	ctx["auth_status"] = AuthStatusDenied
	ctx["deny_reason"] = reason
	ctx["deny_message"] = d.Message
	return response(PrincipalDenied, EffectDeny, resource, ctx)
}

func (e *Encoder) baseContext() map[string]interface{} {
	ctx := make(map[string]interface{}, 16)
	for k, v := range e.cors {
		ctx[k] = v
	}
	if e.service != "" {
		ctx["service"] = e.service
	}
	ctx["timestamp"] = e.now().UTC().Format(time.RFC3339)
	return ctx
}

func (e *Encoder) decorate(ctx map[string]interface{}, d pdp_model.Decision) {
	if d.Engine != "" {
		ctx["engine"] = d.Engine
	}
	if d.Country != "" {
		ctx["country"] = d.Country
	}
	for k, v := range d.Attributes {
		if _, taken := ctx[k]; !taken {
			ctx[k] = v
		}
	}
}

func response(principal, effect, resource string, ctx map[string]interface{}) events.APIGatewayCustomAuthorizerResponse {
	return events.APIGatewayCustomAuthorizerResponse{
		PrincipalID: principal,
		PolicyDocument: events.APIGatewayCustomAuthorizerPolicy{
			Version: PolicyVersion,
			Statement: []events.IAMPolicyStatement{
				{
					Action:   []string{ActionInvoke},
					Effect:   effect,
					Resource: []string{resource},
				},
			},
		},
		Context: ctx,
	}
}

func formatScore(score float64) string {
	return strconv.FormatFloat(pdp_model.RoundScore(score), 'f', -1, 64)
}
