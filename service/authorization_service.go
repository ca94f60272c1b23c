// authorizer/service/authorization_service.go
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/echo/authorizer/audit"
	authz_errors "github.com/dev-mohitbeniwal/echo/authorizer/errors"
	logger "github.com/dev-mohitbeniwal/echo/authorizer/logging"
	"github.com/dev-mohitbeniwal/echo/authorizer/model"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/encoder"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/engine"
	pdp_model "github.com/dev-mohitbeniwal/echo/authorizer/pdp/model"
	"github.com/dev-mohitbeniwal/echo/authorizer/util"
)

const engineNone = "none"

type IAuthorizationService interface {
	Authorize(ctx context.Context, event pdp_model.InvocationEvent) events.APIGatewayCustomAuthorizerResponse
}

type CredentialExtractor interface {
	Extract(event pdp_model.InvocationEvent) pdp_model.Credentials
}

type TokenDecoder interface {
	Decode(ctx context.Context, raw string, now time.Time) (*model.IdentityClaims, error)
}

type ProfileResolver interface {
	Resolve(ctx context.Context, username string) (*model.SecurityProfile, error)
}

// DecisionRecorder is the part of metrics.Metrics the service reports to.
type DecisionRecorder interface {
	RecordDecision(engine, verdict, reason string, durationSeconds float64)
	RecordRiskScore(score float64)
	RecordDirectoryError(reason string)
}

// AuthorizationService runs Extractor -> Decoder -> Resolver -> Evaluator -> Encoder for
// one invocation. It never returns an error: every failure becomes a Deny verdict.
type AuthorizationService struct {
	extractor CredentialExtractor
	decoder   TokenDecoder
	resolver  ProfileResolver
	evaluator engine.Evaluator
	encoder   *encoder.Encoder

	metrics        DecisionRecorder
	eventBus       *util.EventBus
	allowPreflight bool
	now            func() time.Time
}

type Option func(*AuthorizationService)

func WithMetrics(m DecisionRecorder) Option {
	return func(s *AuthorizationService) { s.metrics = m }
}

// WithEventBus publishes an audit.DecisionLog for every verdict.
func WithEventBus(bus *util.EventBus) Option {
	return func(s *AuthorizationService) { s.eventBus = bus }
}

// WithPreflight lets OPTIONS requests through without credentials.
func WithPreflight(allow bool) Option {
	return func(s *AuthorizationService) { s.allowPreflight = allow }
}

func WithClock(now func() time.Time) Option {
	return func(s *AuthorizationService) { s.now = now }
}

func NewAuthorizationService(
	extractor CredentialExtractor,
	decoder TokenDecoder,
	resolver ProfileResolver,
	evaluator engine.Evaluator,
	enc *encoder.Encoder,
	opts ...Option,
) *AuthorizationService {
	s := &AuthorizationService{
		extractor: extractor,
		decoder:   decoder,
		resolver:  resolver,
		evaluator: evaluator,
		encoder:   enc,
		now:       time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Authorize decides one invocation and renders the verdict for event.MethodArn.
// A panic anywhere below, recording and encoding included, renders a Deny.
func (s *AuthorizationService) Authorize(ctx context.Context, event pdp_model.InvocationEvent) (resp events.APIGatewayCustomAuthorizerResponse) {
	start := s.now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Authorization panicked outside evaluation",
				zap.Any("panic", r),
				zap.String("resource", event.MethodArn),
				zap.Stack("stack"))
			resp = s.encoder.Encode(internalError(), event.MethodArn, encoder.Subject{}, s.now().Sub(start))
		}
	}()

	if s.allowPreflight && strings.EqualFold(event.HTTPMethod, "OPTIONS") {
		logger.Debug("CORS preflight allowed", zap.String("resource", event.MethodArn))
		return s.encoder.Preflight(event.MethodArn)
	}

	decision, subject, creds := s.decide(ctx, event, start)
	elapsed := s.now().Sub(start)

	s.record(ctx, event, decision, subject, creds, start, elapsed)
	return s.encoder.Encode(decision, event.MethodArn, subject, elapsed)
}

// HandleEvent is the lambda.Start entry point.
func (s *AuthorizationService) HandleEvent(ctx context.Context, event pdp_model.InvocationEvent) (events.APIGatewayCustomAuthorizerResponse, error) {
	return s.Authorize(ctx, event), nil
}

func (s *AuthorizationService) decide(ctx context.Context, event pdp_model.InvocationEvent, now time.Time) (d pdp_model.Decision, subject encoder.Subject, creds pdp_model.Credentials) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Authorization pipeline panicked",
				zap.Any("panic", r),
				zap.String("resource", event.MethodArn),
				zap.Stack("stack"))
			d = internalError()
		}
	}()

	creds = s.extractor.Extract(event)

	identity, err := s.decoder.Decode(ctx, creds.Token, now)
	if err != nil {
		return tokenDenial(err), subject, creds
	}
	subject.Identity = identity

	in := engine.Input{
		Identity: identity,
		Request: pdp_model.RequestContext{
			SourceIP:       creds.SourceIP,
			InvocationTime: now,
			ResourceARN:    event.MethodArn,
			RequestID:      creds.RequestID,
		},
	}

	if s.evaluator.NeedsProfile() {
		profile, err := s.resolver.Resolve(ctx, identity.Username)
		if err != nil {
			return s.profileDenial(err), subject, creds
		}
		subject.Profile = profile
		in.Profile = profile
	}

	return s.evaluator.Evaluate(ctx, in), subject, creds
}

func tokenDenial(err error) pdp_model.Decision {
	switch {
	case errors.Is(err, authz_errors.ErrTokenMissing):
		return pdp_model.Deny(pdp_model.ReasonTokenMissing, "Authorization token missing")
	case errors.Is(err, authz_errors.ErrTokenExpired):
		return pdp_model.Deny(pdp_model.ReasonInvalidJWT, "Token expired")
	case errors.Is(err, authz_errors.ErrTokenMalformed), errors.Is(err, authz_errors.ErrTokenSignature):
		logger.Info("Rejected token", zap.Error(err))
		return pdp_model.Deny(pdp_model.ReasonInvalidJWT, "Invalid token")
	default:
		logger.Error("Unexpected token decoding failure", zap.Error(err))
		return internalError()
	}
}

func internalError() pdp_model.Decision {
	return pdp_model.Deny(pdp_model.ReasonInternalError, "Internal authorization error")
}

func (s *AuthorizationService) profileDenial(err error) pdp_model.Decision {
	if errors.Is(err, authz_errors.ErrProfileNotFound) {
		if errors.Is(err, context.DeadlineExceeded) {
			s.recordDirectoryError("timeout")
		}
		return pdp_model.Deny(pdp_model.ReasonNoUserProfile, "User profile not found")
	}
	s.recordDirectoryError("unavailable")
	return pdp_model.Deny(pdp_model.ReasonDirectoryError, "Profile directory unavailable")
}

func (s *AuthorizationService) recordDirectoryError(reason string) {
	if s.metrics != nil {
		s.metrics.RecordDirectoryError(reason)
	}
}

func (s *AuthorizationService) record(ctx context.Context, event pdp_model.InvocationEvent, d pdp_model.Decision, subject encoder.Subject, creds pdp_model.Credentials, start time.Time, elapsed time.Duration) {
	entry := audit.DecisionLog{
		Timestamp:      start.UTC(),
		RequestID:      creds.RequestID,
		Resource:       event.MethodArn,
		SourceIP:       creds.SourceIP,
		Country:        d.Country,
		Engine:         d.Engine,
		Verdict:        string(d.Verdict),
		ReasonCode:     d.ReasonCode,
		Message:        d.Message,
		RiskScore:      d.RiskScore,
		ResponseTimeMs: elapsed.Milliseconds(),
		Checks:         d.Checks,
	}
	if subject.Identity != nil {
		entry.Username = subject.Identity.Username
		entry.Subject = subject.Identity.Subject
	}

	logger.Info("Authorization decision",
		zap.String("username", entry.Username),
		zap.String("verdict", entry.Verdict),
		zap.String("reason", entry.ReasonCode),
		zap.Float64("riskScore", entry.RiskScore),
		zap.Int64("responseTimeMs", entry.ResponseTimeMs),
		zap.String("sourceIP", entry.SourceIP),
		zap.String("country", entry.Country),
		zap.String("requestID", entry.RequestID))

	if s.metrics != nil {
		engineName := d.Engine
		if engineName == "" {
			engineName = engineNone
		}
		s.metrics.RecordDecision(engineName, entry.Verdict, entry.ReasonCode, elapsed.Seconds())
		if scored(d) {
			s.metrics.RecordRiskScore(d.RiskScore)
		}
	}

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, util.EventDecisionRecorded, entry)
	}
}

// scored reports whether d came out of risk scoring rather than an early gate.
func scored(d pdp_model.Decision) bool {
	if d.Engine != engine.EngineRisk {
		return false
	}
	switch d.ReasonCode {
	case pdp_model.ReasonAllow, pdp_model.ReasonMFARequired, pdp_model.ReasonDeny:
		return true
	}
	return false
}
