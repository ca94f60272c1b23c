package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dev-mohitbeniwal/echo/authorizer/config"
	logger "github.com/dev-mohitbeniwal/echo/authorizer/logging"
	"github.com/dev-mohitbeniwal/echo/authorizer/model"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/geo"
	pdp_model "github.com/dev-mohitbeniwal/echo/authorizer/pdp/model"
	helper_util "github.com/dev-mohitbeniwal/echo/authorizer/util/helper"
)

// Risk added by each failed check
const (
	RiskUserStatus    = 0.5
	RiskBusinessHours = 0.2
	RiskGeography     = 0.4
	RiskPublicIP      = 0.1
	RiskMalformedIP   = 0.3
	RiskUnknownIP     = 0.2

	// Applied when only the hours check failed
	partialMitigation = 0.9
)

// Check names reported on decisions
const (
	CheckUserStatus    = "user_status"
	CheckBusinessHours = "business_hours"
	CheckGeography     = "geography"
	CheckIPType        = "ip_type"
	CheckWeekday       = "weekday"
)

// RiskEngine scores a request against the caller's security profile and maps the score
// to a verdict through role thresholds.
type RiskEngine struct {
	cfg config.RiskConfiguration
	geo geo.Resolver
}

func NewRiskEngine(cfg config.RiskConfiguration, resolver geo.Resolver) *RiskEngine {
	return &RiskEngine{cfg: cfg, geo: resolver}
}

func (e *RiskEngine) Name() string { return EngineRisk }

func (e *RiskEngine) NeedsProfile() bool { return true }

func (e *RiskEngine) Evaluate(ctx context.Context, in Input) pdp_model.Decision {
	profile := in.Profile
	if profile == nil {
		d := pdp_model.Deny(pdp_model.ReasonNoUserProfile, "No security profile for user")
		d.Engine = EngineRisk
		return d
	}

	local := LocalTime(in.Request.InvocationTime, profile.Timezone)
	if isWeekend(local) && !profile.ContinuousOperation {
		logger.Info("Weekend access denied",
			zap.String("username", profile.Username),
			zap.String("weekday", local.Weekday().String()))
		d := pdp_model.Deny(pdp_model.ReasonWeekendAccess,
			fmt.Sprintf("Weekend access not permitted (%s)", local.Weekday()))
		d.Engine = EngineRisk
		d.Checks = []pdp_model.CheckResult{{Name: CheckWeekday, Passed: false, Detail: local.Weekday().String()}}
		return d
	}

	var checks []pdp_model.CheckResult
	score := 0.0
	add := func(c pdp_model.CheckResult) {
		checks = append(checks, c)
		score += c.Risk
	}

	add(e.checkStatus(profile))
	hours := e.checkHours(profile, local)
	add(hours)
	country := e.geo.ResolveCountry(ctx, in.Request.SourceIP)
	geography := e.checkGeography(profile, country)
	add(geography)
	add(e.checkIPType(in.Request.SourceIP))

	score = e.adjust(score, profile, !hours.Passed, geography.Passed, country)

	d := e.decide(score, profile.Role)
	d.Engine = EngineRisk
	d.Country = country
	d.Checks = checks

	logger.Debug("Risk evaluation complete",
		zap.String("username", profile.Username),
		zap.Float64("risk_score", d.RiskScore),
		zap.String("verdict", string(d.Verdict)),
		zap.String("country", country))
	return d
}

func (e *RiskEngine) checkStatus(p *model.SecurityProfile) pdp_model.CheckResult {
	c := pdp_model.CheckResult{Name: CheckUserStatus, Passed: p.Active(), Detail: p.UserStatus}
	if !c.Passed {
		c.Risk = RiskUserStatus
	}
	return c
}

// checkHours is inclusive at both ends, at minute granularity, in the profile's local time.
func (e *RiskEngine) checkHours(p *model.SecurityProfile, local time.Time) pdp_model.CheckResult {
	now := helper_util.MinuteOfDay(local)
	start, errStart := helper_util.ParseClock(p.BusinessStart)
	end, errEnd := helper_util.ParseClock(p.BusinessEnd)

	c := pdp_model.CheckResult{
		Name:   CheckBusinessHours,
		Passed: errStart == nil && errEnd == nil && now >= start && now <= end,
		Detail: fmt.Sprintf("%02d:%02d in %s-%s", now/60, now%60, p.BusinessStart, p.BusinessEnd),
	}
	if !c.Passed {
		c.Risk = RiskBusinessHours
	}
	return c
}

func (e *RiskEngine) checkGeography(p *model.SecurityProfile, country string) pdp_model.CheckResult {
	c := pdp_model.CheckResult{Name: CheckGeography, Passed: p.AuthorizesCountry(country), Detail: country}
	if !c.Passed {
		c.Risk = RiskGeography
	}
	return c
}

func (e *RiskEngine) checkIPType(ip string) pdp_model.CheckResult {
	class := geo.ClassifyIP(ip)
	c := pdp_model.CheckResult{Name: CheckIPType, Passed: class == geo.IPPrivate, Detail: string(class)}
	switch class {
	case geo.IPPublic:
		c.Risk = RiskPublicIP
	case geo.IPMalformed:
		c.Risk = RiskMalformedIP
	case geo.IPUnknown:
		c.Risk = RiskUnknownIP
	}
	return c
}

// adjust applies the multiplicative adjustments, in order, to the additive sum.
func (e *RiskEngine) adjust(score float64, p *model.SecurityProfile, hoursFailed, geoPassed bool, country string) float64 {
	if m, ok := e.cfg.Tolerance[strings.ToLower(p.RiskTolerance)]; ok {
		score *= m
	}
	if m, ok := e.cfg.Departments[strings.ToLower(p.Department)]; ok {
		score *= m
	}
	if hoursFailed && geoPassed {
		score *= partialMitigation
	}
	if country == model.UnknownCountry && p.KnownDevice {
		score -= e.cfg.KnownDeviceCredit
	}
	if score < 0 {
		score = 0
	}
	return score
}

func (e *RiskEngine) decide(score float64, role string) pdp_model.Decision {
	th := e.cfg.Thresholds.ForRole(role)
	d := pdp_model.Decision{RiskScore: pdp_model.RoundScore(score)}

	switch {
	case score <= th.Allow:
		d.Verdict = pdp_model.VerdictAllow
		d.ReasonCode = pdp_model.ReasonAllow
		d.Message = fmt.Sprintf("Risk score %.3f within allow threshold %.2f", score, th.Allow)
	case score <= th.MFA:
		d.Verdict = pdp_model.VerdictMFARequired
		d.ReasonCode = pdp_model.ReasonMFARequired
		d.Message = fmt.Sprintf("Risk score %.3f requires a second factor", score)
	case score <= th.MFA+th.Extension:
		d.Verdict = pdp_model.VerdictMFARequired
		d.ReasonCode = pdp_model.ReasonMFARequired
		d.Message = fmt.Sprintf("Risk score %.3f in extended MFA band", score)
	default:
		d.Verdict = pdp_model.VerdictDeny
		d.ReasonCode = pdp_model.ReasonDeny
		d.Message = fmt.Sprintf("Risk score %.3f exceeds threshold %.2f", score, th.MFA+th.Extension)
	}
	return d
}
