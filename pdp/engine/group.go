package engine

import (
	"context"
	"fmt"
	"net/netip"
	"strings"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/authorizer/logging"
	"github.com/dev-mohitbeniwal/echo/authorizer/model"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/geo"
	pdp_model "github.com/dev-mohitbeniwal/echo/authorizer/pdp/model"
)

// GroupLookup finds a subject's groups when the token carries none.
type GroupLookup interface {
	LookupGroups(ctx context.Context, subject string) ([]string, error)
}

// GroupEngine grants access by the first token group that has a rule in the policy
// table, short-circuiting to Deny on the first violated constraint.
type GroupEngine struct {
	policy         model.GroupPolicy
	geo            geo.Resolver
	groups         GroupLookup
	utcOffsetHours int
}

func NewGroupEngine(policy model.GroupPolicy, resolver geo.Resolver, groups GroupLookup, utcOffsetHours int) *GroupEngine {
	return &GroupEngine{policy: policy, geo: resolver, groups: groups, utcOffsetHours: utcOffsetHours}
}

func (e *GroupEngine) Name() string { return EngineGroup }

func (e *GroupEngine) NeedsProfile() bool { return false }

func (e *GroupEngine) Evaluate(ctx context.Context, in Input) pdp_model.Decision {
	groups := e.groupsFor(ctx, in.Identity)
	if len(groups) == 0 {
		return e.deny(pdp_model.ReasonNoGroups, "No valid groups found", nil)
	}

	for _, group := range groups {
		rule, ok := e.policy[group]
		if !ok {
			continue
		}
		d := e.evaluateRule(ctx, &rule, in.Request)
		d.Attributes = map[string]string{"group": rule.Group}
		return d
	}

	return e.deny(pdp_model.ReasonNoMatchingGroup,
		fmt.Sprintf("User not in any authorized group. Current groups: %s", strings.Join(groups, ",")), nil)
}

func (e *GroupEngine) groupsFor(ctx context.Context, identity *model.IdentityClaims) []string {
	if identity == nil {
		return nil
	}
	if len(identity.Groups) > 0 || e.groups == nil || identity.Subject == "" {
		return identity.Groups
	}
	groups, err := e.groups.LookupGroups(ctx, identity.Subject)
	if err != nil {
		logger.Warn("Group lookup failed", zap.String("subject", identity.Subject), zap.Error(err))
		return nil
	}
	logger.Debug("Groups resolved from directory", zap.String("subject", identity.Subject), zap.Strings("groups", groups))
	return groups
}

func (e *GroupEngine) evaluateRule(ctx context.Context, rule *model.PolicyRule, req pdp_model.RequestContext) pdp_model.Decision {
	var checks []pdp_model.CheckResult

	// Evaluate hours
	hour := OffsetTime(req.InvocationTime, e.utcOffsetHours).Hour()
	if !rule.Hours.Contains(hour) {
		checks = append(checks, pdp_model.CheckResult{Name: "hours", Detail: fmt.Sprintf("hour %d", hour)})
		return e.deny(pdp_model.ReasonOutsideAllowedHours,
			fmt.Sprintf("Access denied for %s group: outside allowed hours. Current hour: %d", rule.Group, hour), checks)
	}
	checks = append(checks, pdp_model.CheckResult{Name: "hours", Passed: true, Detail: fmt.Sprintf("hour %d", hour)})

	// Evaluate IP whitelist
	whitelisted := false
	if len(rule.IPWhitelist) > 0 {
		addr, err := netip.ParseAddr(strings.TrimSpace(req.SourceIP))
		if err != nil || !rule.Whitelisted(addr) {
			checks = append(checks, pdp_model.CheckResult{Name: "ip_whitelist", Detail: req.SourceIP})
			return e.deny(pdp_model.ReasonIPNotWhitelisted,
				fmt.Sprintf("IP %s not in whitelist for %s group", req.SourceIP, rule.Group), checks)
		}
		whitelisted = true
		checks = append(checks, pdp_model.CheckResult{Name: "ip_whitelist", Passed: true, Detail: req.SourceIP})
	}

	// Evaluate geography, skipped for whitelisted addresses
	country := ""
	if !whitelisted && rule.RestrictsCountry() {
		country = e.geo.ResolveCountry(ctx, req.SourceIP)
		if !rule.AllowsCountry(country) {
			checks = append(checks, pdp_model.CheckResult{Name: "geography", Detail: country})
			d := e.deny(pdp_model.ReasonCountryNotAllowed,
				fmt.Sprintf("Geographic access denied from %s. Allowed countries: %s", country, strings.Join(rule.Countries, ",")), checks)
			d.Country = country
			return d
		}
		checks = append(checks, pdp_model.CheckResult{Name: "geography", Passed: true, Detail: country})
	}

	logger.Info("User authorized by group", zap.String("group", rule.Group), zap.String("description", rule.Description))
	return pdp_model.Decision{
		Verdict:    pdp_model.VerdictAllow,
		ReasonCode: pdp_model.ReasonAllow,
		Message:    fmt.Sprintf("Access granted by %s group - %s", rule.Group, rule.Description),
		Engine:     EngineGroup,
		Country:    country,
		Checks:     checks,
	}
}

func (e *GroupEngine) deny(reason, message string, checks []pdp_model.CheckResult) pdp_model.Decision {
	logger.Info("Group policy denied access", zap.String("reason", reason), zap.String("message", message))
	d := pdp_model.Deny(reason, message)
	d.Engine = EngineGroup
	d.Checks = checks
	return d
}
