package engine

import (
	"context"
	"fmt"

	"github.com/dev-mohitbeniwal/echo/authorizer/config"
	"github.com/dev-mohitbeniwal/echo/authorizer/model"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/geo"
	pdp_model "github.com/dev-mohitbeniwal/echo/authorizer/pdp/model"
)

const (
	EngineRisk  = "risk"
	EngineGroup = "group"
)

// Input is everything an evaluator may look at. Profile is nil for evaluators that
// report NeedsProfile() == false.
type Input struct {
	Identity *model.IdentityClaims
	Profile  *model.SecurityProfile
	Request  pdp_model.RequestContext
}

// Evaluator turns an input into a decision. Evaluate never panics on bad input and
// never returns an error: every failure is a Deny decision.
type Evaluator interface {
	Evaluate(ctx context.Context, in Input) pdp_model.Decision
	Name() string
	NeedsProfile() bool
}

// New builds the evaluator selected by policy.engine, wrapped in the maintenance window.
func New(cfg *config.Configuration, policy model.GroupPolicy, resolver geo.Resolver, groups GroupLookup) (Evaluator, error) {
	var inner Evaluator
	switch cfg.Policy.Engine {
	case EngineRisk, "":
		inner = NewRiskEngine(cfg.Risk, resolver)
	case EngineGroup:
		inner = NewGroupEngine(policy, resolver, groups, cfg.Policy.UTCOffsetHours)
	default:
		return nil, fmt.Errorf("unknown policy engine %q", cfg.Policy.Engine)
	}
	if cfg.Policy.Maintenance.Enabled {
		return WithMaintenance(inner, cfg.Policy.Maintenance.Hour, cfg.Policy.UTCOffsetHours), nil
	}
	return inner, nil
}
