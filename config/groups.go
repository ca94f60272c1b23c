// authorizer/config/groups.go
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/netip"
	"os"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	authz_errors "github.com/dev-mohitbeniwal/echo/authorizer/errors"
	logger "github.com/dev-mohitbeniwal/echo/authorizer/logging"
	"github.com/dev-mohitbeniwal/echo/authorizer/model"
	"github.com/dev-mohitbeniwal/echo/authorizer/util"
)

type groupRuleSpec struct {
	Description string   `yaml:"description"`
	Countries   []string `yaml:"countries" validate:"dive,required"`
	Hours       string   `yaml:"hours" validate:"required,hourset"`
	IPWhitelist []string `yaml:"ip_whitelist" validate:"dive,cidr"`
}

type groupPolicyFile struct {
	Groups map[string]groupRuleSpec `yaml:"groups" validate:"required,min=1,dive"`
}

// LoadGroupPolicy reads the group policy table from path. A missing file yields the
// built-in table so a fresh checkout still evaluates.
func LoadGroupPolicy(path string) (model.GroupPolicy, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Warn("Group policy file not found, using built-in table", zap.String("path", path))
		return DefaultGroupPolicy(), nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to read group policy file: %w", err)
	}
	return ParseGroupPolicy(data)
}

// ParseGroupPolicy parses and validates a YAML group policy table.
func ParseGroupPolicy(data []byte) (model.GroupPolicy, error) {
	var file groupPolicyFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("%w: %v", authz_errors.ErrInvalidPolicyConfig, err)
	}
	if err := util.NewValidationUtil().ValidateStruct(file); err != nil {
		return nil, fmt.Errorf("%w: %v", authz_errors.ErrInvalidPolicyConfig, err)
	}

	policy := make(model.GroupPolicy, len(file.Groups))
	for name, spec := range file.Groups {
		rule, err := spec.toRule(name)
		if err != nil {
			return nil, fmt.Errorf("%w: group %s: %v", authz_errors.ErrInvalidPolicyConfig, name, err)
		}
		policy[name] = rule
	}
	return policy, nil
}

func (s groupRuleSpec) toRule(name string) (model.PolicyRule, error) {
	hours, err := model.ParseHourSet(s.Hours)
	if err != nil {
		return model.PolicyRule{}, err
	}

	rule := model.PolicyRule{
		Group:       name,
		Description: s.Description,
		Hours:       hours,
	}
	for _, c := range s.Countries {
		rule.Countries = append(rule.Countries, strings.ToUpper(strings.TrimSpace(c)))
	}
	for _, cidr := range s.IPWhitelist {
		prefix, err := netip.ParsePrefix(cidr)
		if err != nil {
			return model.PolicyRule{}, err
		}
		rule.IPWhitelist = append(rule.IPWhitelist, prefix.Masked())
	}
	return rule, nil
}

// DefaultGroupPolicy is the stock MediSupply group table.
func DefaultGroupPolicy() model.GroupPolicy {
	andean := []string{"CO", "PE", "EC", "MX"}
	return model.GroupPolicy{
		"admin": {
			Group:       "admin",
			Description: "Full access around the clock",
			Countries:   andean,
			Hours:       model.HourRange(0, 23),
		},
		"compras": {
			Group:       "compras",
			Description: "Office hours, corporate network",
			Countries:   andean,
			Hours:       model.HourRange(6, 22),
			IPWhitelist: []netip.Prefix{netip.MustParsePrefix("10.0.0.0/8")},
		},
		"logistica": {
			Group:       "logistica",
			Description: "Extended hours for logistics",
			Countries:   andean,
			Hours:       model.HourRange(5, 23),
		},
		"ventas": {
			Group:       "ventas",
			Description: "Extended hours for sales",
			Countries:   andean,
			Hours:       model.HourRange(5, 23),
		},
		"clientes": {
			Group:       "clientes",
			Description: "Business hours, Colombia only",
			Countries:   []string{"CO"},
			Hours:       model.HourRange(6, 22),
		},
	}
}
