package dao

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.uber.org/zap"

	authz_errors "github.com/dev-mohitbeniwal/echo/authorizer/errors"
	logger "github.com/dev-mohitbeniwal/echo/authorizer/logging"
	"github.com/dev-mohitbeniwal/echo/authorizer/model"

	echo_neo4j "github.com/dev-mohitbeniwal/echo/authorizer/model/neo4j"
)

// ReadTransactionFunc runs work in a read transaction; db.ExecuteReadTransaction satisfies it.
type ReadTransactionFunc func(ctx context.Context, work neo4j.TransactionWork) (interface{}, error)

// ProfileDAO serves security profiles from the graph directory.
type ProfileDAO struct {
	read ReadTransactionFunc
}

func NewProfileDAO(read ReadTransactionFunc) *ProfileDAO {
	return &ProfileDAO{read: read}
}

func (dao *ProfileDAO) GetProfile(ctx context.Context, username string) (*model.SecurityProfile, error) {
	start := time.Now()
	logger.Debug("Retrieving security profile", zap.String("username", username))

	result, err := dao.read(ctx, func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:` + echo_neo4j.LabelUser + ` {` + echo_neo4j.AttrUsername + `: $username})
        OPTIONAL MATCH (u)-[:` + echo_neo4j.RelMemberOf + `]->(d:` + echo_neo4j.LabelDepartment + `)
        RETURN u, d.` + echo_neo4j.AttrName + ` AS department
        LIMIT 1
        `
		result, err := tx.Run(query, map[string]interface{}{"username": username})
		if err != nil {
			return nil, err
		}
		if !result.Next() {
			return nil, result.Err()
		}
		return profileFromRecord(result.Record())
	})

	duration := time.Since(start)
	if err != nil {
		logger.Error("Failed to retrieve security profile",
			zap.String("username", username),
			zap.Error(err),
			zap.Duration("duration", duration))
		return nil, fmt.Errorf("%w: %v", authz_errors.ErrDirectoryUnavailable, err)
	}

	profile, ok := result.(*model.SecurityProfile)
	if !ok || profile == nil {
		return nil, authz_errors.ErrProfileNotFound
	}
	logger.Debug("Retrieved security profile",
		zap.String("username", username),
		zap.Duration("duration", duration))
	return profile, nil
}

func (dao *ProfileDAO) LookupGroups(ctx context.Context, subject string) ([]string, error) {
	result, err := dao.read(ctx, func(tx neo4j.Transaction) (interface{}, error) {
		query := `
        MATCH (u:` + echo_neo4j.LabelUser + ` {` + echo_neo4j.AttrSubject + `: $subject})-[:` + echo_neo4j.RelBelongsToGroup + `]->(g:` + echo_neo4j.LabelGroup + `)
        RETURN g.` + echo_neo4j.AttrName + ` AS name
        ORDER BY name
        `
		result, err := tx.Run(query, map[string]interface{}{"subject": subject})
		if err != nil {
			return nil, err
		}
		var groups []string
		for result.Next() {
			if name, ok := result.Record().Values[0].(string); ok && name != "" {
				groups = append(groups, name)
			}
		}
		return groups, result.Err()
	})
	if err != nil {
		logger.Error("Failed to look up groups", zap.String("subject", subject), zap.Error(err))
		return nil, fmt.Errorf("%w: %v", authz_errors.ErrDirectoryUnavailable, err)
	}
	groups, _ := result.([]string)
	return groups, nil
}

// profileFromRecord maps a (user node, department name) record to a profile.
func profileFromRecord(record *neo4j.Record) (*model.SecurityProfile, error) {
	if record == nil || len(record.Values) == 0 {
		return nil, nil
	}
	node, ok := record.Values[0].(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("failed to assert type for user node: %T", record.Values[0])
	}
	profile, err := mapNodeToProfile(node)
	if err != nil {
		return nil, err
	}
	if len(record.Values) > 1 {
		if dept, ok := record.Values[1].(string); ok && dept != "" {
			profile.Department = dept
		}
	}
	return profile, nil
}

func mapNodeToProfile(node neo4j.Node) (*model.SecurityProfile, error) {
	props := node.Props
	profile := &model.SecurityProfile{}

	// Username
	if username, ok := props[echo_neo4j.AttrUsername].(string); ok {
		profile.Username = username
	} else {
		return nil, fmt.Errorf("failed to assert type for user username: %v", props[echo_neo4j.AttrUsername])
	}

	// Role
	if role, ok := props[echo_neo4j.AttrRole].(string); ok {
		profile.Role = role
	} else {
		return nil, fmt.Errorf("failed to assert type for user role: %v", props[echo_neo4j.AttrRole])
	}

	profile.Email = stringProp(props, echo_neo4j.AttrEmail)
	profile.CountryCode = stringProp(props, echo_neo4j.AttrCountryCode)
	profile.Timezone = stringProp(props, echo_neo4j.AttrTimezone)
	profile.Region = stringProp(props, echo_neo4j.AttrRegion)
	profile.BusinessStart = stringProp(props, echo_neo4j.AttrBusinessStart)
	profile.BusinessEnd = stringProp(props, echo_neo4j.AttrBusinessEnd)
	profile.RiskTolerance = strings.ToLower(stringProp(props, echo_neo4j.AttrRiskTolerance))
	profile.UserStatus = stringProp(props, echo_neo4j.AttrUserStatus)

	// AuthorizedCountries is stored as a list property
	switch countries := props[echo_neo4j.AttrAuthorizedCountries].(type) {
	case []interface{}:
		for _, c := range countries {
			if s, ok := c.(string); ok {
				profile.AuthorizedCountries = append(profile.AuthorizedCountries, strings.ToUpper(s))
			}
		}
	case []string:
		for _, s := range countries {
			profile.AuthorizedCountries = append(profile.AuthorizedCountries, strings.ToUpper(s))
		}
	case nil:
		logger.Warn("Authorized countries not found", zap.String("username", profile.Username))
	default:
		return nil, fmt.Errorf("failed to assert type for user authorizedCountries: %v", countries)
	}

	profile.Enabled = boolProp(props, echo_neo4j.AttrEnabled)
	profile.ContinuousOperation = boolProp(props, echo_neo4j.AttrContinuousOperation)
	profile.KnownDevice = boolProp(props, echo_neo4j.AttrKnownDevice)

	return profile, nil
}

func stringProp(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func boolProp(props map[string]any, key string) bool {
	b, _ := props[key].(bool)
	return b
}
