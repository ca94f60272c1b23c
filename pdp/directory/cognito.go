package directory

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"go.uber.org/zap"

	authz_errors "github.com/dev-mohitbeniwal/echo/authorizer/errors"
	logger "github.com/dev-mohitbeniwal/echo/authorizer/logging"
	"github.com/dev-mohitbeniwal/echo/authorizer/model"
)

// User pool attributes that make up a security profile
const (
	AttrEmail               = "email"
	AttrZoneInfo            = "zoneinfo"
	AttrRole                = "custom:role"
	AttrDepartment          = "custom:department"
	AttrCountryCode         = "custom:country_code"
	AttrRegion              = "custom:region"
	AttrBusinessStart       = "custom:business_start"
	AttrBusinessEnd         = "custom:business_end"
	AttrAuthorizedCountries = "custom:authorized_countries"
	AttrRiskTolerance       = "custom:risk_tolerance"
	AttrContinuousOperation = "custom:continuous_ops"
	AttrKnownDevice         = "custom:known_device"
)

// CognitoAPI is the part of the Cognito client the directory calls.
type CognitoAPI interface {
	AdminGetUser(ctx context.Context, params *cognitoidentityprovider.AdminGetUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminGetUserOutput, error)
	AdminListGroupsForUser(ctx context.Context, params *cognitoidentityprovider.AdminListGroupsForUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.AdminListGroupsForUserOutput, error)
}

// CognitoDirectory reads profiles from user pool attributes.
type CognitoDirectory struct {
	client     CognitoAPI
	userPoolID string
	region     string
}

func NewCognitoDirectory(client CognitoAPI, userPoolID, region string) *CognitoDirectory {
	return &CognitoDirectory{client: client, userPoolID: userPoolID, region: region}
}

func (d *CognitoDirectory) GetProfile(ctx context.Context, username string) (*model.SecurityProfile, error) {
	out, err := d.client.AdminGetUser(ctx, &cognitoidentityprovider.AdminGetUserInput{
		UserPoolId: aws.String(d.userPoolID),
		Username:   aws.String(username),
	})
	if err != nil {
		var notFound *types.UserNotFoundException
		if errors.As(err, &notFound) {
			return nil, authz_errors.ErrProfileNotFound
		}
		return nil, fmt.Errorf("%w: AdminGetUser: %v", authz_errors.ErrDirectoryUnavailable, err)
	}

	attrs := make(map[string]string, len(out.UserAttributes))
	for _, a := range out.UserAttributes {
		attrs[aws.ToString(a.Name)] = aws.ToString(a.Value)
	}

	country := valueOr(attrs[AttrCountryCode], "US")
	profile := &model.SecurityProfile{
		Username:            username,
		Email:               attrs[AttrEmail],
		Role:                valueOr(attrs[AttrRole], "user"),
		Department:          attrs[AttrDepartment],
		CountryCode:         country,
		Timezone:            valueOr(attrs[AttrZoneInfo], "UTC"),
		Region:              valueOr(attrs[AttrRegion], d.region),
		BusinessStart:       valueOr(attrs[AttrBusinessStart], "09:00"),
		BusinessEnd:         valueOr(attrs[AttrBusinessEnd], "17:00"),
		AuthorizedCountries: splitList(attrs[AttrAuthorizedCountries], country),
		RiskTolerance:       strings.ToLower(valueOr(attrs[AttrRiskTolerance], model.RiskToleranceMedium)),
		UserStatus:          string(out.UserStatus),
		Enabled:             out.Enabled,
		ContinuousOperation: parseFlag(attrs[AttrContinuousOperation]),
		KnownDevice:         parseFlag(attrs[AttrKnownDevice]),
	}

	logger.Debug("Profile loaded from Cognito",
		zap.String("username", username),
		zap.String("role", profile.Role),
		zap.String("status", profile.UserStatus))
	return profile, nil
}

func (d *CognitoDirectory) LookupGroups(ctx context.Context, subject string) ([]string, error) {
	var groups []string
	var next *string
	for {
		out, err := d.client.AdminListGroupsForUser(ctx, &cognitoidentityprovider.AdminListGroupsForUserInput{
			UserPoolId: aws.String(d.userPoolID),
			Username:   aws.String(subject),
			NextToken:  next,
		})
		if err != nil {
			var notFound *types.UserNotFoundException
			if errors.As(err, &notFound) {
				return nil, authz_errors.ErrProfileNotFound
			}
			return nil, fmt.Errorf("%w: AdminListGroupsForUser: %v", authz_errors.ErrDirectoryUnavailable, err)
		}
		for _, g := range out.Groups {
			if name := aws.ToString(g.GroupName); name != "" {
				groups = append(groups, name)
			}
		}
		if out.NextToken == nil || *out.NextToken == "" {
			return groups, nil
		}
		next = out.NextToken
	}
}

func valueOr(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return strings.TrimSpace(v)
}

func splitList(v, fallback string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.ToUpper(strings.TrimSpace(item)); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return []string{fallback}
	}
	return out
}

func parseFlag(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}
