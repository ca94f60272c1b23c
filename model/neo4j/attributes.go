// authorizer/model/neo4j/attributes.go
package echo_neo4j

// User node properties read by the profile directory
const (
	AttrUsername            = "username"
	AttrSubject             = "sub"
	AttrEmail               = "email"
	AttrRole                = "role"
	AttrCountryCode         = "countryCode"
	AttrTimezone            = "timezone"
	AttrRegion              = "region"
	AttrBusinessStart       = "businessStart"
	AttrBusinessEnd         = "businessEnd"
	AttrAuthorizedCountries = "authorizedCountries"
	AttrRiskTolerance       = "riskTolerance"
	AttrUserStatus          = "status"
	AttrEnabled             = "enabled"
	AttrContinuousOperation = "continuousOperation"
	AttrKnownDevice         = "knownDevice"

	// AttrName is the name of group and department nodes
	AttrName = "name"
)
