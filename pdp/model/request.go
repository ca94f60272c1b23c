package model

import (
	"time"

	"github.com/aws/aws-lambda-go/events"
)

const (
	InvocationTypeToken   = "TOKEN"
	InvocationTypeRequest = "REQUEST"
)

// InvocationEvent accepts both authorizer shapes: REQUEST events carry headers and
// request context, TOKEN events carry only authorizationToken and methodArn.
type InvocationEvent struct {
	events.APIGatewayCustomAuthorizerRequestTypeRequest
	AuthorizationToken string `json:"authorizationToken,omitempty"`
}

// Credentials is what the extractor pulls out of an invocation. Token is empty when absent.
type Credentials struct {
	Token      string
	SourceIP   string
	HTTPMethod string
	RequestID  string
}

// RequestContext is built once per request and never mutated.
type RequestContext struct {
	SourceIP       string
	InvocationTime time.Time
	ResourceARN    string
	RequestID      string
}
