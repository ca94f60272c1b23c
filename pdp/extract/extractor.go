package extract

import (
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/model"
)

const (
	HeaderAuthorization = "Authorization"
	HeaderTestIP        = "X-Test-IP"
	HeaderForwardedFor  = "X-Forwarded-For"
	HeaderRealIP        = "X-Real-IP"
	HeaderClientIP      = "X-Client-IP"

	DefaultSourceIP = "127.0.0.1"

	bearerPrefix = "bearer "
)

// Extractor pulls the bearer token and client address out of an invocation.
//
// Client IP precedence, first non-empty wins:
//  1. X-Test-IP, only when test overrides are trusted
//  2. first entry of X-Forwarded-For
//  3. X-Real-IP
//  4. X-Client-IP
//  5. requestContext.identity.sourceIp
//  6. 127.0.0.1
type Extractor struct {
	trustTestIPHeader bool
}

func NewExtractor(trustTestIPHeader bool) *Extractor {
	return &Extractor{trustTestIPHeader: trustTestIPHeader}
}

// Extract never fails; a missing token comes back empty.
func (e *Extractor) Extract(event model.InvocationEvent) model.Credentials {
	return model.Credentials{
		Token:      e.token(event),
		SourceIP:   e.sourceIP(event),
		HTTPMethod: strings.ToUpper(event.HTTPMethod),
		RequestID:  event.RequestContext.RequestID,
	}
}

func (e *Extractor) token(event model.InvocationEvent) string {
	raw := event.AuthorizationToken
	if !strings.EqualFold(event.Type, model.InvocationTypeToken) {
		if h := header(event.Headers, HeaderAuthorization); h != "" {
			raw = h
		}
	}
	return stripBearer(raw)
}

func stripBearer(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, strings.TrimSpace(bearerPrefix)) {
		return ""
	}
	if len(raw) >= len(bearerPrefix) && strings.EqualFold(raw[:len(bearerPrefix)], bearerPrefix) {
		raw = strings.TrimSpace(raw[len(bearerPrefix):])
	}
	return raw
}

func (e *Extractor) sourceIP(event model.InvocationEvent) string {
	if e.trustTestIPHeader {
		if ip := header(event.Headers, HeaderTestIP); ip != "" {
			return ip
		}
	}
	if xff := header(event.Headers, HeaderForwardedFor); xff != "" {
		if first := strings.TrimSpace(strings.Split(xff, ",")[0]); first != "" {
			return first
		}
	}
	for _, name := range []string{HeaderRealIP, HeaderClientIP} {
		if ip := header(event.Headers, name); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(event.RequestContext.Identity.SourceIP); ip != "" {
		return ip
	}
	return DefaultSourceIP
}

// header looks a name up case-insensitively; gateways do not normalise header case.
func header(headers map[string]string, name string) string {
	if v, ok := headers[name]; ok {
		return strings.TrimSpace(v)
	}
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// EventFromHTTPRequest shapes an in-process HTTP request like a REQUEST authorizer event,
// so the gin enforcement point shares the gateway path.
func EventFromHTTPRequest(r *http.Request, methodARN, requestID string) model.InvocationEvent {
	headers := make(map[string]string, len(r.Header))
	for name := range r.Header {
		headers[name] = r.Header.Get(name)
	}

	event := model.InvocationEvent{}
	event.Type = model.InvocationTypeRequest
	event.MethodArn = methodARN
	event.HTTPMethod = r.Method
	event.Path = r.URL.Path
	event.Headers = headers
	event.RequestContext = events.APIGatewayCustomAuthorizerRequestTypeRequestContext{
		RequestID: requestID,
		Identity: events.APIGatewayCustomAuthorizerRequestTypeRequestIdentity{
			SourceIP: stripPort(r.RemoteAddr),
		},
	}
	return event
}

// stripPort handles "1.2.3.4:8080", "[::1]:8080" and bare IPv6.
func stripPort(addr string) string {
	idx := strings.LastIndex(addr, ":")
	if idx == -1 {
		return addr
	}
	if strings.Contains(addr, "[") {
		if closeIdx := strings.LastIndex(addr, "]"); closeIdx != -1 && closeIdx < idx {
			return strings.Trim(addr[:idx], "[]")
		}
		return addr
	}
	if strings.Count(addr, ":") > 1 {
		return addr
	}
	return addr[:idx]
}
