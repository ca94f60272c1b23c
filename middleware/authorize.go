package middleware

import (
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/encoder"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/extract"
	pdp_model "github.com/dev-mohitbeniwal/echo/authorizer/pdp/model"
	"github.com/dev-mohitbeniwal/echo/authorizer/service"
	"github.com/dev-mohitbeniwal/echo/authorizer/util"
)

const (
	PrincipalKey         = "principalID"
	AuthorizerContextKey = "authorizerContext"
)

// Authorize enforces decisions in-process. Requests are shaped like REQUEST authorizer
// events for resourcePrefix + "/" + METHOD + path.
func Authorize(svc service.IAuthorizationService, resourcePrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		resource := resourcePrefix + "/" + c.Request.Method + c.Request.URL.Path
		event := extract.EventFromHTTPRequest(c.Request, resource, util.GetRequestIDFromContext(c))

		resp := svc.Authorize(c.Request.Context(), event)
		if allowed(resp) {
			c.Set(PrincipalKey, resp.PrincipalID)
			c.Set(AuthorizerContextKey, resp.Context)
			c.Next()
			return
		}

		status := http.StatusForbidden
		body := gin.H{"error": resp.Context["deny_message"], "reason": resp.Context["deny_reason"]}
		switch {
		case resp.Context["auth_status"] == encoder.AuthStatusMFARequired:
			status = http.StatusUnauthorized
			body = gin.H{"error": "MFA required", "reason": pdp_model.ReasonMFARequired, "mfa_url": resp.Context["mfa_url"]}
		case resp.Context["deny_reason"] == pdp_model.ReasonTokenMissing, resp.Context["deny_reason"] == pdp_model.ReasonInvalidJWT:
			status = http.StatusUnauthorized
		}
		c.AbortWithStatusJSON(status, body)
	}
}

func allowed(resp events.APIGatewayCustomAuthorizerResponse) bool {
	statements := resp.PolicyDocument.Statement
	return len(statements) > 0 && statements[0].Effect == encoder.EffectAllow
}
