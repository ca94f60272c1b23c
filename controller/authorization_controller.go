// authorizer/controller/authorization_controller.go
package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/echo/authorizer/middleware"
	pdp_model "github.com/dev-mohitbeniwal/echo/authorizer/pdp/model"
	"github.com/dev-mohitbeniwal/echo/authorizer/service"
	"github.com/dev-mohitbeniwal/echo/authorizer/util"
)

type AuthorizationController struct {
	authzService service.IAuthorizationService
}

func NewAuthorizationController(authzService service.IAuthorizationService) *AuthorizationController {
	return &AuthorizationController{authzService: authzService}
}

// RegisterRoutes registers the API routes
func (ac *AuthorizationController) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/authorize", ac.Authorize)
}

// RegisterProtectedRoutes registers routes that sit behind middleware.Authorize.
func (ac *AuthorizationController) RegisterProtectedRoutes(r *gin.RouterGroup) {
	r.GET("/whoami", ac.WhoAmI)
}

// WhoAmI echoes the principal and authorizer context the enforcement middleware attached.
func (ac *AuthorizationController) WhoAmI(c *gin.Context) {
	authzContext, _ := c.Get(middleware.AuthorizerContextKey)
	c.JSON(http.StatusOK, gin.H{
		"principalId": c.GetString(middleware.PrincipalKey),
		"context":     authzContext,
	})
}

// Authorize accepts an authorizer invocation event and returns the verdict document.
// Deny verdicts are still 200: the outcome lives in the policy document, not the status.
func (ac *AuthorizationController) Authorize(c *gin.Context) {
	var event pdp_model.InvocationEvent
	if err := c.ShouldBindJSON(&event); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid invocation event", err)
		return
	}
	if event.RequestContext.RequestID == "" {
		event.RequestContext.RequestID = util.GetRequestIDFromContext(c)
	}

	c.JSON(http.StatusOK, ac.authzService.Authorize(c.Request.Context(), event))
}
