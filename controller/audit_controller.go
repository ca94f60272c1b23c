// authorizer/controller/audit_controller.go
package controller

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dev-mohitbeniwal/echo/authorizer/audit"
	authz_errors "github.com/dev-mohitbeniwal/echo/authorizer/errors"
	"github.com/dev-mohitbeniwal/echo/authorizer/util"
	helper_util "github.com/dev-mohitbeniwal/echo/authorizer/util/helper"
)

type AuditController struct {
	auditService audit.Service
}

func NewAuditController(auditService audit.Service) *AuditController {
	return &AuditController{auditService: auditService}
}

// RegisterRoutes registers the API routes
func (ac *AuditController) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/decisions", ac.QueryDecisions)
}

// QueryDecisions endpoint: ?username=&verdict=&from=&to=&limit=
func (ac *AuditController) QueryDecisions(c *gin.Context) {
	limit, _, err := helper_util.GetPaginationParams(c)
	if err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid pagination parameters", err)
		return
	}

	q := audit.DecisionQuery{
		Username: c.Query("username"),
		Verdict:  c.Query("verdict"),
		Limit:    limit,
	}
	if q.From, err = optionalTime(c.Query("from")); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid 'from' timestamp", err)
		return
	}
	if q.To, err = optionalTime(c.Query("to")); err != nil {
		util.RespondWithError(c, http.StatusBadRequest, "Invalid 'to' timestamp", err)
		return
	}

	logs, err := ac.auditService.QueryDecisions(c.Request.Context(), q)
	if err != nil {
		switch {
		case errors.Is(err, authz_errors.ErrInvalidQuery):
			util.RespondWithError(c, http.StatusBadRequest, "Invalid audit query", err)
		case errors.Is(err, authz_errors.ErrAuditUnavailable):
			util.RespondWithError(c, http.StatusServiceUnavailable, "Audit store unavailable", err)
		default:
			util.RespondWithError(c, http.StatusInternalServerError, "Failed to query decisions", err)
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"decisions": logs, "count": len(logs)})
}

func optionalTime(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return helper_util.ParseTime(raw)
}
