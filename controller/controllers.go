// authorizer/controller/controllers.go
package controller

import (
	"github.com/dev-mohitbeniwal/echo/authorizer/audit"
	"github.com/dev-mohitbeniwal/echo/authorizer/service"
)

type Controllers struct {
	Authorization *AuthorizationController
	Audit         *AuditController
	Health        *HealthController
}

func InitializeControllers(authzService service.IAuthorizationService, auditService audit.Service) *Controllers {
	return &Controllers{
		Authorization: NewAuthorizationController(authzService),
		Audit:         NewAuditController(auditService),
		Health:        NewHealthController(),
	}
}
