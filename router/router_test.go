package router_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"

	"github.com/dev-mohitbeniwal/echo/authorizer/audit"
	"github.com/dev-mohitbeniwal/echo/authorizer/controller"
	"github.com/dev-mohitbeniwal/echo/authorizer/metrics"
	"github.com/dev-mohitbeniwal/echo/authorizer/middleware"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/encoder"
	pdp_model "github.com/dev-mohitbeniwal/echo/authorizer/pdp/model"
	"github.com/dev-mohitbeniwal/echo/authorizer/router"
	mock_service "github.com/dev-mohitbeniwal/echo/authorizer/test/service_mock"
)

func TestSetupRouter(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	m := metrics.New(true)
	m.RecordDecision("risk", "Allow", "ALLOW", 0.01)

	controllers := controller.InitializeControllers(
		mock_service.NewMockIAuthorizationService(ctrl),
		audit.NewService(audit.NewLogRepository(10)),
	)
	r := router.SetupRouter(controllers, router.Options{Metrics: m.Handler()})

	tests := []struct {
		path     string
		wantCode int
		wantBody string
	}{
		{"/healthz", http.StatusOK, "ok"},
		{"/metrics", http.StatusOK, "authz_decisions_total"},
		{"/api/v1/decisions", http.StatusOK, `"count":0`},
	}
	for _, tt := range tests {
		t.Run(strings.TrimPrefix(tt.path, "/"), func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest("GET", tt.path, nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
		})
	}
}

func TestSetupRouterEnforcement(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	mockService := mock_service.NewMockIAuthorizationService(ctrl)
	controllers := controller.InitializeControllers(mockService, audit.NewService(audit.NewLogRepository(10)))
	const prefix = "arn:aws:execute-api:local:0:authorizer/http"

	t.Run("whoami is absent without an enforcer", func(t *testing.T) {
		r := router.SetupRouter(controllers, router.Options{})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/whoami", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	r := router.SetupRouter(controllers, router.Options{Enforcer: middleware.Authorize(mockService, prefix)})

	t.Run("allowed principal is echoed", func(t *testing.T) {
		mockService.EXPECT().
			Authorize(gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ context.Context, event pdp_model.InvocationEvent) events.APIGatewayCustomAuthorizerResponse {
				assert.Equal(t, prefix+"/GET/api/v1/whoami", event.MethodArn)
				return events.APIGatewayCustomAuthorizerResponse{
					PrincipalID:    "demo_admin",
					PolicyDocument: events.APIGatewayCustomAuthorizerPolicy{Statement: []events.IAMPolicyStatement{{Effect: encoder.EffectAllow}}},
					Context:        map[string]interface{}{"role": "admin"},
				}
			})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/whoami", nil)
		req.Header.Set("Authorization", "Bearer demo.admin")
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"principalId":"demo_admin"`)
		assert.Contains(t, w.Body.String(), `"role":"admin"`)
	})

	t.Run("denied request never reaches the handler", func(t *testing.T) {
		mockService.EXPECT().
			Authorize(gomock.Any(), gomock.Any()).
			Return(events.APIGatewayCustomAuthorizerResponse{
				PrincipalID:    encoder.PrincipalDenied,
				PolicyDocument: events.APIGatewayCustomAuthorizerPolicy{Statement: []events.IAMPolicyStatement{{Effect: encoder.EffectDeny}}},
				Context:        map[string]interface{}{"deny_reason": pdp_model.ReasonWeekendAccess},
			})

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/whoami", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.NotContains(t, w.Body.String(), "principalId")
	})

	t.Run("unprotected routes skip the enforcer", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/v1/decisions", nil)
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
	})
}
