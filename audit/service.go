// authorizer/audit/service.go
package audit

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	authz_errors "github.com/dev-mohitbeniwal/echo/authorizer/errors"
	logger "github.com/dev-mohitbeniwal/echo/authorizer/logging"
	"github.com/dev-mohitbeniwal/echo/authorizer/util"
	helper_util "github.com/dev-mohitbeniwal/echo/authorizer/util/helper"
)

type Service interface {
	LogDecision(ctx context.Context, log DecisionLog) error
	QueryDecisions(ctx context.Context, q DecisionQuery) ([]DecisionLog, error)
}

type service struct {
	repo Repository
}

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) LogDecision(ctx context.Context, log DecisionLog) error {
	if log.ID == "" {
		log.ID = uuid.New().String()
	}
	if err := s.repo.LogDecision(ctx, log); err != nil {
		return fmt.Errorf("%w: %v", authz_errors.ErrAuditUnavailable, err)
	}
	return nil
}

func (s *service) QueryDecisions(ctx context.Context, q DecisionQuery) ([]DecisionLog, error) {
	if !q.From.IsZero() && !q.To.IsZero() && q.To.Before(q.From) {
		return nil, fmt.Errorf("%w: 'to' is before 'from'", authz_errors.ErrInvalidQuery)
	}
	if q.Limit <= 0 || q.Limit > helper_util.MaxPageSize {
		q.Limit = helper_util.MaxPageSize
	}
	logs, err := s.repo.QueryDecisions(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", authz_errors.ErrAuditUnavailable, err)
	}
	return logs, nil
}

// Subscribe records every DecisionLog published on the bus.
func Subscribe(bus *util.EventBus, svc Service) {
	bus.Subscribe(util.EventDecisionRecorded, func(ctx context.Context, e util.Event) error {
		log, ok := e.Payload.(DecisionLog)
		if !ok {
			logger.Warn("Unexpected audit payload", zap.String("type", fmt.Sprintf("%T", e.Payload)))
			return nil
		}
		return svc.LogDecision(ctx, log)
	})
}
