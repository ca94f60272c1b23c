package engine

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/authorizer/logging"
	pdp_model "github.com/dev-mohitbeniwal/echo/authorizer/pdp/model"
)

type maintenance struct {
	next           Evaluator
	hour           int
	utcOffsetHours int
}

// WithMaintenance denies every request whose invocation hour equals hour, before next
// runs. The hour is read at the configured UTC offset.
func WithMaintenance(next Evaluator, hour, utcOffsetHours int) Evaluator {
	return &maintenance{next: next, hour: hour, utcOffsetHours: utcOffsetHours}
}

func (m *maintenance) Evaluate(ctx context.Context, in Input) pdp_model.Decision {
	local := OffsetTime(in.Request.InvocationTime, m.utcOffsetHours)
	if local.Hour() == m.hour {
		logger.Info("Access denied by maintenance window",
			zap.Int("hour", m.hour),
			zap.String("request_id", in.Request.RequestID))
		d := pdp_model.Deny(pdp_model.ReasonMaintenanceWindow,
			fmt.Sprintf("Maintenance window: %02d:00-%02d:00", m.hour, (m.hour+1)%24))
		d.Engine = m.next.Name()
		return d
	}
	return m.next.Evaluate(ctx, in)
}

func (m *maintenance) Name() string {
	return m.next.Name()
}

func (m *maintenance) NeedsProfile() bool {
	return m.next.NeedsProfile()
}
