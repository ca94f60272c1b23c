// authorizer/audit/log_repository.go
package audit

import (
	"context"
	"sync"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/echo/authorizer/logging"
)

// LogRepository writes decisions to the process log and keeps the most recent ones in
// memory for queries. Used when no Elasticsearch cluster is configured.
type LogRepository struct {
	mu       sync.RWMutex
	capacity int
	entries  []DecisionLog
	next     int
	full     bool
}

func NewLogRepository(capacity int) *LogRepository {
	if capacity <= 0 {
		capacity = 1000
	}
	return &LogRepository{capacity: capacity, entries: make([]DecisionLog, capacity)}
}

func (r *LogRepository) LogDecision(_ context.Context, log DecisionLog) error {
	logger.Info("Authorization decision",
		zap.String("decision_id", log.ID),
		zap.String("request_id", log.RequestID),
		zap.String("username", log.Username),
		zap.String("resource", log.Resource),
		zap.String("source_ip", log.SourceIP),
		zap.String("verdict", log.Verdict),
		zap.String("reason", log.ReasonCode),
		zap.Float64("risk_score", log.RiskScore))

	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[r.next] = log
	r.next = (r.next + 1) % r.capacity
	if r.next == 0 {
		r.full = true
	}
	return nil
}

// QueryDecisions scans newest first.
func (r *LogRepository) QueryDecisions(_ context.Context, q DecisionQuery) ([]DecisionLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	size := r.next
	if r.full {
		size = r.capacity
	}

	var out []DecisionLog
	for i := 1; i <= size; i++ {
		log := r.entries[(r.next-i+r.capacity)%r.capacity]
		if !q.Matches(log) {
			continue
		}
		out = append(out, log)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}
