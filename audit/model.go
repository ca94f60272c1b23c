// authorizer/audit/model.go
package audit

import (
	"time"

	pdp_model "github.com/dev-mohitbeniwal/echo/authorizer/pdp/model"
)

// DecisionLog is the audit record of one verdict. Tokens are never recorded.
type DecisionLog struct {
	ID             string                  `json:"id"`
	Timestamp      time.Time               `json:"timestamp"`
	RequestID      string                  `json:"request_id,omitempty"`
	Username       string                  `json:"username,omitempty"`
	Subject        string                  `json:"subject,omitempty"`
	Resource       string                  `json:"resource"`
	SourceIP       string                  `json:"source_ip"`
	Country        string                  `json:"country,omitempty"`
	Engine         string                  `json:"engine,omitempty"`
	Verdict        string                  `json:"verdict"`
	ReasonCode     string                  `json:"reason_code"`
	Message        string                  `json:"message,omitempty"`
	RiskScore      float64                 `json:"risk_score"`
	ResponseTimeMs int64                   `json:"response_time_ms"`
	Checks         []pdp_model.CheckResult `json:"checks,omitempty"`
}

// DecisionQuery filters the audit trail. Zero values mean "no filter".
type DecisionQuery struct {
	From     time.Time
	To       time.Time
	Username string
	Verdict  string
	Limit    int
}

// Matches reports whether log satisfies q.
func (q DecisionQuery) Matches(log DecisionLog) bool {
	if !q.From.IsZero() && log.Timestamp.Before(q.From) {
		return false
	}
	if !q.To.IsZero() && log.Timestamp.After(q.To) {
		return false
	}
	if q.Username != "" && log.Username != q.Username {
		return false
	}
	if q.Verdict != "" && log.Verdict != q.Verdict {
		return false
	}
	return true
}
