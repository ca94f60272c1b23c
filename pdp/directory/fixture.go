package directory

import (
	"context"
	"sync"
	"time"

	authz_errors "github.com/dev-mohitbeniwal/echo/authorizer/errors"
	"github.com/dev-mohitbeniwal/echo/authorizer/model"
)

// Fixture is a deterministic in-memory directory for tests and demo deployments.
type Fixture struct {
	mu       sync.RWMutex
	profiles map[string]model.SecurityProfile
	groups   map[string][]string
	err      error
	latency  time.Duration
	calls    int
}

type FixtureOption func(*Fixture)

func WithProfiles(profiles ...model.SecurityProfile) FixtureOption {
	return func(f *Fixture) {
		for _, p := range profiles {
			f.profiles[p.Username] = p
		}
	}
}

func WithGroups(subject string, groups ...string) FixtureOption {
	return func(f *Fixture) {
		f.groups[subject] = groups
	}
}

// WithError makes every lookup fail with err.
func WithError(err error) FixtureOption {
	return func(f *Fixture) { f.err = err }
}

// WithLatency delays every lookup, honouring context cancellation.
func WithLatency(d time.Duration) FixtureOption {
	return func(f *Fixture) { f.latency = d }
}

func NewFixture(opts ...FixtureOption) *Fixture {
	f := &Fixture{
		profiles: make(map[string]model.SecurityProfile),
		groups:   make(map[string][]string),
	}
	for _, o := range opts {
		o(f)
	}
	return f
}

func (f *Fixture) GetProfile(ctx context.Context, username string) (*model.SecurityProfile, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	p, ok := f.profiles[username]
	if !ok {
		return nil, authz_errors.ErrProfileNotFound
	}
	p.AuthorizedCountries = append([]string(nil), p.AuthorizedCountries...)
	return &p, nil
}

func (f *Fixture) LookupGroups(ctx context.Context, subject string) ([]string, error) {
	if err := f.wait(ctx); err != nil {
		return nil, err
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]string(nil), f.groups[subject]...), nil
}

// Calls counts lookups that reached the fixture.
func (f *Fixture) Calls() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.calls
}

func (f *Fixture) wait(ctx context.Context) error {
	f.mu.Lock()
	f.calls++
	latency, err := f.latency, f.err
	f.mu.Unlock()

	if latency > 0 {
		timer := time.NewTimer(latency)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

// DemoProfiles are the canned accounts served when the fixture backs a demo deployment.
// Usernames match what demo sentinel tokens decode to, e.g. "demo.admin" -> "demo_admin".
func DemoProfiles() []model.SecurityProfile {
	base := func(username, role, tolerance, start, end string) model.SecurityProfile {
		return model.SecurityProfile{
			Username:            username,
			Email:               username + "@medisupply.com",
			Role:                role,
			Department:          "demo",
			CountryCode:         "US",
			Timezone:            "America/New_York",
			Region:              "us-east-1",
			BusinessStart:       start,
			BusinessEnd:         end,
			AuthorizedCountries: []string{"US", "CA", "MX"},
			RiskTolerance:       tolerance,
			UserStatus:          model.UserStatusConfirmed,
			Enabled:             true,
		}
	}

	admin := base("demo_admin", "admin", model.RiskToleranceLow, "07:00", "19:00")
	highRisk := base("demo_highrisk", "user", model.RiskToleranceLow, "10:00", "16:00")
	user := base("demo_user", "user", model.RiskToleranceMedium, "08:00", "20:00")
	userNY := base("demo_user_ny", "user", model.RiskToleranceMedium, "08:00", "20:00")

	continuous := base("demo_user_24x7", "user", model.RiskToleranceHigh, "00:00", "23:59")
	continuous.ContinuousOperation = true
	emergency := base("demo_emergency", "user", model.RiskToleranceHigh, "00:00", "23:59")
	emergency.ContinuousOperation = true
	emergency.KnownDevice = true

	restricted := base("demo_restricted", "user", model.RiskToleranceLow, "09:00", "17:00")
	restricted.Department = "restricted"
	restricted.AuthorizedCountries = []string{"XX"}

	return []model.SecurityProfile{admin, highRisk, user, userNY, continuous, emergency, restricted}
}
