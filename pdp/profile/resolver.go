package profile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	authz_errors "github.com/dev-mohitbeniwal/echo/authorizer/errors"
	logger "github.com/dev-mohitbeniwal/echo/authorizer/logging"
	"github.com/dev-mohitbeniwal/echo/authorizer/model"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/cache"
	"github.com/dev-mohitbeniwal/echo/authorizer/pdp/directory"
	"github.com/dev-mohitbeniwal/echo/authorizer/util"
)

// DefaultTimeout bounds a single directory call.
const DefaultTimeout = 3 * time.Second

// Resolver is a read-through cache in front of a ProfileDirectory. It never writes
// to the directory.
type Resolver struct {
	directory directory.ProfileDirectory
	cache     cache.Store[model.SecurityProfile]
	validator *util.ValidationUtil
	timeout   time.Duration
	group     singleflight.Group
}

type Option func(*Resolver)

func WithTimeout(d time.Duration) Option {
	return func(r *Resolver) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func NewResolver(dir directory.ProfileDirectory, store cache.Store[model.SecurityProfile], opts ...Option) *Resolver {
	r := &Resolver{
		directory: dir,
		cache:     store,
		validator: util.NewValidationUtil(),
		timeout:   DefaultTimeout,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Resolve returns the profile for username. A directory timeout is reported as
// ErrProfileNotFound; other directory failures as ErrDirectoryUnavailable.
func (r *Resolver) Resolve(ctx context.Context, username string) (*model.SecurityProfile, error) {
	if username == "" {
		return nil, authz_errors.ErrProfileNotFound
	}
	if cached, ok := r.cache.Get(ctx, username); ok {
		logger.Debug("Profile cache hit", zap.String("username", username))
		return clone(cached), nil
	}

	v, err, shared := r.group.Do(username, func() (interface{}, error) {
		return r.fetch(ctx, username)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("Profile lookup shared with concurrent request", zap.String("username", username))
	}
	return clone(v.(model.SecurityProfile)), nil
}

func (r *Resolver) fetch(ctx context.Context, username string) (model.SecurityProfile, error) {
	// detached so one caller's cancellation does not fail the callers sharing this lookup
	lookupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	start := time.Now()
	p, err := r.directory.GetProfile(lookupCtx, username)
	if err != nil {
		return model.SecurityProfile{}, r.classify(err, username, time.Since(start))
	}
	if p == nil {
		return model.SecurityProfile{}, authz_errors.ErrProfileNotFound
	}
	if err := r.validator.ValidateProfile(*p); err != nil {
		logger.Warn("Directory returned an invalid profile", zap.String("username", username), zap.Error(err))
		return model.SecurityProfile{}, fmt.Errorf("%w: %v", authz_errors.ErrDirectoryUnavailable, err)
	}

	r.cache.Set(ctx, username, *p)
	logger.Debug("Profile resolved from directory",
		zap.String("username", username),
		zap.Duration("duration", time.Since(start)))
	return *p, nil
}

// LookupGroups asks the directory for subject's groups under the same timeout.
func (r *Resolver) LookupGroups(ctx context.Context, subject string) ([]string, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	start := time.Now()
	groups, err := r.directory.LookupGroups(lookupCtx, subject)
	if err != nil {
		return nil, r.classify(err, subject, time.Since(start))
	}
	return groups, nil
}

func (r *Resolver) classify(err error, key string, elapsed time.Duration) error {
	switch {
	case errors.Is(err, authz_errors.ErrProfileNotFound):
		logger.Info("Profile not found in directory", zap.String("key", key))
		return err
	case errors.Is(err, context.DeadlineExceeded):
		logger.Warn("Directory lookup timed out",
			zap.String("key", key),
			zap.Duration("elapsed", elapsed),
			zap.Duration("timeout", r.timeout))
		return fmt.Errorf("%w: directory timeout after %s: %w", authz_errors.ErrProfileNotFound, elapsed, err)
	case errors.Is(err, authz_errors.ErrDirectoryUnavailable):
		logger.Error("Directory unavailable", zap.String("key", key), zap.Error(err))
		return err
	default:
		logger.Error("Directory lookup failed", zap.String("key", key), zap.Error(err))
		return fmt.Errorf("%w: %v", authz_errors.ErrDirectoryUnavailable, err)
	}
}

func clone(p model.SecurityProfile) *model.SecurityProfile {
	p.AuthorizedCountries = append([]string(nil), p.AuthorizedCountries...)
	return &p
}
