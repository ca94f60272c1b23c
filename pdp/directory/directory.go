package directory

import (
	"context"

	"github.com/dev-mohitbeniwal/echo/authorizer/model"
)

// ProfileDirectory is the authoritative source of security profiles and group membership.
// GetProfile returns errors.ErrProfileNotFound for unknown users; any other error means
// the directory could not answer.
type ProfileDirectory interface {
	GetProfile(ctx context.Context, username string) (*model.SecurityProfile, error)
	LookupGroups(ctx context.Context, subject string) ([]string, error)
}
