// Package operations holds one entry point per GraphQL query and mutation
// field. Entry points own no state: everything they touch comes in through
// the per-operation Context.
package operations

import (
	"context"

	"github.com/rah-0/orbit/internal/models"
)

// LaunchSource is the upstream launch catalogue as seen by one operation
type LaunchSource interface {
	GetAllLaunches(ctx context.Context) []models.Launch
	GetLaunchByID(ctx context.Context, launchID int) (models.Launch, error)
	GetLaunchesByIDs(ctx context.Context, launchIDs []int) ([]models.Launch, error)
}

// UserSource is the booking state of the operation's identity
type UserSource interface {
	FindOrCreateUser(ctx context.Context, email string) (*models.User, error)
	GetLaunchIDsByUser(ctx context.Context) ([]int, error)
	IsBookedOnLaunch(ctx context.Context, launchID int) (bool, error)
	BookTrips(ctx context.Context, launchIDs []int) ([]int, error)
	CancelTrip(ctx context.Context, launchID int) (bool, error)
}

// Context is created once per operation, before any field is resolved, and
// is read-only afterwards so concurrent field resolutions can share it.
type Context struct {
	identity *models.User
	launches LaunchSource
	users    UserSource
}

// NewContext binds an identity (nil for anonymous) and the operation's data
// sources
func NewContext(identity *models.User, launches LaunchSource, users UserSource) *Context {
	return &Context{identity: identity, launches: launches, users: users}
}

// Identity is the resolved caller, nil when anonymous
func (c *Context) Identity() *models.User {
	return c.identity
}

type contextKey struct{}

// WithContext attaches op to ctx for transports that can only pass a
// context.Context down to field resolvers
func WithContext(ctx context.Context, op *Context) context.Context {
	return context.WithValue(ctx, contextKey{}, op)
}

// FromContext returns the operation attached by WithContext
func FromContext(ctx context.Context) (*Context, bool) {
	op, ok := ctx.Value(contextKey{}).(*Context)
	return op, ok && op != nil
}
