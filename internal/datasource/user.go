package datasource

import (
	"context"

	"github.com/rah-0/orbit/internal/apperrors"
	"github.com/rah-0/orbit/internal/identity"
	"github.com/rah-0/orbit/internal/models"
	"github.com/rah-0/orbit/internal/storage"
)

// UserAPI exposes booking state for the operation's identity. A nil user is
// the anonymous caller.
type UserAPI struct {
	store storage.UserRepository
	user  *models.User
}

func NewUserAPI(store storage.UserRepository, user *models.User) *UserAPI {
	return &UserAPI{store: store, user: user}
}

// FindOrCreateUser returns the current identity when there is one, otherwise
// the stored user for email. An invalid email yields nil.
func (u *UserAPI) FindOrCreateUser(ctx context.Context, email string) (*models.User, error) {
	if u.user != nil {
		return u.user, nil
	}
	if !identity.ValidEmail(email) {
		return nil, nil
	}
	return u.store.FindOrCreateUser(ctx, email)
}

func (u *UserAPI) requireUser() (*models.User, error) {
	if u.user == nil {
		return nil, apperrors.New(apperrors.CodeUnauthenticated, "you must be logged in")
	}
	return u.user, nil
}

// GetLaunchIDsByUser lists the launches the current identity booked
func (u *UserAPI) GetLaunchIDsByUser(ctx context.Context) ([]int, error) {
	user, err := u.requireUser()
	if err != nil {
		return nil, err
	}
	return u.store.GetLaunchIDsByUser(ctx, user.ID)
}

// IsBookedOnLaunch is false for anonymous callers
func (u *UserAPI) IsBookedOnLaunch(ctx context.Context, launchID int) (bool, error) {
	if u.user == nil {
		return false, nil
	}
	return u.store.IsBookedOnLaunch(ctx, u.user.ID, launchID)
}

// BookTrips books every launch in order and returns the ids that were booked.
// It stops at the first store failure and returns it alongside the ids booked
// so far.
func (u *UserAPI) BookTrips(ctx context.Context, launchIDs []int) ([]int, error) {
	user, err := u.requireUser()
	if err != nil {
		return nil, err
	}

	booked := make([]int, 0, len(launchIDs))
	for _, launchID := range launchIDs {
		if err := u.store.BookTrip(ctx, user.ID, launchID); err != nil {
			return booked, err
		}
		booked = append(booked, launchID)
	}
	return booked, nil
}

// CancelTrip reports whether a booking was removed
func (u *UserAPI) CancelTrip(ctx context.Context, launchID int) (bool, error) {
	user, err := u.requireUser()
	if err != nil {
		return false, err
	}
	return u.store.CancelTrip(ctx, user.ID, launchID)
}
