package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rah-0/orbit/internal/models"
	"golang.org/x/sync/semaphore"
)

// UserRepository defines the interface for user and booking data access.
// Every call is atomic on its own; callers get no cross-call transactions.
type UserRepository interface {
	// FindOrCreateUser returns the user stored under email, creating it first if needed
	FindOrCreateUser(ctx context.Context, email string) (*models.User, error)

	// BookTrip records a booking; booking an already booked launch succeeds
	BookTrip(ctx context.Context, userID uuid.UUID, launchID int) error

	// CancelTrip removes a booking and reports whether one existed
	CancelTrip(ctx context.Context, userID uuid.UUID, launchID int) (bool, error)

	// GetLaunchIDsByUser lists booked launch ids in booking order
	GetLaunchIDsByUser(ctx context.Context, userID uuid.UUID) ([]int, error)

	// IsBookedOnLaunch reports whether the user booked the launch
	IsBookedOnLaunch(ctx context.Context, userID uuid.UUID, launchID int) (bool, error)

	// Close releases the underlying resources
	Close() error
}

// userEntry groups together a user and its bookings
type userEntry struct {
	User  models.User
	Trips map[int]time.Time // launch id -> booked at
	Mu    *ContextMutex     // Protects Trips
}

// InMemoryRepository is an in-memory implementation of UserRepository
type InMemoryRepository struct {
	mu    *ContextMutex // Protects the users map only
	users map[string]*userEntry
	byID  map[uuid.UUID]*userEntry
	now   func() time.Time
}

var _ UserRepository = (*InMemoryRepository)(nil)

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		mu:    NewContextMutex(),
		users: make(map[string]*userEntry),
		byID:  make(map[uuid.UUID]*userEntry),
		now:   time.Now,
	}
}

func (r *InMemoryRepository) FindOrCreateUser(ctx context.Context, email string) (*models.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := strings.ToLower(email)

	if err := r.mu.Lock(ctx); err != nil {
		return nil, err
	}
	defer r.mu.Unlock()

	entry, exists := r.users[key]
	if !exists {
		id, err := uuid.NewV7()
		if err != nil {
			return nil, fmt.Errorf("generating uuid: %w", err)
		}
		entry = &userEntry{
			User: models.User{
				ID:        id,
				Email:     email,
				CreatedAt: r.now().UTC(),
			},
			Trips: make(map[int]time.Time),
			Mu:    NewContextMutex(),
		}
		r.users[key] = entry
		r.byID[id] = entry
	}

	// Hand out a copy so callers cannot mutate the stored record
	user := entry.User
	return &user, nil
}

// entry looks up a user's entry while holding the repository lock
func (r *InMemoryRepository) entry(ctx context.Context, userID uuid.UUID) (*userEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := r.mu.Lock(ctx); err != nil {
		return nil, err
	}
	entry, exists := r.byID[userID]
	r.mu.Unlock()

	if !exists {
		return nil, fmt.Errorf("no user with id %s", userID)
	}
	return entry, nil
}

func (r *InMemoryRepository) BookTrip(ctx context.Context, userID uuid.UUID, launchID int) error {
	entry, err := r.entry(ctx, userID)
	if err != nil {
		return fmt.Errorf("booking trip: %w", err)
	}

	if err := entry.Mu.Lock(ctx); err != nil {
		return err
	}
	defer entry.Mu.Unlock()

	if _, booked := entry.Trips[launchID]; !booked {
		entry.Trips[launchID] = r.now().UTC()
	}
	return nil
}

func (r *InMemoryRepository) CancelTrip(ctx context.Context, userID uuid.UUID, launchID int) (bool, error) {
	entry, err := r.entry(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("cancelling trip: %w", err)
	}

	if err := entry.Mu.Lock(ctx); err != nil {
		return false, err
	}
	defer entry.Mu.Unlock()

	if _, booked := entry.Trips[launchID]; !booked {
		return false, nil
	}
	delete(entry.Trips, launchID)
	return true, nil
}

func (r *InMemoryRepository) GetLaunchIDsByUser(ctx context.Context, userID uuid.UUID) ([]int, error) {
	entry, err := r.entry(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing trips: %w", err)
	}

	if err := entry.Mu.Lock(ctx); err != nil {
		return nil, err
	}
	trips := make([]models.Trip, 0, len(entry.Trips))
	for launchID, bookedAt := range entry.Trips {
		trips = append(trips, models.Trip{UserID: userID, LaunchID: launchID, BookedAt: bookedAt})
	}
	entry.Mu.Unlock()

	// Booking order, ties broken by launch id
	sort.SliceStable(trips, func(i, j int) bool {
		if trips[i].BookedAt.Equal(trips[j].BookedAt) {
			return trips[i].LaunchID < trips[j].LaunchID
		}
		return trips[i].BookedAt.Before(trips[j].BookedAt)
	})

	ids := make([]int, len(trips))
	for i, trip := range trips {
		ids[i] = trip.LaunchID
	}
	return ids, nil
}

func (r *InMemoryRepository) IsBookedOnLaunch(ctx context.Context, userID uuid.UUID, launchID int) (bool, error) {
	entry, err := r.entry(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("checking booking: %w", err)
	}

	if err := entry.Mu.Lock(ctx); err != nil {
		return false, err
	}
	defer entry.Mu.Unlock()

	_, booked := entry.Trips[launchID]
	return booked, nil
}

// Close is a no-op for the in-memory store
func (r *InMemoryRepository) Close() error {
	return nil
}

// ContextMutex is a context-aware mutex that can be cancelled
// It uses semaphore.Weighted under the hood to support context cancellation
type ContextMutex struct {
	sem *semaphore.Weighted
}

// NewContextMutex creates a new context-aware mutex
func NewContextMutex() *ContextMutex {
	return &ContextMutex{
		sem: semaphore.NewWeighted(1),
	}
}

// Lock acquires the lock, blocking until it is available or the context is cancelled
func (m *ContextMutex) Lock(ctx context.Context) error {
	return m.sem.Acquire(ctx, 1)
}

// Unlock releases the lock
func (m *ContextMutex) Unlock() {
	m.sem.Release(1)
}
