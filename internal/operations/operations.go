package operations

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/rah-0/orbit/internal/apperrors"
	"github.com/rah-0/orbit/internal/identity"
	"github.com/rah-0/orbit/internal/models"
	"github.com/rah-0/orbit/internal/pagination"
	"github.com/rah-0/orbit/internal/utils"
	"golang.org/x/sync/errgroup"
)

const (
	msgTripsBooked     = "trips booked successfully"
	msgTripsNotBooked  = "the following launches couldn't be booked: "
	msgTripCancelled   = "trip cancelled"
	msgCancelFailed    = "failed to cancel trip"
	existenceFanoutCap = 8
)

func launchCursor(l models.Launch) string { return l.Cursor }

// Launches pages through every launch, newest first. The upstream order is
// reversed before paginating; cursors and hasMore refer to that reversed
// order.
func Launches(ctx context.Context, op *Context, pageSize int, after string) (models.LaunchPage, error) {
	all := op.launches.GetAllLaunches(ctx)
	slices.Reverse(all)

	page, err := pagination.Paginate(all, after, pageSize, launchCursor)
	if err != nil {
		return models.LaunchPage{}, err
	}
	return models.LaunchPage{
		Launches: page.Items,
		Cursor:   page.Cursor,
		HasMore:  page.HasMore,
	}, nil
}

// Launch returns nil when the launch does not exist upstream
func Launch(ctx context.Context, op *Context, launchID int) (*models.Launch, error) {
	launch, err := op.launches.GetLaunchByID(ctx, launchID)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &launch, nil
}

// Me returns the caller, nil when anonymous
func Me(op *Context) *models.User {
	return op.identity
}

// IsBooked is false for anonymous callers
func IsBooked(ctx context.Context, op *Context, launchID int) (bool, error) {
	return op.users.IsBookedOnLaunch(ctx, launchID)
}

// Trips resolves the caller's booked launches in booking order
func Trips(ctx context.Context, op *Context) ([]models.Launch, error) {
	launchIDs, err := op.users.GetLaunchIDsByUser(ctx)
	if err != nil {
		return nil, err
	}
	if len(launchIDs) == 0 {
		return []models.Launch{}, nil
	}
	return op.launches.GetLaunchesByIDs(ctx, launchIDs)
}

// BookTrips books every launch that exists upstream. Ids with no upstream
// launch are reported in the message and make the result unsuccessful; the
// others are still booked.
func BookTrips(ctx context.Context, op *Context, launchIDs []int) (models.TripUpdateResult, error) {
	if op.identity == nil {
		return models.TripUpdateResult{}, apperrors.New(apperrors.CodeUnauthenticated, "you must be logged in")
	}

	existing, missing, err := partitionByExistence(ctx, op, launchIDs)
	if err != nil {
		return models.TripUpdateResult{}, err
	}

	booked, err := op.users.BookTrips(ctx, existing)
	if err != nil {
		return models.TripUpdateResult{}, fmt.Errorf("booking trips: %w", err)
	}

	// Every id in booked was fetched above, so this is served from the
	// operation's cache
	launches, err := op.launches.GetLaunchesByIDs(ctx, booked)
	if err != nil {
		return models.TripUpdateResult{}, err
	}

	result := models.TripUpdateResult{
		Success:  len(missing) == 0 && len(booked) == len(launchIDs),
		Launches: launches,
	}
	if result.Success {
		result.Message = utils.Ptr(msgTripsBooked)
	} else {
		result.Message = utils.Ptr(msgTripsNotBooked + joinIDs(missing))
	}
	return result, nil
}

// CancelTrip removes one booking and returns the cancelled launch
func CancelTrip(ctx context.Context, op *Context, launchID int) (models.TripUpdateResult, error) {
	cancelled, err := op.users.CancelTrip(ctx, launchID)
	if err != nil {
		return models.TripUpdateResult{}, err
	}
	if !cancelled {
		return models.TripUpdateResult{Success: false, Message: utils.Ptr(msgCancelFailed)}, nil
	}

	launch, err := op.launches.GetLaunchByID(ctx, launchID)
	if err != nil {
		return models.TripUpdateResult{}, err
	}
	return models.TripUpdateResult{
		Success:  true,
		Message:  utils.Ptr(msgTripCancelled),
		Launches: []models.Launch{launch},
	}, nil
}

// Login find-or-creates the user for email and returns its token, or nil
// when email is not a valid address
func Login(ctx context.Context, op *Context, email string) (*string, error) {
	if !identity.ValidEmail(email) {
		return nil, nil
	}
	user, err := op.users.FindOrCreateUser(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, nil
	}
	return utils.Ptr(identity.EncodeToken(email)), nil
}

// MissionPatch picks the small patch for SMALL and the large one otherwise
func MissionPatch(mission models.Mission, size string) *string {
	if size == models.PatchSizeSmall {
		return mission.MissionPatchSmall
	}
	return mission.MissionPatchLarge
}

// ParseLaunchID converts a GraphQL ID into a flight number
func ParseLaunchID(id string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(id))
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInvalidArgument, fmt.Sprintf("invalid launch id %q", id), err)
	}
	return n, nil
}

// partitionByExistence looks every id up concurrently and splits them into
// ids that exist upstream and ids that do not, both in input order
func partitionByExistence(ctx context.Context, op *Context, launchIDs []int) ([]int, []int, error) {
	found := make([]bool, len(launchIDs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(existenceFanoutCap)
	for i, launchID := range launchIDs {
		g.Go(func() error {
			_, err := op.launches.GetLaunchByID(gctx, launchID)
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			found[i] = true
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	existing := make([]int, 0, len(launchIDs))
	var missing []int
	for i, launchID := range launchIDs {
		if found[i] {
			existing = append(existing, launchID)
		} else {
			missing = append(missing, launchID)
		}
	}
	return existing, missing, nil
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ", ")
}
