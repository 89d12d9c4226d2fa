package graph

import (
	"context"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/rah-0/orbit/internal/apperrors"
	"github.com/rah-0/orbit/internal/operations"
	"github.com/rah-0/orbit/internal/pagination"
)

// Resolver is the root for both Query and Mutation fields
type Resolver struct{}

func operation(ctx context.Context) (*operations.Context, error) {
	op, ok := operations.FromContext(ctx)
	if !ok {
		return nil, apperrors.New(apperrors.CodeInternal, "operation context missing")
	}
	return op, nil
}

func (r *Resolver) Launches(ctx context.Context, args struct {
	PageSize *int32
	After    *string
}) (*launchConnectionResolver, error) {
	op, err := operation(ctx)
	if err != nil {
		return nil, err
	}

	pageSize := pagination.DefaultPageSize
	if args.PageSize != nil {
		pageSize = int(*args.PageSize)
	}
	after := ""
	if args.After != nil {
		after = *args.After
	}

	page, err := operations.Launches(ctx, op, pageSize, after)
	if err != nil {
		return nil, err
	}
	return &launchConnectionResolver{page: page}, nil
}

func (r *Resolver) Launch(ctx context.Context, args struct{ ID graphql.ID }) (*launchResolver, error) {
	op, err := operation(ctx)
	if err != nil {
		return nil, err
	}
	launchID, err := operations.ParseLaunchID(string(args.ID))
	if err != nil {
		return nil, err
	}

	launch, err := operations.Launch(ctx, op, launchID)
	if err != nil || launch == nil {
		return nil, err
	}
	return &launchResolver{launch: *launch}, nil
}

func (r *Resolver) Me(ctx context.Context) (*userResolver, error) {
	op, err := operation(ctx)
	if err != nil {
		return nil, err
	}
	user := operations.Me(op)
	if user == nil {
		return nil, nil
	}
	return &userResolver{user: *user}, nil
}

func (r *Resolver) BookTrips(ctx context.Context, args struct{ LaunchIDs []*graphql.ID }) (*tripUpdateResolver, error) {
	op, err := operation(ctx)
	if err != nil {
		return nil, err
	}

	launchIDs := make([]int, 0, len(args.LaunchIDs))
	for _, id := range args.LaunchIDs {
		if id == nil {
			continue
		}
		launchID, err := operations.ParseLaunchID(string(*id))
		if err != nil {
			return nil, err
		}
		launchIDs = append(launchIDs, launchID)
	}

	result, err := operations.BookTrips(ctx, op, launchIDs)
	if err != nil {
		return nil, err
	}
	return &tripUpdateResolver{result: result}, nil
}

func (r *Resolver) CancelTrip(ctx context.Context, args struct{ LaunchID graphql.ID }) (*tripUpdateResolver, error) {
	op, err := operation(ctx)
	if err != nil {
		return nil, err
	}
	launchID, err := operations.ParseLaunchID(string(args.LaunchID))
	if err != nil {
		return nil, err
	}

	result, err := operations.CancelTrip(ctx, op, launchID)
	if err != nil {
		return nil, err
	}
	return &tripUpdateResolver{result: result}, nil
}

func (r *Resolver) Login(ctx context.Context, args struct{ Email *string }) (*string, error) {
	op, err := operation(ctx)
	if err != nil {
		return nil, err
	}
	if args.Email == nil {
		return nil, nil
	}
	return operations.Login(ctx, op, *args.Email)
}
