package graph

import (
	"context"
	"strconv"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/rah-0/orbit/internal/models"
	"github.com/rah-0/orbit/internal/operations"
	"github.com/rah-0/orbit/internal/utils"
)

type launchResolver struct {
	launch models.Launch
}

func launchResolvers(launches []models.Launch) []*launchResolver {
	out := make([]*launchResolver, len(launches))
	for i, launch := range launches {
		out[i] = &launchResolver{launch: launch}
	}
	return out
}

func (r *launchResolver) ID() graphql.ID {
	return graphql.ID(strconv.Itoa(r.launch.ID))
}

func (r *launchResolver) Site() *string {
	return r.launch.Site
}

func (r *launchResolver) Mission() *missionResolver {
	return &missionResolver{mission: r.launch.Mission}
}

func (r *launchResolver) Rocket() *rocketResolver {
	return &rocketResolver{rocket: r.launch.Rocket}
}

// IsBooked runs once per launch in a page; the executor may run these
// concurrently.
func (r *launchResolver) IsBooked(ctx context.Context) (bool, error) {
	op, err := operation(ctx)
	if err != nil {
		return false, err
	}
	return operations.IsBooked(ctx, op, r.launch.ID)
}

type missionResolver struct {
	mission models.Mission
}

func (r *missionResolver) Name() *string {
	return r.mission.Name
}

func (r *missionResolver) MissionPatch(args struct{ Size *string }) *string {
	return operations.MissionPatch(r.mission, utils.StringValue(args.Size))
}

type rocketResolver struct {
	rocket models.Rocket
}

func (r *rocketResolver) ID() graphql.ID {
	return graphql.ID(utils.StringValue(r.rocket.ID))
}

func (r *rocketResolver) Name() *string {
	return r.rocket.Name
}

func (r *rocketResolver) Type() *string {
	return r.rocket.Type
}

type userResolver struct {
	user models.User
}

func (r *userResolver) ID() graphql.ID {
	return graphql.ID(r.user.ID.String())
}

func (r *userResolver) Email() string {
	return r.user.Email
}

func (r *userResolver) Trips(ctx context.Context) ([]*launchResolver, error) {
	op, err := operation(ctx)
	if err != nil {
		return nil, err
	}
	launches, err := operations.Trips(ctx, op)
	if err != nil {
		return nil, err
	}
	return launchResolvers(launches), nil
}

type launchConnectionResolver struct {
	page models.LaunchPage
}

func (r *launchConnectionResolver) Cursor() *string {
	return r.page.Cursor
}

func (r *launchConnectionResolver) HasMore() bool {
	return r.page.HasMore
}

func (r *launchConnectionResolver) Launches() []*launchResolver {
	return launchResolvers(r.page.Launches)
}

type tripUpdateResolver struct {
	result models.TripUpdateResult
}

func (r *tripUpdateResolver) Success() bool {
	return r.result.Success
}

func (r *tripUpdateResolver) Message() *string {
	return r.result.Message
}

func (r *tripUpdateResolver) Launches() *[]*launchResolver {
	if r.result.Launches == nil {
		return nil
	}
	launches := launchResolvers(r.result.Launches)
	return &launches
}
