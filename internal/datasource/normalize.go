package datasource

import (
	"strconv"

	"github.com/rah-0/orbit/internal/models"
	"github.com/rah-0/orbit/internal/utils"
)

// NormalizeLaunch maps one upstream record to a Launch. Missing optional
// fields stay nil; a missing flight number becomes id 0 and a missing launch
// date becomes an empty cursor.
func NormalizeLaunch(l models.UpstreamLaunch) models.Launch {
	launch := models.Launch{
		ID: utils.ValueOr(l.FlightNumber, 0),
		Mission: models.Mission{
			Name: l.MissionName,
		},
	}

	if l.LaunchDateUnix != nil {
		launch.Cursor = strconv.FormatInt(*l.LaunchDateUnix, 10)
	}
	if l.LaunchSite != nil {
		launch.Site = l.LaunchSite.SiteName
	}
	if l.Links != nil {
		launch.Mission.MissionPatchSmall = l.Links.MissionPatchSmall
		launch.Mission.MissionPatchLarge = l.Links.MissionPatch
	}
	if l.Rocket != nil {
		launch.Rocket = models.Rocket{
			ID:   l.Rocket.RocketID,
			Name: l.Rocket.RocketName,
			Type: l.Rocket.RocketType,
		}
	}
	return launch
}
