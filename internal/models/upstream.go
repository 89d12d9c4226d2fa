package models

// UpstreamLaunch is a launch record as served by the upstream provider.
// Every field the normalizer reads is optional; the provider's shape is not
// validated anywhere else.
type UpstreamLaunch struct {
	FlightNumber   *int                `json:"flight_number"`
	LaunchDateUnix *int64              `json:"launch_date_unix"`
	MissionName    *string             `json:"mission_name"`
	LaunchSite     *UpstreamLaunchSite `json:"launch_site"`
	Links          *UpstreamLinks      `json:"links"`
	Rocket         *UpstreamRocket     `json:"rocket"`
}

type UpstreamLaunchSite struct {
	SiteID   *string `json:"site_id"`
	SiteName *string `json:"site_name"`
}

type UpstreamLinks struct {
	MissionPatch      *string `json:"mission_patch"`
	MissionPatchSmall *string `json:"mission_patch_small"`
}

type UpstreamRocket struct {
	RocketID   *string `json:"rocket_id"`
	RocketName *string `json:"rocket_name"`
	RocketType *string `json:"rocket_type"`
}
