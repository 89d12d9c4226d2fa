package models

// Launch is the normalized view of one upstream launch record
type Launch struct {
	ID      int     `json:"id"`     // Upstream flight number, 0 when missing
	Cursor  string  `json:"cursor"` // Upstream launch time (unix seconds) as a string
	Site    *string `json:"site"`   // Launch site name, nil when upstream omits it
	Mission Mission `json:"mission"`
	Rocket  Rocket  `json:"rocket"`
}

// Mission holds the mission name and both stored patch image references
type Mission struct {
	Name              *string `json:"name"`
	MissionPatchSmall *string `json:"missionPatchSmall"`
	MissionPatchLarge *string `json:"missionPatchLarge"`
}

// Rocket is embedded in every launch, upstream provides it inline
type Rocket struct {
	ID   *string `json:"id"`
	Name *string `json:"name"`
	Type *string `json:"type"`
}

// LaunchPage is one page of launches plus the continuation cursor
type LaunchPage struct {
	Launches []Launch `json:"launches"`
	Cursor   *string  `json:"cursor"`  // Cursor of the last launch, nil for an empty page
	HasMore  bool     `json:"hasMore"` // Whether launches exist after Cursor
}

// TripUpdateResult summarizes a booking mutation
type TripUpdateResult struct {
	Success  bool     `json:"success"`
	Message  *string  `json:"message"`
	Launches []Launch `json:"launches"` // nil is rendered as null
}

// Patch sizes accepted by Mission.missionPatch
const (
	PatchSizeSmall = "SMALL"
	PatchSizeLarge = "LARGE"
)
