package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rah-0/orbit/internal/apperrors"
	"github.com/rah-0/orbit/internal/models"
	"github.com/rah-0/orbit/internal/observability"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const launchesResource = "launches"

// DefaultFanoutLimit bounds concurrent lookups in GetLaunchesByIDs
const DefaultFanoutLimit = 8

var errNotCollection = errors.New("upstream response is not a collection")

// Upstream holds the process-wide settings for the upstream provider and
// hands out one LaunchAPI per operation.
type Upstream struct {
	client      *http.Client
	baseURL     *url.URL
	fanoutLimit int
	logger      zerolog.Logger
}

// NewUpstream validates baseURL; a trailing slash is added so resources
// resolve below it. fanoutLimit < 1 uses DefaultFanoutLimit.
func NewUpstream(client *http.Client, baseURL string, fanoutLimit int, logger zerolog.Logger) (*Upstream, error) {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing upstream url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("upstream url %q must be absolute", baseURL)
	}
	if client == nil {
		client = http.DefaultClient
	}
	if fanoutLimit < 1 {
		fanoutLimit = DefaultFanoutLimit
	}
	return &Upstream{
		client:      client,
		baseURL:     u,
		fanoutLimit: fanoutLimit,
		logger:      logger.With().Str("component", "launch_api").Logger(),
	}, nil
}

// NewLaunchAPI returns a LaunchAPI with an empty response cache. Use one per
// operation and drop it afterwards.
func (u *Upstream) NewLaunchAPI() *LaunchAPI {
	return &LaunchAPI{
		rest:        newRESTClient(u.client, u.baseURL),
		fanoutLimit: u.fanoutLimit,
		logger:      u.logger,
	}
}

// LaunchAPI reads launches from the upstream provider and normalizes them.
type LaunchAPI struct {
	rest        *restClient
	fanoutLimit int
	logger      zerolog.Logger
}

// GetAllLaunches returns every launch in upstream order. Fetch failures and
// non-collection responses are logged and yield an empty slice.
func (a *LaunchAPI) GetAllLaunches(ctx context.Context) []models.Launch {
	body, err := a.rest.get(ctx, launchesResource, nil)
	if err != nil {
		a.degrade(err)
		return []models.Launch{}
	}

	records, _, err := a.decodeLaunches(body)
	if err != nil {
		a.degrade(err)
		return []models.Launch{}
	}

	launches := make([]models.Launch, len(records))
	for i, record := range records {
		launches[i] = NormalizeLaunch(record)
	}
	return launches
}

// GetLaunchByID returns the launch with the given flight number. It fails
// with NotFound when upstream has no match and UpstreamUnavailable when the
// fetch fails.
func (a *LaunchAPI) GetLaunchByID(ctx context.Context, launchID int) (models.Launch, error) {
	query := url.Values{"flight_number": {strconv.Itoa(launchID)}}
	body, err := a.rest.get(ctx, launchesResource, query)
	if err != nil {
		return models.Launch{}, err
	}

	records, skipped, err := a.decodeLaunches(body)
	if err != nil {
		return models.Launch{}, apperrors.Wrap(apperrors.CodeUpstreamUnavailable, fmt.Sprintf("fetching launch %d", launchID), err)
	}
	if len(records) == 0 {
		if skipped > 0 {
			return models.Launch{}, apperrors.New(apperrors.CodeUpstreamUnavailable, fmt.Sprintf("launch %d could not be decoded", launchID))
		}
		return models.Launch{}, apperrors.New(apperrors.CodeNotFound, fmt.Sprintf("launch %d not found", launchID))
	}
	return NormalizeLaunch(records[0]), nil
}

// GetLaunchesByIDs looks up every id concurrently and returns the launches in
// the order of launchIDs. Any failed lookup fails the whole call.
func (a *LaunchAPI) GetLaunchesByIDs(ctx context.Context, launchIDs []int) ([]models.Launch, error) {
	launches := make([]models.Launch, len(launchIDs))
	if len(launchIDs) == 0 {
		return launches, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.fanoutLimit)
	for i, launchID := range launchIDs {
		g.Go(func() error {
			launch, err := a.GetLaunchByID(gctx, launchID)
			if err != nil {
				return err
			}
			launches[i] = launch
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return launches, nil
}

// decodeLaunches splits a collection body into records. Records that do not
// decode are skipped and counted.
func (a *LaunchAPI) decodeLaunches(body []byte) ([]models.UpstreamLaunch, int, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, 0, errNotCollection
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		return nil, 0, fmt.Errorf("decoding collection: %w", err)
	}

	records := make([]models.UpstreamLaunch, 0, len(raw))
	skipped := 0
	for i, item := range raw {
		var record models.UpstreamLaunch
		if err := json.Unmarshal(item, &record); err != nil {
			skipped++
			a.logger.Warn().Err(err).Int("index", i).Msg("skipping undecodable launch record")
			continue
		}
		records = append(records, record)
	}
	return records, skipped, nil
}

func (a *LaunchAPI) degrade(err error) {
	observability.RecordDegradedRead(launchesResource)
	a.logger.Warn().Err(err).Str("resource", launchesResource).Msg("launch list degraded to empty")
}
