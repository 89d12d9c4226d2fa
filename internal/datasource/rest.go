package datasource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rah-0/orbit/internal/apperrors"
	"github.com/rah-0/orbit/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

const maxResponseBytes = 32 << 20

var tracer = otel.Tracer("github.com/rah-0/orbit/internal/datasource")

// restClient issues GET requests against the upstream base URL. Successful
// response bodies are kept for the client's lifetime and concurrent identical
// requests share one round-trip, so each unique resource is fetched at most
// once per client.
type restClient struct {
	http    *http.Client
	baseURL *url.URL

	group singleflight.Group
	mu    sync.Mutex
	cache map[string][]byte
}

func newRESTClient(client *http.Client, baseURL *url.URL) *restClient {
	return &restClient{
		http:    client,
		baseURL: baseURL,
		cache:   make(map[string][]byte),
	}
}

// cacheKey identifies a request by resource path and sorted query
func cacheKey(resource string, query url.Values) string {
	if len(query) == 0 {
		return resource
	}
	return resource + "?" + query.Encode()
}

func (c *restClient) cached(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	body, ok := c.cache[key]
	return body, ok
}

// get returns the body of GET <base>/<resource>?<query>. The shared fetch
// is detached from the caller's cancellation so one waiter giving up never
// fails another; each caller still stops waiting when its own ctx ends.
func (c *restClient) get(ctx context.Context, resource string, query url.Values) ([]byte, error) {
	key := cacheKey(resource, query)
	if body, ok := c.cached(key); ok {
		observability.RecordUpstreamFetch(resource, observability.UpstreamHit)
		return body, nil
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if body, ok := c.cached(key); ok {
			observability.RecordUpstreamFetch(resource, observability.UpstreamHit)
			return body, nil
		}

		body, err := c.fetch(fetchCtx, resource, query)
		if err != nil {
			observability.RecordUpstreamFetch(resource, observability.UpstreamError)
			return nil, err
		}
		observability.RecordUpstreamFetch(resource, observability.UpstreamMiss)

		c.mu.Lock()
		c.cache[key] = body
		c.mu.Unlock()
		return body, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	case <-ctx.Done():
		return nil, apperrors.Wrap(apperrors.CodeUpstreamUnavailable, "fetching "+resource, ctx.Err())
	}
}

func (c *restClient) fetch(ctx context.Context, resource string, query url.Values) ([]byte, error) {
	u := c.baseURL.ResolveReference(&url.URL{Path: resource, RawQuery: query.Encode()})

	ctx, span := tracer.Start(ctx, "upstream GET "+resource,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("http.url", u.String())),
	)
	defer span.End()

	fail := func(err error) ([]byte, error) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, apperrors.Wrap(apperrors.CodeUpstreamUnavailable, "fetching "+resource, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fail(err)
	}
	req.Header.Set("Accept", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	start := time.Now()
	resp, err := c.http.Do(req)
	observability.RecordUpstreamRoundTrip(resource, time.Since(start))
	if err != nil {
		return fail(err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		return fail(fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fail(fmt.Errorf("reading body: %w", err))
	}
	return body, nil
}
