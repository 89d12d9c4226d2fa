package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rah-0/orbit/internal/datasource"
	"github.com/rah-0/orbit/internal/graph"
	"github.com/rah-0/orbit/internal/identity"
	"github.com/rah-0/orbit/internal/models"
	"github.com/rah-0/orbit/internal/storage"
	"github.com/rah-0/orbit/internal/testutil/upstreamtest"
)

// graphQLResponse mirrors the response envelope written by HandleGraphQL
type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message    string         `json:"message"`
		Extensions map[string]any `json:"extensions"`
	} `json:"errors"`
}

// newTestHandler wires a handler to a fake provider with n launches
func newTestHandler(t *testing.T, users storage.UserRepository, launches int) *Handler {
	t.Helper()
	provider := upstreamtest.New(t, upstreamtest.Records(launches))
	upstream, err := datasource.NewUpstream(provider.Client(), provider.URL, 4, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to create upstream: %v", err)
	}
	schema, err := graph.NewSchema(10, zerolog.Nop())
	if err != nil {
		t.Fatalf("Failed to parse schema: %v", err)
	}
	return NewHandler(schema, upstream, users, zerolog.Nop())
}

// setupTestServer creates a test server with all routes registered
func setupTestServer(h *Handler) *httptest.Server {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return httptest.NewServer(mux)
}

// decodeJSON is a generic helper to decode JSON responses in tests
func decodeJSON[T any](t *testing.T, body io.Reader) T {
	var out T
	if err := json.NewDecoder(body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode JSON: %v", err)
	}
	return out
}

// postGraphQL sends one operation, with token as the Authorization header when set
func postGraphQL(t *testing.T, url, token, query string, vars map[string]any) *http.Response {
	t.Helper()
	payload, _ := json.Marshal(models.GraphQLRequest{Query: query, Variables: vars})
	req, err := http.NewRequest(http.MethodPost, url+"/graphql", bytes.NewBuffer(payload))
	if err != nil {
		t.Fatalf("Error creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("Error making request: %v", err)
	}
	return resp
}

func TestHandleGraphQLLaunches(t *testing.T) {
	handler := newTestHandler(t, storage.NewInMemoryRepository(), 25)
	testServer := setupTestServer(handler)
	defer testServer.Close()

	resp := postGraphQL(t, testServer.URL, "", `{ launches(pageSize: 3) { cursor hasMore launches { id } } }`, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}

	body := decodeJSON[graphQLResponse](t, resp.Body)
	if len(body.Errors) != 0 {
		t.Fatalf("Unexpected errors: %+v", body.Errors)
	}

	var data struct {
		Launches struct {
			Cursor   string `json:"cursor"`
			HasMore  bool   `json:"hasMore"`
			Launches []struct {
				ID string `json:"id"`
			} `json:"launches"`
		} `json:"launches"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}

	if len(data.Launches.Launches) != 3 || data.Launches.Launches[0].ID != "25" || data.Launches.Launches[2].ID != "23" {
		t.Errorf("Unexpected page: %+v", data.Launches.Launches)
	}
	if !data.Launches.HasMore {
		t.Errorf("Expected hasMore to be true")
	}
	if data.Launches.Cursor != upstreamtest.Cursor(23) {
		t.Errorf("Expected cursor %s, got %s", upstreamtest.Cursor(23), data.Launches.Cursor)
	}
}

func TestHandleGraphQLAuthorization(t *testing.T) {
	handler := newTestHandler(t, storage.NewInMemoryRepository(), 5)
	testServer := setupTestServer(handler)
	defer testServer.Close()

	token := identity.EncodeToken("a@b.co")

	resp := postGraphQL(t, testServer.URL, token, `mutation { bookTrips(launchIds: ["2"]) { success } }`, nil)
	resp.Body.Close()

	resp = postGraphQL(t, testServer.URL, token, `{ me { email trips { id isBooked } } }`, nil)
	defer resp.Body.Close()

	body := decodeJSON[graphQLResponse](t, resp.Body)
	if len(body.Errors) != 0 {
		t.Fatalf("Unexpected errors: %+v", body.Errors)
	}
	var data struct {
		Me struct {
			Email string `json:"email"`
			Trips []struct {
				ID       string `json:"id"`
				IsBooked bool   `json:"isBooked"`
			} `json:"trips"`
		} `json:"me"`
	}
	if err := json.Unmarshal(body.Data, &data); err != nil {
		t.Fatalf("Failed to decode data: %v", err)
	}
	if data.Me.Email != "a@b.co" {
		t.Errorf("Expected email a@b.co, got %s", data.Me.Email)
	}
	if len(data.Me.Trips) != 1 || data.Me.Trips[0].ID != "2" || !data.Me.Trips[0].IsBooked {
		t.Errorf("Unexpected trips: %+v", data.Me.Trips)
	}
}

func TestHandleGraphQLUnauthenticatedMutation(t *testing.T) {
	handler := newTestHandler(t, storage.NewInMemoryRepository(), 5)
	testServer := setupTestServer(handler)
	defer testServer.Close()

	// A token that does not decode to an email is anonymous, not an error
	resp := postGraphQL(t, testServer.URL, "%%%", `mutation { cancelTrip(launchId: "1") { success } }`, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeJSON[graphQLResponse](t, resp.Body)
	if len(body.Errors) != 1 || body.Errors[0].Extensions["code"] != "UNAUTHENTICATED" {
		t.Errorf("Expected one UNAUTHENTICATED error, got %+v", body.Errors)
	}
}

func TestHandleGraphQLBadRequests(t *testing.T) {
	handler := newTestHandler(t, storage.NewInMemoryRepository(), 1)
	testServer := setupTestServer(handler)
	defer testServer.Close()

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"query":`},
		{"empty query", `{"query":"   "}`},
		{"oversized query", `{"query":"` + strings.Repeat("a", maxQueryBytes+1) + `"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(testServer.URL+"/graphql", "application/json", strings.NewReader(tt.body))
			if err != nil {
				t.Fatalf("Error making request: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, resp.StatusCode)
			}
			body := decodeJSON[map[string]string](t, resp.Body)
			if body["error"] == "" {
				t.Errorf("Expected an error message")
			}
		})
	}
}

// failingUsers is a store whose every call fails
type failingUsers struct{}

var errStoreDown = errors.New("store down")

func (failingUsers) FindOrCreateUser(context.Context, string) (*models.User, error) {
	return nil, errStoreDown
}
func (failingUsers) BookTrip(context.Context, uuid.UUID, int) error { return errStoreDown }
func (failingUsers) CancelTrip(context.Context, uuid.UUID, int) (bool, error) {
	return false, errStoreDown
}
func (failingUsers) GetLaunchIDsByUser(context.Context, uuid.UUID) ([]int, error) {
	return nil, errStoreDown
}
func (failingUsers) IsBookedOnLaunch(context.Context, uuid.UUID, int) (bool, error) {
	return false, errStoreDown
}
func (failingUsers) Close() error { return nil }

func TestHandleGraphQLIdentityFailure(t *testing.T) {
	handler := newTestHandler(t, failingUsers{}, 1)
	testServer := setupTestServer(handler)
	defer testServer.Close()

	resp := postGraphQL(t, testServer.URL, identity.EncodeToken("a@b.co"), `{ me { email } }`, nil)
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Expected status code %d, got %d", http.StatusInternalServerError, resp.StatusCode)
	}
	body := decodeJSON[graphQLResponse](t, resp.Body)
	if len(body.Errors) != 1 || body.Errors[0].Extensions["code"] != "INTERNAL" {
		t.Errorf("Expected one INTERNAL error, got %+v", body.Errors)
	}
}

func TestHandleHealth(t *testing.T) {
	handler := newTestHandler(t, storage.NewInMemoryRepository(), 1)
	testServer := setupTestServer(handler)
	defer testServer.Close()

	resp, err := http.Get(testServer.URL + "/health")
	if err != nil {
		t.Fatalf("Error making request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}
	body := decodeJSON[map[string]string](t, resp.Body)
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %v", body["status"])
	}
}

func TestHandleRootRedirects(t *testing.T) {
	handler := newTestHandler(t, storage.NewInMemoryRepository(), 1)
	testServer := setupTestServer(handler)
	defer testServer.Close()

	client := &http.Client{CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}}
	resp, err := client.Get(testServer.URL + "/")
	if err != nil {
		t.Fatalf("Error making request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusFound || resp.Header.Get("Location") != "/health" {
		t.Errorf("Expected redirect to /health, got %d %s", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func TestHandleMetrics(t *testing.T) {
	handler := newTestHandler(t, storage.NewInMemoryRepository(), 1)
	testServer := setupTestServer(handler)
	defer testServer.Close()

	// One upstream fetch so the orbit collectors have samples
	resp := postGraphQL(t, testServer.URL, "", `{ launch(id: "1") { id } }`, nil)
	resp.Body.Close()

	resp, err := http.Get(testServer.URL + "/metrics")
	if err != nil {
		t.Fatalf("Error making request: %v", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(raw), "orbit_upstream_fetches_total") {
		t.Errorf("Expected orbit upstream metrics in exposition")
	}
}

func TestHandleSchema(t *testing.T) {
	handler := newTestHandler(t, storage.NewInMemoryRepository(), 1)
	testServer := setupTestServer(handler)
	defer testServer.Close()

	resp, err := http.Get(testServer.URL + "/schema")
	if err != nil {
		t.Fatalf("Error making request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, resp.StatusCode)
	}
	raw, _ := io.ReadAll(resp.Body)
	if string(raw) != graph.SDL() {
		t.Errorf("Expected the embedded schema definition")
	}
	if !strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		t.Errorf("Expected text/plain, got %s", resp.Header.Get("Content-Type"))
	}
}

func TestHandleGraphQLLogsResolverErrorCodes(t *testing.T) {
	var buf bytes.Buffer
	handler := newTestHandler(t, storage.NewInMemoryRepository(), 1)
	handler.Logger = zerolog.New(&buf)
	testServer := setupTestServer(handler)
	defer testServer.Close()

	resp := postGraphQL(t, testServer.URL, "", `mutation { bookTrips(launchIds: ["1"]) { success } }`, nil)
	resp.Body.Close()

	var entry map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &entry); err != nil {
		t.Fatalf("Expected one log entry, got %q: %v", buf.String(), err)
	}
	if entry["message"] != "graphql resolver error" || entry["code"] != "UNAUTHENTICATED" {
		t.Errorf("Unexpected log entry: %v", entry)
	}
	if entry["level"] != "debug" {
		t.Errorf("Expected caller errors at debug, got %v", entry["level"])
	}
}
