package api

import (
	"encoding/json"
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"

	"github.com/rah-0/orbit/internal/apperrors"
	"github.com/rah-0/orbit/internal/datasource"
	"github.com/rah-0/orbit/internal/graph"
	"github.com/rah-0/orbit/internal/identity"
	"github.com/rah-0/orbit/internal/models"
	"github.com/rah-0/orbit/internal/operations"
	"github.com/rah-0/orbit/internal/storage"
)

const tracerName = "github.com/rah-0/orbit/internal/api"

// maxBodyBytes caps a GraphQL request body
const maxBodyBytes = 1 << 20

// Handler contains the dependencies needed for the API handlers
type Handler struct {
	Schema   *graphql.Schema
	Upstream *datasource.Upstream
	Users    storage.UserRepository
	Identity *identity.Resolver
	Logger   zerolog.Logger
}

func NewHandler(schema *graphql.Schema, upstream *datasource.Upstream, users storage.UserRepository, logger zerolog.Logger) *Handler {
	return &Handler{
		Schema:   schema,
		Upstream: upstream,
		Users:    users,
		Identity: identity.NewResolver(users),
		Logger:   logger,
	}
}

// RegisterRoutes registers all API routes with the provided http.ServeMux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Root path redirects to the health check
	mux.HandleFunc("GET /{$}", h.HandleRoot)

	// GraphQL endpoint serving queries and mutations
	mux.HandleFunc("POST /graphql", h.HandleGraphQL)

	// Schema definition for clients and code generators
	mux.HandleFunc("GET /schema", h.HandleSchema)

	// Health check endpoint
	mux.HandleFunc("GET /health", h.HandleHealth)

	// Prometheus metrics
	mux.Handle("GET /metrics", promhttp.Handler())
}

// HandleGraphQL executes one GraphQL operation
// @Summary Execute a GraphQL operation
// @Description Runs a query or mutation against the launch and trip schema. The Authorization header carries the base64 encoded email of the caller.
// @Tags graphql
// @Accept json
// @Produce json
// @Param request body models.GraphQLRequest true "GraphQL request"
// @Success 200 {object} map[string]any "GraphQL response with data and errors"
// @Failure 400 {object} map[string]any "Bad request"
// @Failure 500 {object} map[string]any "Identity could not be resolved"
// @Router /graphql [post]
func (h *Handler) HandleGraphQL(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(tracerName).Start(ctx, "graphql.operation")
	defer span.End()

	// Parse the incoming request
	var req models.GraphQLRequest
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := decoder.Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := validateRequest(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid GraphQL request: "+err.Error())
		return
	}
	span.SetAttributes(attribute.String("graphql.operation.name", req.OperationName))

	// The identity is resolved once and shared by every field of the operation
	user, err := h.Identity.Resolve(ctx, r.Header.Get("Authorization"))
	if err != nil {
		h.Logger.Error().Err(err).Msg("identity resolution failed")
		span.RecordError(err)
		respondWithJSON(w, http.StatusInternalServerError, map[string]any{
			"errors": []map[string]any{{
				"message":    "could not resolve identity",
				"extensions": apperrors.New(apperrors.CodeInternal, "").Extensions(),
			}},
		})
		return
	}

	op := operations.NewContext(user, h.Upstream.NewLaunchAPI(), datasource.NewUserAPI(h.Users, user))
	resp := h.Schema.Exec(operations.WithContext(ctx, op), req.Query, req.OperationName, req.Variables)
	if len(resp.Errors) > 0 {
		span.SetAttributes(attribute.Int("graphql.errors", len(resp.Errors)))
		h.logResolverErrors(req.OperationName, resp)
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// logResolverErrors logs resolver failures by code. Server-side classes go
// out at warn, caller mistakes at debug. Validation errors carry no resolver
// error and are skipped.
func (h *Handler) logResolverErrors(operation string, resp *graphql.Response) {
	for _, qe := range resp.Errors {
		if qe.ResolverError == nil {
			continue
		}
		code := apperrors.CodeOf(qe.ResolverError)
		event := h.Logger.Debug()
		if code == apperrors.CodeInternal || code == apperrors.CodeUpstreamUnavailable {
			event = h.Logger.Warn()
		}
		event.Err(qe.ResolverError).
			Str("operation", operation).
			Str("code", string(code)).
			Interface("path", qe.Path).
			Msg("graphql resolver error")
	}
}

// HandleSchema serves the GraphQL schema definition
// @Summary GraphQL schema
// @Description Returns the schema in GraphQL SDL
// @Tags graphql
// @Produce plain
// @Success 200 {string} string "Schema definition"
// @Router /schema [get]
func (h *Handler) HandleSchema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(graph.SDL()))
}

// HandleRoot redirects to the health check
func (h *Handler) HandleRoot(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/health", http.StatusFound)
}

// HandleHealth handles the GET /health endpoint for healthcheck
// @Summary Health check
// @Description Returns 200 OK when the service is healthy
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string "Service status"
// @Router /health [get]
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// Helper functions for HTTP responses

// respondWithError sends an error response
func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

// respondWithJSON sends a JSON response
func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	response, _ := json.Marshal(payload)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	w.Write(response)
}
