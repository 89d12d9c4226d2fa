// Package graph binds the GraphQL schema to the operation entry points.
package graph

import (
	"context"
	_ "embed"
	"fmt"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/rs/zerolog"
)

//go:embed schema.graphql
var schemaSDL string

// SDL returns the schema definition served by the API
func SDL() string {
	return schemaSDL
}

// NewSchema parses the schema against the root resolver. maxParallelism
// bounds how many field resolvers run at once within one operation.
func NewSchema(maxParallelism int, logger zerolog.Logger) (*graphql.Schema, error) {
	opts := []graphql.SchemaOpt{
		graphql.UseStringDescriptions(),
		graphql.Logger(panicLogger{logger: logger}),
	}
	if maxParallelism > 0 {
		opts = append(opts, graphql.MaxParallelism(maxParallelism))
	}

	schema, err := graphql.ParseSchema(schemaSDL, &Resolver{}, opts...)
	if err != nil {
		return nil, fmt.Errorf("parsing schema: %w", err)
	}
	return schema, nil
}

// panicLogger reports resolver panics through zerolog
type panicLogger struct {
	logger zerolog.Logger
}

func (l panicLogger) LogPanic(ctx context.Context, value interface{}) {
	l.logger.Error().Interface("panic", value).Msg("graphql resolver panic")
}
