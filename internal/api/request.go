package api

import (
	"errors"
	"strings"

	"github.com/rah-0/orbit/internal/models"
)

// maxQueryBytes caps the size of a single GraphQL document
const maxQueryBytes = 64 << 10

// validateRequest ensures an incoming GraphQL request carries a usable document
func validateRequest(req models.GraphQLRequest) error {
	if strings.TrimSpace(req.Query) == "" {
		return errors.New("missing or empty query")
	}

	if len(req.Query) > maxQueryBytes {
		return errors.New("query too large")
	}

	return nil
}
