// Package pagination slices an already ordered sequence into cursor pages.
package pagination

import (
	"fmt"

	"github.com/rah-0/orbit/internal/apperrors"
	"github.com/rah-0/orbit/internal/utils"
)

// DefaultPageSize is used when the caller does not pass a page size
const DefaultPageSize = 20

// Page is a contiguous slice of the input plus its continuation state
type Page[T any] struct {
	Items   []T
	Cursor  *string // Cursor of the last item, nil when Items is empty or it has none
	HasMore bool    // Last item's cursor differs from the sequence's last cursor
}

// Paginate returns at most pageSize items following the item whose cursor
// equals after. An empty after starts at the beginning. An after that matches
// nothing also starts at the beginning. Items with an empty cursor never
// match after, so a page ending on one gets a nil cursor rather than one that
// would restart the sequence.
func Paginate[T any](items []T, after string, pageSize int, cursorOf func(T) string) (Page[T], error) {
	if pageSize < 1 {
		return Page[T]{}, apperrors.New(apperrors.CodeInvalidArgument, fmt.Sprintf("pageSize must be >= 1, got %d", pageSize))
	}

	start := 0
	if after != "" {
		if idx := indexOf(items, after, cursorOf); idx >= 0 {
			start = idx + 1
		}
	}

	end := min(start+pageSize, len(items))
	page := Page[T]{Items: items[start:end:end]}
	if len(page.Items) == 0 {
		page.Items = []T{}
		return page, nil
	}

	last := cursorOf(page.Items[len(page.Items)-1])
	page.Cursor = utils.NonEmpty(last)
	page.HasMore = last != cursorOf(items[len(items)-1])
	return page, nil
}

func indexOf[T any](items []T, cursor string, cursorOf func(T) string) int {
	for i, item := range items {
		if c := cursorOf(item); c != "" && c == cursor {
			return i
		}
	}
	return -1
}
