package repo

import (
	"errors"
	"slices"

	"github.com/Builder-Lawyers/certify-backend/internal/infra/db"
)

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func sortQueueItems(items []db.QueueItem) {
	slices.SortStableFunc(items, func(a, b db.QueueItem) int {
		if a.Priority != b.Priority {
			return b.Priority - a.Priority
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
}
