package service

import (
	"time"

	"github.com/packline/api/internal/database"
)

// Progress is the whole-percent share of items picked (substitutions count,
// since they set picked in storage). Always derived from the rows passed in,
// never cached: callers re-read before every check so concurrent writers
// cannot be judged against a stale snapshot. Zero items means zero percent.
func Progress(items []database.OrderItem) int {
	if len(items) == 0 {
		return 0
	}
	picked := 0
	for _, it := range items {
		if it.Picked {
			picked++
		}
	}
	return picked * 100 / len(items)
}

func CanFinalize(items []database.OrderItem) bool {
	return Progress(items) == 100
}

// ElapsedMinutes reports how long the order has been worked, up to its
// finalization or now for a live order. Reporting only.
func ElapsedMinutes(o database.Order, now time.Time) int64 {
	end := now
	if o.FinalizedAt.Valid {
		end = o.FinalizedAt.Time
	}
	return int64(end.Sub(o.StartedAt) / time.Minute)
}
