package ranking

import (
	"fmt"
	"time"

	"github.com/DeafMist/bounty-radar/internal/models"
	"github.com/DeafMist/bounty-radar/internal/processing"
)

// FilterRecent keeps bounties created at or after now-threshold. Bounties
// with a zero CreatedAt are kept.
func FilterRecent(bounties []models.Bounty, threshold time.Duration, now time.Time) []models.Bounty {
	cutoff := now.Add(-threshold)
	out := make([]models.Bounty, 0, len(bounties))
	for _, b := range bounties {
		if b.CreatedAt.IsZero() || !b.CreatedAt.Before(cutoff) {
			out = append(out, b)
		}
	}
	return out
}

// Highest returns the bounty with the largest value. Ties go to the earliest one.
func Highest(bounties []models.Bounty) (models.Bounty, bool) {
	if len(bounties) == 0 {
		return models.Bounty{}, false
	}
	best := bounties[0]
	for _, b := range bounties[1:] {
		if b.Value > best.Value {
			best = b
		}
	}
	return best, true
}

// Key identifies a bounty for notification dedupe: the URL slug when the
// bounty has its own page under listing, otherwise title and value.
func Key(b models.Bounty, listing string) string {
	if slug := processing.Slug(b.URL, listing); slug != "" {
		return "slug:" + slug
	}
	return fmt.Sprintf("%s-%.2f", b.Title, b.Value)
}
