package issuance

import (
	"context"
	"log"
	"time"

	"github.com/louisbranch/cardpress/internal/services/cards/artifacts"
	"github.com/louisbranch/cardpress/internal/services/cards/metrics"
)

// Janitor enforces artifact retention.
type Janitor struct {
	Dirs       artifacts.Dirs
	KeepCards  int
	KeepPhotos int
	Metrics    *metrics.Metrics
}

// Sweep prunes both directories once.
func (j Janitor) Sweep() artifacts.CleanupResult {
	result := j.Dirs.Cleanup(j.KeepCards, j.KeepPhotos)
	j.Metrics.AddPruned("card", result.Cards)
	j.Metrics.AddPruned("photo", result.Photos)
	if result.Cards > 0 || result.Photos > 0 {
		log.Printf("cleanup removed %d cards and %d photos", result.Cards, result.Photos)
	}
	return result
}

// Run sweeps every interval until ctx is done. A non-positive interval
// disables the loop.
func (j Janitor) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			j.Sweep()
		}
	}
}
