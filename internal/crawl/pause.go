package crawl

import (
	"context"
	"time"

	"github.com/drdave-teaching/craigslist-scraper/internal/metrics"
)

// pauser abstracts how the crawler waits between requests.
type pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// timerPauser sleeps on a timer but aborts early on context cancellation.
// The pause is a politeness budget serializing requests, not a backoff.
type timerPauser struct{}

func (timerPauser) Pause(ctx context.Context, delay time.Duration) {
	if delay <= 0 {
		return
	}
	metrics.ObservePolitenessDelay(delay)
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// noopPauser skips delays entirely; used in tests.
type noopPauser struct{}

func (noopPauser) Pause(context.Context, time.Duration) {}
