package scanner

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper releases expired timeouts. Implemented by timeout.Engine.
type Sweeper interface {
	Sweep(ctx context.Context) int
}

// StartTimeoutSweeper runs one sweep every interval until done is closed.
// A panicking pass is logged and the loop keeps going.
func StartTimeoutSweeper(sweeper Sweeper, interval time.Duration, done <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Info().Dur("interval", interval).Msg("Timeout sweeper started")
	for {
		select {
		case <-ticker.C:
			runSweep(ctx, sweeper)
		case <-done:
			log.Info().Msg("Timeout sweeper stopped")
			return
		}
	}
}

func runSweep(ctx context.Context, sweeper Sweeper) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("Recovered from panic in timeout sweep")
		}
	}()
	if n := sweeper.Sweep(ctx); n > 0 {
		log.Info().Int("released", n).Msg("Released expired timeouts")
	}
}
