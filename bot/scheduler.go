package bot

import (
	"sync"
	"time"

	"durandal/scanner"

	"github.com/rs/zerolog/log"
)

// Scheduler manages the background tasks of the bot.
type Scheduler struct {
	sweeper  scanner.Sweeper
	interval time.Duration
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewScheduler creates a scheduler that sweeps every interval.
func NewScheduler(sweeper scanner.Sweeper, interval time.Duration) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start launches the timeout sweeper.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		scanner.StartTimeoutSweeper(s.sweeper, s.interval, s.done)
	}()
}

// Stop ends the background tasks and waits for them. In-flight Discord calls
// are not drained.
func (s *Scheduler) Stop() {
	s.once.Do(func() {
		log.Info().Msg("Stopping scheduler...")
		close(s.done)
		s.wg.Wait()
		log.Info().Msg("Scheduler stopped")
	})
}
