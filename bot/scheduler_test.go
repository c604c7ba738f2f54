package bot

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweeper struct {
	calls atomic.Int32
}

func (c *countingSweeper) Sweep(context.Context) int {
	c.calls.Add(1)
	return 0
}

func TestSchedulerStartStop(t *testing.T) {
	sweeper := &countingSweeper{}
	s := NewScheduler(sweeper, 5*time.Millisecond)
	s.Start()

	assert.Eventually(t, func() bool { return sweeper.calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)

	s.Stop()
	after := sweeper.calls.Load()
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, after, sweeper.calls.Load(), "no sweeps after Stop")

	s.Stop()
}
