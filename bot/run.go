package bot

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// Run opens the gateway connection, starts the sweeper and blocks until ctx
// is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	if err := b.Session.Open(); err != nil {
		b.Close()
		return fmt.Errorf("error opening connection: %w", err)
	}
	b.StartedAt = time.Now()

	b.scheduler.Start()

	log.Info().Msg("Bot is now running")
	<-ctx.Done()

	b.Close()
	return nil
}
