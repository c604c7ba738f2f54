package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"durandal/bot"
	"durandal/config"
	"durandal/events"
	"durandal/gateway"
	"durandal/handlers"
	"durandal/metrics"
	"durandal/model"
	"durandal/registry"
	"durandal/timeout"
	"durandal/utils"
	"durandal/utils/database"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var cfg *model.Config

// communityStore is what every store driver provides.
type communityStore interface {
	registry.Store
	Delete(ctx context.Context, guildID string) error
	ListGuildIDs(ctx context.Context) ([]string, error)
	Migrate() error
	Close() error
}

var rootCmd = &cobra.Command{
	Use:           "durandal",
	Short:         "Discord moderation bot with persistent timeouts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		utils.InitLogger(cfg.LogLevel, cfg.LogPretty)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd.Context())
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the bot",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runBot(cmd.Context())
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending store migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateStore(); err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Migrate(); err != nil {
			return err
		}
		log.Info().Str("driver", cfg.StoreDriver).Str("path", cfg.StorePath).Msg("Store schema is up to date")
		return nil
	},
}

var timeoutsCmd = &cobra.Command{
	Use:   "timeouts",
	Short: "Inspect stored timeouts",
}

var timeoutsListCmd = &cobra.Command{
	Use:   "list [guild-id]",
	Short: "List stored timeouts, optionally for one guild",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.ValidateStore(); err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		ctx := cmd.Context()
		var guildIDs []string
		if len(args) == 1 {
			guildIDs = args
		} else if guildIDs, err = store.ListGuildIDs(ctx); err != nil {
			return err
		}
		return listTimeouts(ctx, cmd.OutOrStdout(), store, guildIDs, time.Now())
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(timeoutsCmd)
	timeoutsCmd.AddCommand(timeoutsListCmd)
}

func openStore(cfg *model.Config) (communityStore, error) {
	switch cfg.StoreDriver {
	case model.StoreDriverBolt:
		store, err := database.OpenBoltStore(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		store, err := database.InitCommunityDB(cfg.StorePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
}

func openPublisher(url string) events.Publisher {
	if url == "" {
		return &events.NoopPublisher{}
	}
	pub, err := events.NewNATSPublisher(url)
	if err != nil {
		log.Warn().Err(err).Msg("NATS unavailable, lifecycle events disabled")
		return &events.NoopPublisher{}
	}
	log.Info().Str("url", url).Msg("Publishing lifecycle events to NATS")
	return pub
}

func runBot(parent context.Context) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	publisher := openPublisher(cfg.NATSURL)

	session, err := bot.NewSession(cfg)
	if err != nil {
		store.Close()
		publisher.Close()
		return fmt.Errorf("error creating Discord session: %w", err)
	}

	reg := registry.New(store)
	engine := timeout.NewEngine(reg, gateway.NewDiscord(session),
		timeout.WithPublisher(publisher),
		timeout.WithGatewayTimeout(cfg.GatewayTimeout),
	)
	b := bot.New(cfg, session, engine, reg, publisher, store)
	handlers.Register(b)

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return b.Run(ctx)
	})
	if cfg.MetricsAddr != "" {
		g.Go(func() error {
			return metrics.Serve(ctx, cfg.MetricsAddr)
		})
	}
	return g.Wait()
}

func listTimeouts(ctx context.Context, out io.Writer, store registry.Store, guildIDs []string, now time.Time) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "GUILD\tUSER\tEXPIRES\tREMAINING\tREASON")

	for _, guildID := range guildIDs {
		rec, err := store.Get(ctx, guildID)
		if errors.Is(err, database.ErrRecordNotFound) {
			return fmt.Errorf("no stored record for guild %s", guildID)
		}
		if err != nil {
			return err
		}
		rec.Upgrade()

		entries := make([]model.TimeoutEntry, 0, len(rec.Timeouts))
		for _, entry := range rec.Timeouts {
			entries = append(entries, entry)
		}
		model.SortByExpiry(entries)
		for _, entry := range entries {
			remaining := utils.PrintHuman(entry.Remaining(now))
			if remaining == "" {
				remaining = "expired"
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
				guildID, entry.UserID, entry.ExpiresAt.Format(time.RFC3339), remaining, entry.Reason)
		}
	}
	return w.Flush()
}
