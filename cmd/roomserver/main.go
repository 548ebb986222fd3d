// Command roomserver runs the multiplayer room coordinator: REST room
// management plus WebSocket game streaming.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/cory-johannsen/parlor/internal/config"
	"github.com/cory-johannsen/parlor/internal/game/bot"
	"github.com/cory-johannsen/parlor/internal/game/ruleset"
	"github.com/cory-johannsen/parlor/internal/game/shithead"
	"github.com/cory-johannsen/parlor/internal/observability"
	"github.com/cory-johannsen/parlor/internal/room"
	"github.com/cory-johannsen/parlor/internal/roomserver"
	"github.com/cory-johannsen/parlor/internal/server"
	"github.com/cory-johannsen/parlor/internal/session"
)

func main() {
	configPath := flag.String("config", "configs/dev.yaml", "path to configuration file")
	decksPath := flag.String("decks", "content/decks", "path to deck definitions")
	flag.Parse()

	if err := run(*configPath, *decksPath); err != nil {
		fmt.Fprintf(os.Stderr, "roomserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, decksPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	providers, err := buildProviders(decksPath)
	if err != nil {
		return err
	}

	registry := room.NewRegistry(cfg.Rooms, providers, logger)
	sessions := session.NewManager(logger)
	registry.SetBroadcaster(roomserver.NewBroadcaster(sessions, logger))
	registry.SetOnRemove(sessions.DetachRoom)

	dispatcher := roomserver.NewDispatcher(registry, sessions, logger)
	bots := bot.NewRunner(registry, sessions, dispatcher, cfg.Session.SendBuffer, logger)
	handlers := roomserver.NewHandlers(cfg, registry, sessions, dispatcher, bots, shithead.GameType, logger)

	logger.Info("starting room server",
		zap.String("addr", cfg.Server.Addr()),
		zap.Strings("game_types", providers.Names()),
	)

	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	lifecycle := server.NewLifecycle(logger)
	lifecycle.Add("http", &server.HTTPService{
		Server:          roomserver.NewHTTPServer(cfg.Server, handlers),
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	lifecycle.Add("sweeper", &server.FuncService{
		StartFn: func() error {
			registry.RunSweeper(sweepCtx)
			return nil
		},
		StopFn: stopSweeper,
	})

	return lifecycle.Run(context.Background())
}

// buildProviders loads the deck content and registers every supported game
// type against it.
func buildProviders(decksPath string) (*ruleset.Registry, error) {
	decks, err := ruleset.LoadDecks(decksPath)
	if err != nil {
		return nil, fmt.Errorf("loading decks: %w", err)
	}
	standard, ok := ruleset.FindDeck(decks, "standard")
	if !ok {
		return nil, fmt.Errorf("deck %q not found in %s", "standard", decksPath)
	}

	providers := ruleset.NewRegistry()
	if err := providers.Register(shithead.GameType, shithead.NewProvider(standard)); err != nil {
		return nil, err
	}
	return providers, nil
}
