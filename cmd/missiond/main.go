package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"missionledger/config"
	"missionledger/core/chain"
	"missionledger/core/events"
	"missionledger/core/state"
	"missionledger/native/missions"
	"missionledger/native/points"
	"missionledger/observability/logging"
	"missionledger/rpc"
	"missionledger/storage"
)

func main() {
	configFile := flag.String("config", "./config.toml", "Path to the configuration file")
	flag.Parse()

	env := strings.TrimSpace(os.Getenv("MISSIONLEDGER_ENV"))
	logger := logging.Setup("missiond", env)

	cfg, err := config.Load(*configFile)
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		panic(fmt.Sprintf("Failed to open database: %v", err))
	}
	defer db.Close()

	manager := state.NewManager(db)
	if err := applyGenesis(manager, cfg, logger); err != nil {
		logger.Error("Failed to apply genesis", slog.Any("error", err))
		os.Exit(1)
	}

	clock, err := chain.NewClock(manager)
	if err != nil {
		logger.Error("Failed to load chain height", slog.Any("error", err))
		os.Exit(1)
	}

	emitter := events.LogEmitter{Logger: logger}
	pauses := cfg.PauseView()

	registry := missions.NewRegistry(manager, manager)
	registry.SetEmitter(emitter)
	registry.SetPauses(pauses)
	registry.SetNowFunc(clock.Now)

	engine := missions.NewEngine(manager, manager)
	engine.SetEmitter(emitter)
	engine.SetPauses(pauses)

	ledger := points.NewEngine(manager, cfg.AchievementTable())
	ledger.SetEmitter(emitter)
	ledger.SetPauses(pauses)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := clock.Run(ctx, chain.DefaultBlockInterval); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Height clock stopped", slog.Any("error", err))
			stop()
		}
	}()

	server := rpc.NewServer(registry, engine, ledger)
	logger.Info("Starting RPC server",
		slog.String("address", cfg.RPCAddress),
		slog.String("network", cfg.NetworkName),
		slog.Uint64("height", clock.Now()),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start(cfg.RPCAddress)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-errCh:
		logger.Error("RPC server stopped", slog.Any("error", err))
		os.Exit(1)
	}
}

// applyGenesis seeds the state store on first start and verifies the stored
// identity matches the configuration on subsequent starts.
func applyGenesis(manager *state.Manager, cfg *config.Config, logger *slog.Logger) error {
	initialized, err := manager.Initialized()
	if err != nil {
		return err
	}
	owner, err := cfg.OwnerAddress()
	if err != nil {
		return err
	}
	if initialized {
		stored, err := manager.ContractOwner()
		if err != nil {
			return err
		}
		if stored != owner {
			return fmt.Errorf("stored contract owner does not match configuration")
		}
		return nil
	}
	distributor, err := cfg.DistributorAddress()
	if err != nil {
		return err
	}
	if err := manager.InitGenesis(owner, distributor, cfg.Genesis.GlobalMultiplier); err != nil {
		return err
	}
	logger.Info("Applied genesis",
		slog.String("owner", cfg.Genesis.Owner),
		slog.String("distributor", cfg.Genesis.RewardDistributor),
		slog.Uint64("multiplier", cfg.Genesis.GlobalMultiplier),
	)
	return nil
}
