package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"launchpad/adapters/memory"
	"launchpad/config"
	"launchpad/native/launch"
	"launchpad/observability/logging"
	"launchpad/rpc"
	"launchpad/state"
	"launchpad/storage"
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "./config.toml", "path to the launchpad config file")
	flag.Parse()

	if err := run(configPath); err != nil {
		fmt.Fprintf(os.Stderr, "launchpadd: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup("launchpadd", cfg.Env, cfg.LogFile)

	db, err := storage.NewLevelDB(cfg.DataDir)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	store := state.NewLaunchStore(db)
	if err := seedParams(store, cfg); err != nil {
		return fmt.Errorf("seed params: %w", err)
	}

	pools := memory.NewPoolBackend()
	tokens := memory.NewTokenBackend()
	pools.BindSettlement(tokens, store, config.Address(cfg.VaultAddress))

	engine := launch.NewEngine()
	engine.SetState(store)
	engine.SetPoolBackend(pools)
	engine.SetTokenBackend(tokens)
	engine.SetAdmin(config.Address(cfg.AdminAddress))
	engine.SetTreasury(config.Address(cfg.TreasuryAddress))
	engine.SetVaultAuthority(config.Address(cfg.VaultAddress))

	server := rpc.NewServer(engine, logger, rpc.RateLimit{
		RequestsPerMinute: cfg.RateLimitPerMinute,
		Burst:             cfg.RateLimitBurst,
	})

	httpServer := &http.Server{
		Addr:              cfg.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.ListenAddress, "env", cfg.Env)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case sig := <-stop:
		logger.Info("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// seedParams writes the configuration singleton on first boot. An existing
// singleton always wins over the genesis file.
func seedParams(store *state.LaunchStore, cfg *config.Config) error {
	_, ok, err := store.ParamsGet()
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	params := cfg.LaunchParams()
	return store.ParamsPut(&params)
}
