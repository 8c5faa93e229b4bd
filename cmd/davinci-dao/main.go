package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/vocdoni/davinci-dao/api"
	"github.com/vocdoni/davinci-dao/election"
	"github.com/vocdoni/davinci-dao/log"
	"github.com/vocdoni/davinci-dao/service"
	"github.com/vocdoni/davinci-dao/storage"
	"github.com/vocdoni/davinci-dao/web3"
	"github.com/vocdoni/davinci-dao/zk"
	"go.vocdoni.io/dvote/db/metadb"
)

// Services holds all the running services
type Services struct {
	Storage *storage.Storage
	Program *election.Program
	API     *service.APIService
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	var errorOutput io.Writer
	if cfg.Log.ErrorFile != "" {
		f, err := os.OpenFile(cfg.Log.ErrorFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error opening the error log file: %v\n", err)
			os.Exit(1)
		}
		defer func() { _ = f.Close() }()
		errorOutput = f
	}
	log.Init(cfg.Log.Level, cfg.Log.Output, errorOutput)
	log.Infow("starting davinci-dao", "version", Version)

	if err := validateConfig(cfg); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	services, err := setupServices(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to setup services: %v", err)
	}
	defer shutdownServices(services)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	sig := <-sigCh
	log.Infow("received signal, shutting down", "signal", sig.String())
}

// setupServices initializes and starts all required services
func setupServices(ctx context.Context, cfg *Config) (*Services, error) {
	services := &Services{}

	verifier, err := newVerifier(cfg)
	if err != nil {
		return nil, err
	}
	opts := []election.Option{}
	var defaultVK []byte
	if cfg.ZK.VKey != "" {
		if defaultVK, err = os.ReadFile(cfg.ZK.VKey); err != nil {
			return nil, fmt.Errorf("failed to read default verifying key: %w", err)
		}
		if kv, ok := verifier.(zk.KeyValidator); ok {
			if err := kv.ValidateVerifyingKey(defaultVK); err != nil {
				return nil, fmt.Errorf("invalid default verifying key %s: %w", cfg.ZK.VKey, err)
			}
		}
		opts = append(opts, election.WithDefaultVerifyingKey(defaultVK))
		log.Infow("default verifying key loaded", "file", cfg.ZK.VKey, "hash", storage.VerifyingKeyHash(defaultVK).String())
	}
	if len(cfg.Web3.RPC) > 0 {
		pool, err := web3.Dial(ctx, cfg.Web3.RPC...)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize web3 endpoints: %w", err)
		}
		opts = append(opts, election.WithTokenBalances(web3.NewTokenBalances(pool, cfg.Web3.BalanceCacheTTL)))
		log.Infow("token balances enabled", "endpoints", len(cfg.Web3.RPC), "cacheTTL", cfg.Web3.BalanceCacheTTL.String())
	}

	typ, err := dbType(cfg.DB.Type)
	if err != nil {
		return nil, err
	}
	log.Infow("initializing storage", "datadir", cfg.Datadir, "type", typ)
	storagedb, err := metadb.New(typ, cfg.Datadir)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	services.Storage = storage.New(storagedb)
	services.Program = election.New(services.Storage, verifier, opts...)

	info := api.InfoResponse{
		Version:         Version,
		Curve:           cfg.ZK.Curve,
		AllowEmptyProof: zk.AllowsEmptyProof(verifier),
	}
	if len(defaultVK) > 0 {
		info.DefaultVerifyingKey = storage.VerifyingKeyHash(defaultVK)
	}
	log.Infow("starting API service", "host", cfg.API.Host, "port", cfg.API.Port)
	services.API = service.NewAPI(services.Program, cfg.API.Host, cfg.API.Port, info, cfg.API.DisableLogging)
	if err := services.API.Start(ctx); err != nil {
		services.Storage.Close()
		return nil, fmt.Errorf("failed to start API service: %w", err)
	}
	return services, nil
}

// newVerifier builds the groth16 verifier for the configured curve.
func newVerifier(cfg *Config) (zk.Verifier, error) {
	curve, err := zk.ParseCurve(cfg.ZK.Curve)
	if err != nil {
		return nil, err
	}
	var verifier zk.Verifier
	verifier, err = zk.NewGroth16Verifier(curve, cfg.ZK.CacheSize)
	if err != nil {
		return nil, err
	}
	if cfg.ZK.AllowEmptyProof {
		log.Warnw("empty proofs are admitted, do not use in production")
		verifier = zk.AllowEmptyProof(verifier)
	}
	return verifier, nil
}

// shutdownServices stops all running services in reverse order.
func shutdownServices(services *Services) {
	if services == nil {
		return
	}
	if services.API != nil {
		services.API.Stop()
	}
	if services.Storage != nil {
		services.Storage.Close()
	}
	log.Info("all services stopped")
}
