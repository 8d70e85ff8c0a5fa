package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ardanlabs/conf/v3"
	"github.com/ardanlabs/hashchain/app/services/console/commands"
	"github.com/ardanlabs/hashchain/foundation/blockchain/chain"
	"github.com/ardanlabs/hashchain/foundation/blockchain/database"
	"github.com/ardanlabs/hashchain/foundation/blockchain/difficulty"
	"github.com/ardanlabs/hashchain/foundation/blockchain/genesis"
	"github.com/ardanlabs/hashchain/foundation/events"
	"github.com/ardanlabs/hashchain/foundation/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// build is the git version of this program. It is set using build flags in the makefile.
var build = "develop"

func main() {

	// Construct the application logger. The console owns stdout so the logs
	// go to stderr.
	log, err := logger.New("CONSOLE", "stderr")
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer log.Sync()

	// Perform the startup and shutdown sequence.
	if err := run(log); err != nil {
		log.Errorw("startup", "ERROR", err)
		log.Sync()
		os.Exit(1)
	}
}

func run(log *zap.SugaredLogger) error {

	// =========================================================================
	// Configuration

	cfg := struct {
		conf.Version
		Chain struct {
			Rule        string        `conf:"default:bytes"`
			Difficulty  uint          `conf:"default:1"`
			MaxAttempts uint64        `conf:"default:0"`
			MineTimeout time.Duration `conf:"default:0s"`
		}
		Genesis struct {
			Path string
		}
	}{
		Version: conf.Version{
			Build: build,
			Desc:  "proof of work hash chain console",
		},
	}

	const prefix = "CONSOLE"
	help, err := conf.Parse(prefix, &cfg)
	if err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			fmt.Println(help)
			return nil
		}
		return fmt.Errorf("parsing config: %w", err)
	}

	// =========================================================================
	// App Starting

	log.Infow("starting service", "version", build)
	defer log.Infow("shutdown complete")

	out, err := conf.String(&cfg)
	if err != nil {
		return fmt.Errorf("generating config for output: %w", err)
	}
	log.Infow("startup", "config", out)

	// =========================================================================
	// Genesis Support

	// A genesis file overrides the chain settings and provides the deposits
	// mined before the console accepts commands.
	var deposits []database.Tx
	predicate, err := difficulty.Parse(cfg.Chain.Rule, cfg.Chain.Difficulty)
	if err != nil {
		return fmt.Errorf("parsing difficulty: %w", err)
	}
	maxAttempts := cfg.Chain.MaxAttempts

	if cfg.Genesis.Path != "" {
		gen, err := genesis.Load(cfg.Genesis.Path)
		if err != nil {
			return fmt.Errorf("loading genesis: %w", err)
		}

		if predicate, err = gen.Predicate(); err != nil {
			return fmt.Errorf("parsing difficulty: %w", err)
		}

		if gen.MaxAttempts > 0 {
			maxAttempts = gen.MaxAttempts
		}

		if deposits, err = gen.Transactions(); err != nil {
			return fmt.Errorf("loading deposits: %w", err)
		}
	}

	log.Infow("startup", "status", "chain", "predicate", predicate, "maxattempts", maxAttempts)

	// =========================================================================
	// Console Support

	traceID := uuid.NewString()

	// The events package fans the chain's events out to the console so
	// mining progress can be shown while a nonce is searched for.
	evts := events.New()
	defer evts.Shutdown()

	// The chain reports its mining and validation events through this
	// function so they land in the logs and the event subscribers.
	ev := func(v string, args ...any) {
		s := fmt.Sprintf(v, args...)
		log.Infow(s, "traceid", traceID)
		evts.Send(v, args...)
	}

	con := commands.New(commands.Config{
		Log:       log,
		Out:       os.Stdout,
		Predicate: predicate,
		Chain: chain.Config{
			MaxAttempts: maxAttempts,
			EvHandler:   ev,
		},
		MineTimeout: cfg.Chain.MineTimeout,
		Events:      evts,
		TraceID:     traceID,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := con.Seed(ctx, deposits); err != nil {
		return fmt.Errorf("seeding chain: %w", err)
	}

	if err := con.Run(ctx, os.Stdin); err != nil {
		return fmt.Errorf("reading commands: %w", err)
	}

	return nil
}
