package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"code.curvance.io/curvance/broker"
	"code.curvance.io/curvance/collateral"
	"code.curvance.io/curvance/config"
	"code.curvance.io/curvance/epochtime"
	"code.curvance.io/curvance/gauge"
	"code.curvance.io/curvance/logging"
	"code.curvance.io/curvance/metrics"
	"code.curvance.io/curvance/oracles"
	"code.curvance.io/curvance/registry"
	"code.curvance.io/curvance/rewards"
	"code.curvance.io/curvance/veescrow"

	"github.com/spf13/cobra"
)

// timeService adapts the epoch clock to the oracle engine's time surface.
type timeService struct {
	clock *epochtime.Svc
}

func (t timeService) GetTimeNow() time.Time {
	return t.clock.Now()
}

// node holds the engine graph for the lifetime of the process. The run
// loop only advances time, reloads configuration and serves metrics; the
// engines expose their operations to whatever fronts the node.
type node struct {
	clock      *epochtime.Svc
	collateral *collateral.Engine
	oracles    *oracles.Engine
	escrow     *veescrow.Ledger
	rewards    *rewards.Engine
	gauge      *gauge.Engine
}

func newRunCmd() *cobra.Command {
	var genesisStr string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the node",
		RunE: func(cmd *cobra.Command, _ []string) error {
			genesis, err := time.Parse(time.RFC3339, genesisStr)
			if err != nil {
				return err
			}
			return runNode(genesis)
		},
	}
	cmd.Flags().StringVar(&genesisStr, "genesis", "2024-01-04T00:00:00Z", "protocol genesis timestamp (RFC3339)")
	return cmd
}

func runNode(genesis time.Time) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// bootstrap logger, replaced once the configuration is loaded
	log := logging.NewLoggerFromConfig(logging.NewDefaultConfig())
	defer log.AtExit()

	cfgwatchr, err := config.NewFromFile(ctx, log, rootFlags.home)
	if err != nil {
		return err
	}
	cfg := cfgwatchr.Get()
	log = logging.NewLoggerFromConfig(cfg.Logging)

	bkr, err := broker.New(ctx, log, cfg.Broker)
	if err != nil {
		return err
	}
	reg, err := registry.NewFromConfig(cfg.Registry)
	if err != nil {
		return err
	}
	clock, err := epochtime.NewService(log, cfg.EpochTime, genesis, bkr)
	if err != nil {
		return err
	}

	coll := collateral.New(log, cfg.Collateral, reg, nil)
	orcl, err := oracles.New(log, cfg.Oracles, reg, timeService{clock}, bkr, nil)
	if err != nil {
		return err
	}
	escrow, err := veescrow.New(log, cfg.VoteEscrow, clock, coll, reg, bkr)
	if err != nil {
		return err
	}
	rwd := rewards.New(log, cfg.Rewards, escrow, coll, reg, clock, bkr)
	// lock mutations are gated on the user's reward claims being settled
	escrow.SetRewardTracker(rwd)

	n := &node{
		clock:      clock,
		collateral: coll,
		oracles:    orcl,
		escrow:     escrow,
		rewards:    rwd,
		gauge:      gauge.New(log, cfg.Gauge, clock, coll, reg, bkr),
	}

	if err := metrics.Start(cfg.Metrics); err != nil {
		return err
	}

	cfgwatchr.OnConfigUpdate(func(config.Config) {
		log.Info("configuration reloaded")
	})

	log.Info("node started",
		logging.Time("genesis", genesis),
		logging.Duration("epochDuration", n.clock.Duration()),
		logging.String("rewardAsset", n.rewards.RewardAsset().Hex()),
	)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case t := <-ticker.C:
			n.clock.OnTick(ctx, t)
			cfgwatchr.OnTimeUpdate(ctx, t)
		case s := <-sig:
			log.Info("shutting down", logging.String("signal", s.String()))
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
