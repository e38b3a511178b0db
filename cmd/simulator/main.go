package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/cogworksgames/machine-simulator/core"
	"github.com/cogworksgames/machine-simulator/internal/logging"
	"github.com/cogworksgames/machine-simulator/internal/observability"
	"github.com/cogworksgames/machine-simulator/model"
)

type options struct {
	catalogPath  string
	scenarioPath string
	steps        int
	autorun      time.Duration
	tick         time.Duration
	power        bool
	water        bool
	metricsAddr  string
	dumpSnapshot bool
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "simulator",
		Short: "Grid machine simulator",
		Long: `Runs the machine simulation over a placement scenario: builds the power
graph, enumerates powered loops, propagates electricity and water, and
prints the resulting snapshot summary.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts)
		},
	}

	cmd.Flags().StringVar(&opts.catalogPath, "catalog", "configs/components.yaml", "component catalog YAML")
	cmd.Flags().StringVar(&opts.scenarioPath, "scenario", "configs/scenario.json", "placement scenario JSON")
	cmd.Flags().IntVar(&opts.steps, "steps", 1, "number of manual steps to run (ignored with --autorun)")
	cmd.Flags().DurationVar(&opts.autorun, "autorun", 0, "run on the scheduler for this duration instead of manual steps")
	cmd.Flags().DurationVar(&opts.tick, "tick", 500*time.Millisecond, "autorun tick interval")
	cmd.Flags().BoolVar(&opts.power, "power", true, "enable the electrical phase")
	cmd.Flags().BoolVar(&opts.water, "water", true, "enable the hydraulic phase")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
	cmd.Flags().BoolVar(&opts.dumpSnapshot, "dump-snapshot", false, "print the final snapshot as JSON")

	return cmd
}

func run(opts *options) error {
	ctx := context.Background()
	log := logging.NewFromEnv()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	catalogFile, err := os.Open(opts.catalogPath)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer catalogFile.Close()
	catalog, err := model.LoadCatalog(catalogFile)
	if err != nil {
		return err
	}

	scenarioFile, err := os.Open(opts.scenarioPath)
	if err != nil {
		return fmt.Errorf("open scenario: %w", err)
	}
	defer scenarioFile.Close()
	g, summary, err := core.LoadScenario(catalog, scenarioFile)
	if err != nil {
		return err
	}
	log.Info(ctx, "scenario loaded",
		logging.Int("components", len(summary.ComponentIDs)),
		logging.Int("wires", len(summary.WireIDs)),
		logging.Int("pipes", len(summary.PipeIDs)),
	)

	var collector *observability.SimCollector
	if opts.metricsAddr != "" {
		collector, err = observability.NewSimCollector(prometheus.DefaultRegisterer)
		if err != nil {
			return fmt.Errorf("init metrics: %w", err)
		}
		collector.SetGridCounts(len(summary.ComponentIDs), len(summary.WireIDs), len(summary.PipeIDs))

		mux := http.NewServeMux()
		mux.Handle("/metrics", collector.Handler())
		go func() {
			if err := http.ListenAndServe(opts.metricsAddr, mux); err != nil {
				log.Error(ctx, "metrics server failed", logging.String("error", err.Error()))
			}
		}()
		log.Info(ctx, "metrics exposed", logging.String("addr", opts.metricsAddr))
	}

	engine := core.NewSimulationEngine(g, catalog,
		core.WithLogger(log),
		core.WithCollector(collector),
		core.WithStepInterval(opts.tick),
	)
	engine.SetPower(opts.power)
	engine.SetWater(opts.water)

	if opts.autorun > 0 {
		engine.StartSimulation()
		defer engine.StopSimulation()

		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, syscall.SIGINT, syscall.SIGTERM)
		select {
		case <-time.After(opts.autorun):
		case <-interrupt:
			log.Info(ctx, "interrupted")
		}
	} else {
		for i := 0; i < opts.steps; i++ {
			engine.RunSimulationStep()
		}
	}

	snap := engine.LastSnapshot()
	if snap == nil {
		log.Warn(ctx, "no snapshot produced")
		return nil
	}

	printSummary(snap)
	if opts.dumpSnapshot {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(snap); err != nil {
			return fmt.Errorf("encode snapshot: %w", err)
		}
	}
	return nil
}

func printSummary(snap *core.Snapshot) {
	fmt.Printf("step %d: %d loop(s), %d fault(s), %d leak(s)\n",
		snap.Step, len(snap.Loops), len(snap.Faults), len(snap.Leaks))
	for _, f := range snap.Faults {
		fmt.Printf("  fault: %s\n", f)
	}
	for _, l := range snap.Leaks {
		fmt.Printf("  leak at (%d,%d)\n", l.Cell.X, l.Cell.Y)
	}
}
