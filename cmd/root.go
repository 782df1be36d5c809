package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/paraleon-ns3/paraleon/tuner"
	"github.com/paraleon-ns3/paraleon/tuner/telemetry"
	"github.com/paraleon-ns3/paraleon/tuner/trace"
)

var (
	// CLI flags for the controller
	configPath  string // YAML config; defaults apply when empty
	seed        int64  // Seed for candidate generation and Metropolis draws
	logLevel    string // Log verbosity level
	metricsAddr string // Prometheus listen address; empty disables

	// File path overrides
	sketchPath     string
	throughputPath string
	rttPath        string
	pausePath      string
	parameterPath  string
	metricLogPath  string
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "paraleon",
	Short: "Online DCQCN parameter tuner driven by flow-size telemetry",
}

// runCmd starts the monitoring loop using the config file and CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Monitor flow telemetry and tune DCQCN parameters",
	Run: func(cmd *cobra.Command, args []string) {
		setLogLevel()

		cfg := loadConfig(cmd)
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}

		metricLog, err := trace.NewMetricLog(cfg.Paths.MetricLog, true)
		if err != nil {
			logrus.Fatalf("Unable to prepare metric log: %v", err)
		}
		paramFile := tuner.NewParamFile(cfg.Paths.Parameters, tuner.DefaultSpace())

		logrus.Infof("Starting controller: sketch=%s params=%s metrics=%s seed=%d trigger=%v T0=%v Tfinal=%v cooling=%v attempts=%d",
			cfg.Paths.Sketch, paramFile.Path(), metricLog.Path(), cfg.Seed, cfg.Monitor.TriggerThreshold,
			cfg.Anneal.InitialTemperature, cfg.Anneal.FinalTemperature, cfg.Anneal.CoolingRate, cfg.Anneal.AttemptTimes)

		sketchWaiter := telemetry.NewChangeWaiter([]string{cfg.Paths.Sketch},
			telemetry.Backoff{Min: cfg.Monitor.PollMin, Max: cfg.Monitor.PollMax})
		defer func() { _ = sketchWaiter.Close() }()
		windowWaiter := telemetry.NewChangeWaiter([]string{cfg.Paths.Throughput},
			telemetry.Backoff{Min: cfg.Anneal.WaitMin, Max: cfg.Anneal.WaitMax})
		defer func() { _ = windowWaiter.Close() }()

		ctrl := tuner.NewController(cfg, tuner.ControllerOptions{
			Source: telemetry.NewFileSource(cfg.Paths.Throughput, cfg.Paths.RTT, cfg.Paths.Pause,
				cfg.Telemetry, cfg.Anneal.TuneInterval),
			Params:       paramFile,
			Metrics:      metricLog,
			SketchWaiter: sketchWaiter,
			WindowWaiter: windowWaiter,
		})

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			err := ctrl.Run(gctx)
			ctrl.Wait()
			return err
		})
		if metricsAddr != "" {
			g.Go(func() error { return serveMetrics(gctx, metricsAddr) })
		}

		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			logrus.Fatalf("Controller stopped: %v", err)
		}
		logFlowState(ctrl.Tracker())
		logrus.Info("Controller stopped.")
	},
}

// logFlowState reports how many flows each switch reported over the run.
func logFlowState(tracker *tuner.FlowTracker) {
	switches := tracker.Switches()
	logrus.Infof("Tracked %d flows across %d switches", tracker.Len(), len(switches))
	for _, sw := range switches {
		flows := tracker.Flows(sw)
		active := 0
		for _, f := range flows {
			if f.Active {
				active++
			}
		}
		logrus.Debugf("switch %s: %d flows, %d active", sw, len(flows), active)
	}
}

// serveMetrics exposes the Prometheus registry until ctx is done.
func serveMetrics(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logrus.Infof("Serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func setLogLevel() {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		logrus.Fatalf("Invalid log level: %s", logLevel)
	}
	logrus.SetLevel(level)
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "info", "Log level (trace, debug, info, warn, error, fatal, panic)")

	runCmd.Flags().StringVar(&configPath, "config", "", "Path to YAML controller configuration")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for candidate generation")
	runCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Address to serve Prometheus metrics on (e.g. :9090); empty disables")

	// Files shared with the simulation
	runCmd.Flags().StringVar(&sketchPath, "sketch", "", "Flow-sketch heavy-part file")
	runCmd.Flags().StringVar(&throughputPath, "throughput", "", "Switch port throughput file")
	runCmd.Flags().StringVar(&rttPath, "rtt", "", "RTT sample file")
	runCmd.Flags().StringVar(&pausePath, "pfc", "", "PFC pause event file")
	runCmd.Flags().StringVar(&parameterPath, "parameters", "", "DCQCN parameter file read by the simulation")
	runCmd.Flags().StringVar(&metricLogPath, "metric-log", "", "Per-round metric log")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(paramsCmd)
	rootCmd.AddCommand(exportCmd)
}
