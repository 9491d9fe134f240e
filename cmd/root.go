package cmd

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	sim "github.com/qnetsim/qnetsim/sim"
)

var (
	// CLI flags for the run subcommand
	configPath  string  // Path to a YAML scenario file
	seed        int64   // Seed for the partitioned RNG
	horizon     float64 // Simulated-time cutoff in seconds (0 = unlimited)
	maxEvents   int64   // Processed-event cap (0 = unlimited)
	logLevel    string  // Log verbosity level
	batchWindow int     // Packets per batch-statistics window (negative disables)
	printEvents bool    // Dump the processed-event log after the report

	// Single-queue shortcut flags, used when no scenario file is given
	rate        float64 // Source arrival rate (packets/s)
	serviceRate float64 // Queue service rate (packets/s)
	capacity    int     // Queue buffer capacity K
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "qnetsim",
	Short: "Discrete-event simulator for networks of M/M/1/K queues",
}

// runCmd executes one simulation run from a scenario file or the
// single-queue shortcut flags.
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a queueing-network simulation",
	Run: func(cmd *cobra.Command, args []string) {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			logrus.Fatalf("Invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)

		var cfg *sim.ScenarioConfig
		if configPath != "" {
			cfg, err = sim.LoadScenario(configPath)
			if err != nil {
				logrus.Fatalf("Unable to load scenario: %v", err)
			}
			// Explicit flags override the file's run limits.
			if cmd.Flags().Changed("seed") {
				cfg.Seed = seed
			}
			if cmd.Flags().Changed("horizon") {
				cfg.Horizon = horizon
			}
			if cmd.Flags().Changed("max-events") {
				cfg.MaxEvents = maxEvents
			}
			if cmd.Flags().Changed("batch-window") {
				cfg.BatchWindow = batchWindow
			}
		} else {
			cfg = singleQueueScenario()
		}

		logrus.Infof("Starting simulation: seed=%d horizon=%gs max_events=%d queues=%d sources=%d",
			cfg.Seed, cfg.Horizon, cfg.MaxEvents, len(cfg.Queues), len(cfg.Sources))

		s, err := sim.NewSimulator(cfg)
		if err != nil {
			logrus.Fatalf("Unable to build simulator: %v", err)
		}
		if err := s.Run(); err != nil {
			logrus.Fatalf("Simulation aborted: %v", err)
		}

		s.Report().Print()

		if printEvents {
			for _, r := range s.Log.Records() {
				cmd.Println(r)
			}
		}

		logrus.Info("Simulation complete.")
	},
}

// singleQueueScenario synthesizes a one-queue scenario from the shortcut
// flags: a single Poisson source feeding a single M/M/1/K queue whose
// departures exit to the sink.
func singleQueueScenario() *sim.ScenarioConfig {
	return &sim.ScenarioConfig{
		Seed:        seed,
		Horizon:     horizon,
		MaxEvents:   maxEvents,
		BatchWindow: batchWindow,
		Queues: []sim.QueueConfig{
			{ID: 0, Name: "Queue 0", Capacity: capacity, ServiceRate: serviceRate},
		},
		Sources: []sim.SourceConfig{
			{ID: 0, Rate: rate, Destination: 0},
		},
	}
}

// Execute runs the CLI root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// init sets up CLI flags and subcommands
func init() {
	runCmd.Flags().StringVar(&configPath, "config", "", "Path to a YAML scenario file")
	runCmd.Flags().Int64Var(&seed, "seed", 42, "Seed for deterministic random streams")
	runCmd.Flags().Float64Var(&horizon, "horizon", 1000, "Simulated-time cutoff in seconds (0 = unlimited)")
	runCmd.Flags().Int64Var(&maxEvents, "max-events", 0, "Stop after this many processed events (0 = unlimited)")
	runCmd.Flags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")
	runCmd.Flags().IntVar(&batchWindow, "batch-window", 0, "Packets per batch-statistics window (0 = default, negative = disabled)")
	runCmd.Flags().BoolVar(&printEvents, "print-events", false, "Dump the processed-event log after the report")

	// Single-queue shortcut
	runCmd.Flags().Float64Var(&rate, "rate", 5.0, "Source arrival rate in packets/s (single-queue mode)")
	runCmd.Flags().Float64Var(&serviceRate, "service-rate", 10.0, "Queue service rate in packets/s (single-queue mode)")
	runCmd.Flags().IntVar(&capacity, "capacity", 5, "Queue buffer capacity K (single-queue mode)")

	rootCmd.AddCommand(runCmd)
}
