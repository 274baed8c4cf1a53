package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/cwbudde/esmax/internal/es"
	"github.com/cwbudde/esmax/internal/objective"
	"github.com/cwbudde/esmax/internal/rng"
	"github.com/cwbudde/esmax/internal/trace"
	"github.com/spf13/cobra"
)

var (
	seed        uint32
	seedPhrase  string
	popSize     int
	sigma       float64
	alpha       float64
	generations int
	initParam   float64
	objName     string
	target      float64
	patience    int
	threshold   float64
	dataDir     string
	quiet       bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single ES optimization",
	Long: `Minimizes the selected objective with an evolution-strategy gradient
estimate and AdaMax updates, printing one line per generation.`,
	RunE: runOptimization,
}

func init() {
	defaults := es.DefaultConfig()

	runCmd.Flags().Uint32Var(&seed, "seed", defaults.Seed, "Random seed")
	runCmd.Flags().StringVar(&seedPhrase, "seed-phrase", "", "Derive the seed from a phrase (overrides --seed)")
	runCmd.Flags().IntVar(&popSize, "pop", defaults.PopSize, "Perturbations per generation")
	runCmd.Flags().Float64Var(&sigma, "sigma", defaults.Sigma, "Perturbation scale")
	runCmd.Flags().Float64Var(&alpha, "alpha", defaults.Alpha, "AdaMax learning rate")
	runCmd.Flags().IntVar(&generations, "generations", defaults.Generations, "Maximum generations")
	runCmd.Flags().Float64Var(&initParam, "init", 0, "Initial parameter (default: drawn from N(0,1))")
	runCmd.Flags().StringVar(&objName, "objective", "quadratic", fmt.Sprintf("Objective function %v", objective.Names()))
	runCmd.Flags().Float64Var(&target, "target", 0.5, "Location of the objective minimum")
	runCmd.Flags().IntVar(&patience, "patience", 0, "Stop after N generations without improvement (0 = disabled)")
	runCmd.Flags().Float64Var(&threshold, "threshold", 0.001, "Minimum relative improvement for early stopping")
	runCmd.Flags().StringVar(&dataDir, "data-dir", "", "Directory for run traces (empty = no trace)")
	runCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Suppress per-generation output")

	rootCmd.AddCommand(runCmd)
}

// buildConfig translates the run flags into an es.Config.
func buildConfig(cmd *cobra.Command) (es.Config, error) {
	cfg := es.Config{
		Seed:        seed,
		PopSize:     popSize,
		Sigma:       sigma,
		Alpha:       alpha,
		Generations: generations,
		Convergence: es.DisabledConvergenceConfig(),
	}

	if seedPhrase != "" {
		cfg.Seed = rng.SeedFromString(seedPhrase)
	}
	if cmd.Flags().Changed("init") {
		cfg = cfg.WithInitialParam(initParam)
	}
	if patience > 0 {
		cfg.Convergence = es.ConvergenceConfig{
			Enabled:   true,
			Patience:  patience,
			Threshold: threshold,
		}
	}

	if err := cfg.Validate(); err != nil {
		return es.Config{}, err
	}
	return cfg, nil
}

func runOptimization(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd)
	if err != nil {
		return err
	}

	f, err := objective.Lookup(objName, target)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	observers := []es.Observer{}
	if !quiet {
		observers = append(observers, printGeneration(out))
	}

	var (
		runID  string
		writer *trace.Writer
	)
	if dataDir != "" {
		runID = trace.NewRunID()
		writer, err = trace.NewWriter(dataDir, runID)
		if err != nil {
			return fmt.Errorf("failed to create trace: %w", err)
		}
		defer writer.Close()
		observers = append(observers, writer.Observe)
		slog.Info("Recording trace", "run_id", runID, "path", writer.Path())
	}

	result, err := es.Run(cfg, f, chain(observers))
	if err != nil {
		return fmt.Errorf("optimization failed: %w", err)
	}

	if writer != nil {
		if err := writer.Flush(); err != nil {
			return err
		}
		summary := &trace.Summary{
			RunID:     runID,
			Objective: objName,
			Target:    target,
			Config:    cfg,
			Result:    *result,
			Timestamp: time.Now(),
		}
		if err := trace.SaveSummary(dataDir, summary); err != nil {
			return fmt.Errorf("failed to save summary: %w", err)
		}
		if err := writer.Close(); err != nil {
			return fmt.Errorf("failed to close trace: %w", err)
		}
	}

	fmt.Fprintf(out, "Final after %d generations: score %g, weight %g (best %g at %g)\n",
		result.Generations, result.FinalScore, result.FinalParam, result.BestScore, result.BestParam)
	if runID != "" {
		fmt.Fprintf(out, "Run ID: %s\n", runID)
	}
	return nil
}

func printGeneration(w io.Writer) es.Observer {
	return func(g es.Generation) error {
		_, err := fmt.Fprintf(w, "Generation %d: Score - %g, Weights: %g\n", g.Index, g.Score, g.Param)
		return err
	}
}

// chain fans one generation out to several observers, stopping at the first
// error.
func chain(observers []es.Observer) es.Observer {
	if len(observers) == 0 {
		return nil
	}
	return func(g es.Generation) error {
		for _, o := range observers {
			if err := o(g); err != nil {
				return err
			}
		}
		return nil
	}
}
