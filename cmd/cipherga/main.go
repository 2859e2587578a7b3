package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"cipherga/internal/evo"
	"cipherga/pkg/cipherga"
)

var (
	configPath string
	logLevel   string
	logFormat  string
	storeKind  string
	dbPath     string

	cfg    Config
	logger *slog.Logger

	rootCmd = &cobra.Command{
		Use:           "cipherga",
		Short:         "Recover substitution cipher keys with a genetic algorithm",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			loaded, err := LoadConfig(configPath)
			if err != nil {
				return err
			}
			cfg = loaded
			applyRootFlags(cmd, &cfg)
			logger = newLogger(cfg.Log)
			return nil
		},
	}

	solveCmd = &cobra.Command{
		Use:   "solve",
		Short: "Evolve a key for the configured cipher",
		Args:  cobra.NoArgs,
		RunE:  runSolve,
	}

	runsCmd = &cobra.Command{
		Use:   "runs",
		Short: "List recorded runs, newest first",
		Args:  cobra.NoArgs,
		RunE:  runRuns,
	}

	generationsCmd = &cobra.Command{
		Use:   "generations",
		Short: "Show per-generation statistics of a run",
		Args:  cobra.NoArgs,
		RunE:  runGenerations,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "cipherga.yaml", "path to the YAML config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format: text or json")
	rootCmd.PersistentFlags().StringVar(&storeKind, "store", "", "run store: memory or sqlite")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "sqlite database path")

	rootCmd.AddCommand(solveCmd)
	solveCmd.Flags().String("cipher", "", "cipher definition file (YAML or JSON)")
	solveCmd.Flags().String("text", "", "inline ciphertext: whitespace-separated symbols, or one symbol per character when it has no whitespace")
	solveCmd.Flags().Int("population", 0, "population size")
	solveCmd.Flags().Int("generations", 0, "max generations, negative runs until interrupted")
	solveCmd.Flags().Int("elitism", 0, "individuals carried over unchanged")
	solveCmd.Flags().Float64("mutation-rate", 0, "probability of each mutation attempt")
	solveCmd.Flags().Int("max-mutations", 0, "mutation attempts per individual")
	solveCmd.Flags().String("selector", "", "parent selector, one of: "+strings.Join(evo.ListSelectors(), ", "))
	solveCmd.Flags().Int("tournament-size", 0, "tournament selector size")
	solveCmd.Flags().Int64("seed", 0, "random seed, zero seeds from the clock")
	solveCmd.Flags().Int("workers", 0, "task pool workers, zero uses one per CPU")
	solveCmd.Flags().Bool("compare-known", false, "score the best key against the known solution")
	solveCmd.Flags().String("metrics-addr", "", "serve prometheus metrics on this address")
	solveCmd.Flags().Bool("json", false, "emit the result as JSON")

	rootCmd.AddCommand(runsCmd)
	runsCmd.Flags().Int("limit", 20, "max runs to list")
	runsCmd.Flags().Bool("json", false, "emit runs as JSON")

	rootCmd.AddCommand(generationsCmd)
	generationsCmd.Flags().String("run-id", "", "run to show")
	generationsCmd.Flags().Bool("latest", false, "show the most recent run")
	generationsCmd.Flags().Bool("json", false, "emit generations as JSON")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func applyRootFlags(cmd *cobra.Command, c *Config) {
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		c.Log.Level = logLevel
	}
	if flags.Changed("log-format") {
		c.Log.Format = logFormat
	}
	if flags.Changed("store") {
		c.Store.Kind = storeKind
	}
	if flags.Changed("db-path") {
		c.Store.Path = dbPath
	}
}

func applySolveFlags(cmd *cobra.Command, c *Config) {
	flags := cmd.Flags()
	if flags.Changed("cipher") {
		c.Cipher.File, _ = flags.GetString("cipher")
	}
	if flags.Changed("text") {
		c.Cipher.File = ""
		c.Cipher.Ciphertext, _ = flags.GetString("text")
	}
	if flags.Changed("population") {
		c.Algorithm.PopulationSize, _ = flags.GetInt("population")
	}
	if flags.Changed("generations") {
		c.Algorithm.MaxGenerations, _ = flags.GetInt("generations")
	}
	if flags.Changed("elitism") {
		c.Algorithm.Elitism, _ = flags.GetInt("elitism")
	}
	if flags.Changed("mutation-rate") {
		c.Algorithm.MutationRate, _ = flags.GetFloat64("mutation-rate")
	}
	if flags.Changed("max-mutations") {
		c.Algorithm.MaxMutationsPerIndividual, _ = flags.GetInt("max-mutations")
	}
	if flags.Changed("selector") {
		c.Algorithm.Selector, _ = flags.GetString("selector")
	}
	if flags.Changed("tournament-size") {
		c.Algorithm.TournamentSize, _ = flags.GetInt("tournament-size")
	}
	if flags.Changed("seed") {
		c.Algorithm.Seed, _ = flags.GetInt64("seed")
	}
	if flags.Changed("workers") {
		c.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("compare-known") {
		c.Algorithm.CompareToKnownSolution, _ = flags.GetBool("compare-known")
	}
	if flags.Changed("metrics-addr") {
		c.Metrics.Addr, _ = flags.GetString("metrics-addr")
	}
}

func openClient(ctx context.Context) (*cipherga.Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := cipherga.New(cipherga.Options{
		StoreKind: cfg.Store.Kind,
		DBPath:    cfg.Store.Path,
		Workers:   cfg.Workers,
		Logger:    logger,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func runSolve(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	applySolveFlags(cmd, &cfg)

	c, err := cfg.Cipher.LoadCipher()
	if err != nil {
		return err
	}
	if cfg.Algorithm.CompareToKnownSolution && !c.HasKnownSolution() {
		return fmt.Errorf("cipher %s has no known solution to compare against", c.Name)
	}

	client, err := openClient(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if cfg.Metrics.Addr != "" {
		shutdown := serveMetrics(cfg.Metrics.Addr)
		defer shutdown()
	}

	logger.Info("solving", "cipher", c.Name, "symbols", c.Length(), "distinct", len(c.Symbols()))
	result, err := client.Solve(ctx, cipherga.SolveRequest{Cipher: c, Algorithm: cfg.Algorithm})
	if err != nil && result.RunID == "" {
		return err
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	jsonOut, _ := cmd.Flags().GetBool("json")
	if jsonOut {
		return writeJSON(cmd.OutOrStdout(), result)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "run_id=%s outcome=%s generations=%d best_fitness=%.4f\n",
		result.RunID, result.Outcome, result.Generations, result.BestFitness)
	if result.KnownSolutionProximity != nil {
		fmt.Fprintf(out, "known_solution_proximity=%.2f%%\n", *result.KnownSolutionProximity*100)
	}
	if result.Execution != nil {
		fmt.Fprintf(out, "duration=%s average_generation_ms=%d\n",
			result.Execution.Duration().Round(time.Millisecond), result.Execution.AverageGenerationMillis())
		if best, ok := result.Execution.Best(); ok {
			fmt.Fprintf(out, "best_generation=%d entropy=%.4f\n", best.Generation, best.Entropy)
		}
	}
	for _, row := range c.Grid(result.Plaintext) {
		fmt.Fprintln(out, row)
	}
	return nil
}

func runRuns(cmd *cobra.Command, _ []string) error {
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return errors.New("limit must be > 0")
	}
	client, err := openClient(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(cmd.Context(), cipherga.RunsRequest{Limit: limit})
	if err != nil {
		return err
	}
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return writeJSON(cmd.OutOrStdout(), runs)
	}
	out := cmd.OutOrStdout()
	if len(runs) == 0 {
		fmt.Fprintln(out, "no runs found")
		return nil
	}
	for _, run := range runs {
		fmt.Fprintf(out, "run_id=%s start=%s outcome=%s generations=%d best_fitness=%.4f\n",
			run.RunID, run.Start.UTC().Format(time.RFC3339), run.Outcome, run.Generations, run.BestFitness)
	}
	return nil
}

func runGenerations(cmd *cobra.Command, _ []string) error {
	runID, _ := cmd.Flags().GetString("run-id")
	latest, _ := cmd.Flags().GetBool("latest")

	client, err := openClient(cmd.Context())
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	generations, err := client.Generations(cmd.Context(), cipherga.GenerationsRequest{RunID: runID, Latest: latest})
	if err != nil {
		return err
	}
	if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
		return writeJSON(cmd.OutOrStdout(), generations)
	}
	for _, gs := range generations {
		fmt.Fprintln(cmd.OutOrStdout(), gs.String())
	}
	return nil
}

func serveMetrics(addr string) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "addr", addr, "err", err)
		}
	}()
	logger.Info("serving metrics", "addr", addr)
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
