// Evaljudge scores the sales agent against a golden dataset, using the
// model itself as a PASS/FAIL judge on single-turn replies.
package main

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashureev/upsell-agent/internal/agent"
	"github.com/ashureev/upsell-agent/internal/config"
	"github.com/ashureev/upsell-agent/internal/knowledge"
)

var (
	datasetPath string
	modelName   string
	minPassRate float64
	verbose     bool
)

var rootCmd = &cobra.Command{
	Use:   "evaljudge",
	Short: "Score the sales agent against a golden dataset",
	Long: `Runs every row of the golden dataset through the agent as a single-turn
conversation and asks the model to judge each reply PASS or FAIL against the
row's expected outcome. Prints per-row results and the overall pass rate.`,
	SilenceUsage: true,
	RunE:         runEval,
}

func init() {
	rootCmd.Flags().StringVarP(&datasetPath, "dataset", "d", "golden_dataset.csv", "CSV with id,user_input,expected_outcome columns")
	rootCmd.Flags().StringVar(&modelName, "model", "", "override GEMINI_MODEL")
	rootCmd.Flags().Float64Var(&minPassRate, "min-pass-rate", 0, "exit non-zero when the pass rate (0-100) is below this")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log agent internals")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runEval(cmd *cobra.Command, _ []string) error {
	_ = godotenv.Load()

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if modelName != "" {
		cfg.Generation.Model = modelName
	}
	if !cfg.HasCredential() {
		return fmt.Errorf("GOOGLE_API_KEY is required to run the judge")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gen, err := agent.NewGeminiGenerator(ctx, cfg.Generation.APIKey, cfg.Generation.Model)
	if err != nil {
		return fmt.Errorf("init gemini client: %w", err)
	}
	svc := agent.NewService(gen, knowledge.NewSource(cfg.Generation.KnowledgePath, logger), agent.Options{
		Temperature: cfg.Generation.Temperature,
		Timeout:     cfg.Generation.Timeout,
	}, logger)

	f, err := os.Open(datasetPath)
	if err != nil {
		return fmt.Errorf("open dataset: %w", err)
	}
	defer f.Close()

	report, err := evaluate(ctx, svc, f, cmd.OutOrStdout())
	if err != nil {
		return err
	}
	if report.Total > 0 && report.PassRate() < minPassRate {
		return fmt.Errorf("pass rate %.1f%% below threshold %.1f%%", report.PassRate(), minPassRate)
	}
	return nil
}
