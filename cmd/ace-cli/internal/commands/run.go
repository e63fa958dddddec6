package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/XiaoConstantine/ace-go/cmd/ace-cli/internal/display"
	"github.com/XiaoConstantine/ace-go/cmd/ace-cli/internal/runner"
	"github.com/XiaoConstantine/ace-go/pkg/config"
)

func NewRunCommand() *cobra.Command {
	var configPath string
	var datasetPath string
	var playbookPath string
	var outputPath string
	var tracePath string
	var apiKey string
	var model string
	var limit int
	var concurrency int
	var isolated bool
	var noSeed bool
	var verbose bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the learning loop over GSM8K",
		Long: `Run the full learning loop: solve each query with the current playbook in
context, grade the answer, reflect lessons out of the trace, and curate them
back into the playbook so later queries benefit.

With --playbook the playbook is checkpointed to disk and later runs resume
from it. Without flags the run uses built-in defaults; --config loads a YAML
file and flags override individual values on top.`,
		Example: `  # Ten queries against a fresh playbook
  ace-cli run --limit 10

  # Resume a SQLite checkpoint and export per-query results
  ace-cli run --playbook checkpoints/playbook.db --output results.csv

  # Measure the playbook without letting it learn
  ace-cli run --playbook checkpoints/playbook.db --isolated --limit 50

  # Local dataset copy, four queries in flight
  ace-cli run --dataset data/gsm8k_test.parquet --concurrency 4`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOrDefault(configPath)
			if err != nil {
				return err
			}

			if playbookPath != "" {
				cfg.Run.PlaybookPath = playbookPath
			}
			if outputPath != "" {
				cfg.Run.OutputPath = outputPath
			}
			if limit > 0 {
				cfg.Run.Limit = limit
			}
			if concurrency > 0 {
				cfg.Run.Concurrency = concurrency
			}
			if isolated {
				cfg.Run.Isolated = true
			}
			if apiKey != "" {
				cfg.LLM.APIKey = apiKey
			}
			if model != "" {
				cfg.LLM.ModelID = model
			}
			if noSeed {
				cfg.Playbook.Seed = false
			}
			if verbose {
				cfg.Logging.Level = "DEBUG"
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			printRunHeader(cfg, datasetPath)

			result, err := runner.Run(cmd.Context(), runner.Options{
				Config:      cfg,
				DatasetPath: datasetPath,
				TracePath:   tracePath,
			})
			if result != nil && result.Report != nil {
				fmt.Print(display.FormatReport(result.Report))
				printRunFooter(result, cfg)
			}
			return err
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "YAML config file (optional)")
	cmd.Flags().StringVar(&datasetPath, "dataset", "", "Local GSM8K parquet file (default: download the test split)")
	cmd.Flags().StringVar(&playbookPath, "playbook", "", "Playbook checkpoint path, .json or .db (default: in-memory only)")
	cmd.Flags().StringVar(&outputPath, "output", "", "Write per-query results to this CSV file")
	cmd.Flags().StringVar(&tracePath, "trace", "", "Write a runtime trace here if the run aborts (view with go tool trace)")
	cmd.Flags().StringVar(&apiKey, "api-key", "", "Anthropic API key (or set ANTHROPIC_API_KEY)")
	cmd.Flags().StringVar(&model, "model", "", "Model ID to use")
	cmd.Flags().IntVar(&limit, "limit", 0, "Limit the number of queries (0 = use all)")
	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Queries processed per window (0 = config value)")
	cmd.Flags().BoolVar(&isolated, "isolated", false, "Give every query the initial playbook and discard updates")
	cmd.Flags().BoolVar(&noSeed, "no-seed", false, "Start fresh playbooks empty instead of seeding starter strategies")
	cmd.Flags().BoolVar(&verbose, "verbose", false, "Enable debug logging")

	return cmd
}

func printRunHeader(cfg *config.Config, datasetPath string) {
	fmt.Println(display.Title.Sprint("ACE Learning Run"))
	fmt.Println(strings.Repeat("=", 40))

	dataset := "gsm8k test split (downloaded on first use)"
	if datasetPath != "" {
		dataset = datasetPath
	}
	fmt.Printf("%s %s\n", display.Label.Sprint("Dataset:"), dataset)
	fmt.Printf("%s %s\n", display.Label.Sprint("Model:"), cfg.LLM.ModelID)
	if cfg.Run.PlaybookPath != "" {
		fmt.Printf("%s %s\n", display.Label.Sprint("Checkpoint:"), cfg.Run.PlaybookPath)
	}
	if cfg.Run.Isolated {
		fmt.Printf("%s isolated (playbook updates discarded)\n", display.Label.Sprint("Mode:"))
	}

	fmt.Println(display.Warn.Sprint("Starting run..."))
	fmt.Println()
}

func printRunFooter(result *runner.Result, cfg *config.Config) {
	fmt.Println()
	if result.Restored > 0 {
		fmt.Printf("%s resumed from %d checkpointed bullet(s)\n",
			display.Dim.Sprint("note:"), result.Restored)
	}
	if result.Seeded > 0 {
		fmt.Printf("%s seeded %d starter bullet(s)\n",
			display.Dim.Sprint("note:"), result.Seeded)
	}
	if result.Saved != "" {
		fmt.Printf("%s %s\n", display.Label.Sprint("Checkpoint saved:"), result.Saved)
	}
	if cfg.Run.OutputPath != "" && result.Report != nil && len(result.Report.Results) > 0 {
		fmt.Printf("%s %s\n", display.Label.Sprint("Results written:"), cfg.Run.OutputPath)
	}
}
