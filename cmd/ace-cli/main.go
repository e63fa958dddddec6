package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/XiaoConstantine/ace-go/cmd/ace-cli/internal/commands"
)

var rootCmd = &cobra.Command{
	Use:   "ace-cli",
	Short: "ACE CLI for running learning loops and inspecting playbooks",
	Long: `A command-line interface for the ACE pipeline that makes it easy to run
adaptive learning loops and inspect the resulting playbooks without writing
boilerplate code.

The CLI provides:
- One-command learning runs over GSM8K or a local parquet file
- Playbook checkpoints (JSON or SQLite) that resume across runs
- Colored run reports with per-query outcomes
- Playbook inspection ranked by bullet score`,
	Version:      "0.1.0",
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(
		commands.NewRunCommand(),
		commands.NewPlaybookCommand(),
	)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
