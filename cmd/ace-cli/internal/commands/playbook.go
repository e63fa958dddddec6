package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/XiaoConstantine/ace-go/cmd/ace-cli/internal/display"
	"github.com/XiaoConstantine/ace-go/pkg/storage"
)

func NewPlaybookCommand() *cobra.Command {
	var top int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "playbook <path>",
		Short: "Inspect a playbook checkpoint",
		Long: `Show the bullets stored in a playbook checkpoint, best first. The path's
extension picks the store: .db, .sqlite and .sqlite3 open a SQLite
checkpoint, everything else a JSON file.`,
		Example: `  # Show a JSON checkpoint
  ace-cli playbook checkpoints/playbook.json

  # Show the five best bullets of a SQLite checkpoint
  ace-cli playbook checkpoints/playbook.db --top 5

  # Dump the raw snapshot for scripting
  ace-cli playbook checkpoints/playbook.db --json | jq '.bullets[].content'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := storage.Open(args[0])
			if err != nil {
				return err
			}
			defer store.Close()

			snapshot, err := store.Load(cmd.Context())
			if err != nil {
				return err
			}

			if asJSON {
				data, err := json.MarshalIndent(snapshot, "", "  ")
				if err != nil {
					return err
				}
				fmt.Println(string(data))
				return nil
			}

			fmt.Print(display.FormatPlaybook(snapshot, top))
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 0, "Show only the N best bullets (0 = all)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Dump the raw checkpoint as JSON")

	return cmd
}
