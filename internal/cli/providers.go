package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/user/ai-spend-tracker/internal/config"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List known providers and their status",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, registry, err := setup()
		if err != nil {
			return err
		}

		creds := config.NewResolver(cfg, registry.IDs())

		cellStyle := lipgloss.NewStyle().Padding(0, 1)
		t := table.New().
			Border(lipgloss.ASCIIBorder()).
			BorderRow(true).
			StyleFunc(func(row, col int) lipgloss.Style {
				return cellStyle
			}).
			Headers("ID", "NAME", "SPEND API", "CONFIGURED")

		for _, p := range registry.All() {
			_, configured := creds.Resolve(p.ID())
			t.Row(p.ID(), p.DisplayName(), yesNo(p.SupportsSpend()), yesNo(configured))
		}

		fmt.Println(t)
		return nil
	},
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
