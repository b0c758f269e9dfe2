package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/user/ai-spend-tracker/internal/adapter"
	"github.com/user/ai-spend-tracker/internal/config"
	"github.com/user/ai-spend-tracker/internal/provider"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.DefaultConfigPath()
		}

		registry := provider.NewRegistry()
		adapter.RegisterAll(registry)

		if err := config.WriteStarter(path, registry.IDs()); err != nil {
			if os.IsExist(err) {
				return fmt.Errorf("config file already exists: %s", path)
			}
			return err
		}

		fmt.Printf("Wrote starter config to %s\n", path)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
