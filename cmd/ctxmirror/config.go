package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/dshills/ctxmirror/internal/storage"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect settings",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective settings with the token masked",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		shown := *cfg
		shown.Backend.Token = maskToken(shown.Backend.Token)
		return yaml.NewEncoder(os.Stdout).Encode(&shown)
	},
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings and data locations",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("settings: %s\n", cfg.SettingsPath())
		fmt.Printf("data:     %s\n", cfg.DataDir())
		if cfg.Store.Backend == storage.BackendJSON {
			fmt.Printf("projects: %s\n", cfg.ProjectsFile())
			fmt.Printf("aliases:  %s\n", cfg.AliasesFile())
		} else {
			fmt.Printf("database: %s\n", cfg.DatabaseFile())
		}
		fmt.Printf("log:      %s\n", cfg.LogFile())
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ctxmirror\n")
		fmt.Printf("Version: %s\n", version)
		fmt.Printf("Build Time: %s\n", buildTime)
		fmt.Printf("Build Mode: %s\n", storage.BuildMode)
		fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
	},
}

func init() {
	configCmd.AddCommand(configShowCmd, configPathCmd)
	rootCmd.AddCommand(configCmd, versionCmd)
}

func maskToken(t string) string {
	if len(t) <= 8 {
		return "****"
	}
	return t[:4] + "****" + t[len(t)-4:]
}
