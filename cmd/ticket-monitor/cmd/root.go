// Package cmd implements the ticket-monitor CLI commands.
package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "ticket-monitor",
	Short: "Watch ticket vendors for seats that match your shows",
	Long: "ticket-monitor polls LiveLab and Maoyan for configured shows, notifies\n" +
		"when tickets become available and places an order on an exact match\n" +
		"where the vendor allows it.",
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "config.yaml", "config file path")
	rootCmd.PersistentFlags().String("log-level", "", "override logging.level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "", "override logging.format (text, json)")
	rootCmd.PersistentFlags().String("server", "http://localhost:8080", "status API URL for status and history")

	cobra.CheckErr(viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config")))
	cobra.CheckErr(viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level")))
	cobra.CheckErr(viper.BindPFlag("log_format", rootCmd.PersistentFlags().Lookup("log-format")))
	cobra.CheckErr(viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server")))

	rootCmd.AddCommand(runCommand())
	rootCmd.AddCommand(checkCommand())
	rootCmd.AddCommand(validateCommand())
	rootCmd.AddCommand(migrateCommand())
	rootCmd.AddCommand(statusCommand())
	rootCmd.AddCommand(historyCommand())
	rootCmd.AddCommand(versionCommand())
}

func initConfig() {
	viper.SetEnvPrefix("TICKET_MONITOR")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

// Root returns the root command, for tooling that walks the command tree.
func Root() *cobra.Command {
	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
