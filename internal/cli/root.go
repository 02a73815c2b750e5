// Package cli registers the singleproc commands. The CLI is a thin host
// around the coordination library: one invocation either becomes the
// receiving instance or hands its argument to the instance that already is.
package cli

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/katalog-app/singleproc/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "singleproc",
	Short: "Single-instance coordination over a shared-memory transport",
	Long: `Singleproc coordinates independently launched processes so that exactly
one acts as the receiver of application events while the others hand
their work to it and exit.`,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/singleproc/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
}

func initConfig() {
	// Defaults first, so they apply even without a config file.
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.Dir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("SINGLEPROC")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// A missing config file is fine; defaults carry.
	_ = viper.ReadInConfig()
}
