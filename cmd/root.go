package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/voyago/voyago-go/cmd/populate"
	"github.com/voyago/voyago-go/cmd/serve"
	"github.com/voyago/voyago-go/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "voyago",
		Short: "Voyago travel data population engine",
	}

	setupFlags(rootCmd, settings)

	subcommands := []*cobra.Command{
		serve.Command(settings),
		populate.Command(settings),
	}

	rootCmd.AddCommand(subcommands...)

	return rootCmd
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	_ = viper.BindPFlags(rootCmd.PersistentFlags())
}
