package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/seaworthie/casket/internal/fault"
	"github.com/seaworthie/casket/internal/ui"
)

var rootCmd = &cobra.Command{
	Use:           "casket",
	Short:         "Content-addressed evidence bundling and verification",
	Long:          "Casket collects source trees into content-addressed evidence bundles,\nmerges bundles into packs, and verifies any bundle or pack against its\nmanifest. Exit codes distinguish failure kinds so schedulers can react\nwithout parsing output.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the fault-kind exit code on
// failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.New(false).Error(err)
		os.Exit(fault.ExitCode(err))
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default .casket.yaml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func initConfig() {
	if cfgFile, _ := rootCmd.Flags().GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(".casket")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			viper.AddConfigPath(home)
		}
	}

	viper.SetEnvPrefix("CASKET")
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}
