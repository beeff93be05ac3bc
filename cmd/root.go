package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "liberate",
	Short: "Pre-flight checks and auto-deploy for liberated codebases",
	Long: `Liberate runs deployment pre-flight checks against a GitHub repository
and a Coolify orchestrator, repairs broken Dockerfiles in place, and
provisions the application on your own VPS.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.liberate.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug output (shows API calls + internal diagnostics)")
	rootCmd.PersistentFlags().Int("timeout", 120, "overall wall-clock budget in seconds for external calls")

	rootCmd.PersistentFlags().String("github-token", "", "GitHub token with repo scope (or set LIBERATE_GITHUB_TOKEN)")

	// TODO: add error return here
	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("timeout_seconds", rootCmd.PersistentFlags().Lookup("timeout"))
	viper.BindPFlag("github.token", rootCmd.PersistentFlags().Lookup("github-token"))

	viper.SetDefault("timeout_seconds", 120)
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error finding home directory: %v\n", err)
			os.Exit(1)
		}

		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".liberate")
	}

	viper.SetEnvPrefix("LIBERATE")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("debug") {
			fmt.Println("Using config file:", viper.ConfigFileUsed())
		}
	}
}

// resolveGitHubToken returns the GitHub token from config or environment.
func resolveGitHubToken() string {
	if token := viper.GetString("github.token"); token != "" {
		return token
	}
	if env := os.Getenv("LIBERATE_GITHUB_TOKEN"); env != "" {
		return env
	}
	return os.Getenv("GITHUB_TOKEN")
}
