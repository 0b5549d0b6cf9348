package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wpdeploy",
	Short: "Build a continuous deployment pipeline for a WordPress site",
	Long: `wpdeploy walks you through configuring continuous deployment of a git
repository to a WordPress host over SFTP or FTP. It inspects the repository,
checks the live site, keeps an encrypted copy of your session and renders a
GitHub Actions workflow when you publish.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.wpdeploy.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug output (shows internal diagnostics)")
	rootCmd.PersistentFlags().String("store", "", "session store driver: memory, file, sqlite, postgres, mysql, s3, gcs")
	rootCmd.PersistentFlags().String("store-path", "", "file store directory or sqlite database path")
	rootCmd.PersistentFlags().String("store-dsn", "", "postgres or mysql connection string")
	rootCmd.PersistentFlags().String("github-token", "", "GitHub token for private repositories (or set WPDEPLOY_GITHUB_TOKEN)")

	viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	viper.BindPFlag("store.driver", rootCmd.PersistentFlags().Lookup("store"))
	viper.BindPFlag("store.path", rootCmd.PersistentFlags().Lookup("store-path"))
	viper.BindPFlag("store.dsn", rootCmd.PersistentFlags().Lookup("store-dsn"))
	viper.BindPFlag("github.token", rootCmd.PersistentFlags().Lookup("github-token"))

	viper.SetDefault("store.driver", "sqlite")
	viper.SetDefault("http.timeout", "0s")
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
		viper.SetConfigName(".wpdeploy")
	}

	viper.SetEnvPrefix("WPDEPLOY")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		if viper.GetBool("debug") {
			log.Printf("[config] using config file %s", viper.ConfigFileUsed())
		}
	}
}
