package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/bucketgate/config"
)

var version = "dev"

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "bucketgate",
	Short:   "HTTP gateway to object storage bindings",
	Long: `bucketgate exposes one configured storage binding over HTTP:
list, get, head, put and delete objects by key, with permissive CORS.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		files, _ := cmd.Flags().GetStringSlice("config")

		cfg, err := config.Load(files, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSlice("config", nil, "config file path, repeatable; later files override earlier ones (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("binding", "", "binding to serve or operate on (env: BUCKETGATE_BUCKET_BINDING)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: BUCKETGATE_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
