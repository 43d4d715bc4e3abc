package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sagarc03/bucketgate/config"
)

const redacted = "<redacted>"

var bindingsCmd = &cobra.Command{
	Use:   "bindings",
	Short: "Print the configured bindings",
	Long:  `Print the configured bindings as YAML, after defaults and overrides, with secrets redacted.`,
	Args:  cobra.NoArgs,
	RunE:  runBindings,
}

func init() {
	rootCmd.AddCommand(bindingsCmd)
}

type bindingsView struct {
	Selected string                          `yaml:"selected"`
	Bindings map[string]config.BindingConfig `yaml:"bindings"`
}

func runBindings(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	view := bindingsView{
		Selected: cfg.Bucket.Binding,
		Bindings: make(map[string]config.BindingConfig, len(cfg.Bindings)),
	}
	for name, b := range cfg.Bindings {
		view.Bindings[name] = redact(b)
	}

	out, err := yaml.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal bindings: %w", err)
	}

	_, err = cmd.OutOrStdout().Write(out)
	return err
}

// redact hides credentials, including any embedded in a database DSN.
func redact(b config.BindingConfig) config.BindingConfig {
	if b.S3.SecretKey != "" {
		b.S3.SecretKey = redacted
	}
	if b.Minio.SecretKey != "" {
		b.Minio.SecretKey = redacted
	}
	if b.Database.Type == "postgres" && b.Database.DSN != "" {
		b.Database.DSN = redacted
	}
	return b
}
