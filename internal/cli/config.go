package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pratik-mahalle/ec2-automations/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and manage configuration",
	}

	cmd.AddCommand(newConfigShowCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigListCmd())

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective handler configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return printOutput(cmd.OutOrStdout(), getOutputFormat(), redact(cfg))
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a CLI configuration value (use env.NAME for handler settings)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			viper.Set(args[0], args[1])
			if err := writeConfig(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", args[0], args[1])
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a CLI configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			val := viper.Get(args[0])
			if val == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: (not set)\n", args[0])
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", args[0], val)
			}
			return nil
		},
	}
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show all CLI configuration values",
		RunE: func(cmd *cobra.Command, args []string) error {
			settings := viper.AllSettings()
			keys := make([]string, 0, len(settings))
			for key := range settings {
				keys = append(keys, key)
			}
			sort.Strings(keys)

			for _, key := range keys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %v\n", key, settings[key])
			}
			return nil
		},
	}
}

func writeConfig() error {
	path := viper.ConfigFileUsed()
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create config directory: %w", err)
		}
		path = filepath.Join(dir, "config.yaml")
	}
	return viper.WriteConfigAs(path)
}

// redact returns a copy of cfg that is safe to print
func redact(cfg *config.Config) config.Config {
	out := *cfg
	if out.AWS.AccessKeyID != "" {
		out.AWS.AccessKeyID = mask(out.AWS.AccessKeyID)
	}
	if out.AWS.SecretAccessKey != "" {
		out.AWS.SecretAccessKey = "(set)"
	}
	if out.AWS.SessionToken != "" {
		out.AWS.SessionToken = "(set)"
	}
	return out
}

func mask(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return "****" + s[len(s)-4:]
}
