package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pratik-mahalle/ec2-automations/internal/config"
	automation "github.com/pratik-mahalle/ec2-automations/internal/handlers"
	"github.com/pratik-mahalle/ec2-automations/internal/pkg/logger"
	"github.com/pratik-mahalle/ec2-automations/internal/providers"
)

var (
	cfgFile      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "ec2auto",
	Short: "ec2auto - run EC2 automation handlers outside Lambda",
	Long: `ec2auto runs the same handlers that are deployed as Lambda functions:
auto tagging, tag driven stop/start scheduling, termination archiving, log
retention and state change notifications. Events can be invoked once from a
file or served over a local HTTP endpoint.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with ctx available to every command
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default $HOME/.ec2-automations/config.yaml)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error (overrides LOG_LEVEL)")

	_ = viper.BindPFlag("output", rootCmd.PersistentFlags().Lookup("output"))
	_ = viper.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(newInvokeCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newHandlersCmd())
	rootCmd.AddCommand(newConfigCmd())
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".ec2-automations"), nil
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		dir, err := configDir()
		if err != nil {
			fmt.Fprintln(os.Stderr, "Error:", err)
			return
		}
		viper.AddConfigPath(dir)
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("EC2AUTO")
	viper.AutomaticEnv()

	viper.SetDefault("output", "table")

	_ = viper.ReadInConfig()
	applyEnvOverrides()
}

// applyEnvOverrides exports the config file's env map so config.Load sees
// it. Variables already set in the process environment win.
func applyEnvOverrides() {
	for key, value := range viper.GetStringMapString("env") {
		key = strings.ToUpper(key)
		if _, set := os.LookupEnv(key); set {
			continue
		}
		_ = os.Setenv(key, value)
	}
}

// session is everything a command needs to build and run handlers
type session struct {
	cfg    *config.Config
	deps   automation.Deps
	logger *logger.Logger
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if lvl := viper.GetString("log_level"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	return cfg, nil
}

func loadSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	// Logs go to stderr so stdout carries only command output.
	log := logger.New(logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: os.Stderr,
	})

	awsCfg, err := providers.LoadAWSConfig(ctx, cfg.AWS)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	clients := providers.NewAWSClients(awsCfg)

	return &session{
		cfg: cfg,
		deps: automation.Deps{
			Config:    cfg,
			Compute:   clients.Compute,
			Store:     clients.Store,
			Publisher: clients.Publisher,
			Logger:    log,
		},
		logger: log,
	}, nil
}

func getOutputFormat() string {
	if outputFormat != "" && outputFormat != "table" {
		return outputFormat
	}
	return viper.GetString("output")
}
