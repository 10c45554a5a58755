// File: cmd/root.go
package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/markhobson/microbrowser-sub000/internal/config"
	"github.com/markhobson/microbrowser-sub000/internal/observability"
)

const configFileName = "microbrowser"

type contextKey string

const configKey contextKey = "config"

var cfgFile string

// rootCmd is the base command when called without any subcommands.
var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "microbrowser",
		Short:         "Microbrowser reads links, microdata and forms from HTML pages.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			config.SetDefaults(v)

			if err := initializeConfig(cmd, v); err != nil {
				return fmt.Errorf("failed to initialize configuration: %w", err)
			}

			cfg, err := config.NewConfigFromViper(v)
			if err != nil {
				observability.InitializeLogger(config.LoggerConfig{Level: "info", Format: "console", ServiceName: configFileName})
				return fmt.Errorf("failed to load or validate config: %w", err)
			}

			observability.InitializeLogger(cfg.Logger())
			observability.GetLogger().Debug("Starting microbrowser",
				zap.String("version", Version),
				zap.String("engine", cfg.Browser().Engine),
			)

			cmd.SetContext(context.WithValue(cmd.Context(), configKey, cfg))
			return nil
		},
	}
	cmd.SetVersionTemplate(`{{printf "%s version %s\n" .Name .Version}}`)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&cfgFile, "config", "c", "", "config file (default is ./microbrowser.yaml, then $HOME/microbrowser.yaml)")
	flags.StringP("engine", "e", "", "browser engine: headless or chrome")
	flags.Bool("headful", false, "show the browser window when using the chrome engine")
	flags.Duration("timeout", 0, "request timeout")
	flags.Bool("insecure", false, "skip TLS certificate verification")
	flags.String("log-level", "", "log level: debug, info, warn or error")

	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newLinksCmd())
	cmd.AddCommand(newItemsCmd())
	cmd.AddCommand(newSubmitCmd())
	cmd.AddCommand(newVersionCmd())
	return cmd
}

// Execute runs the root command with a signal-aware context.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		observability.GetLogger().Error("Command execution failed", zap.Error(err))
	}
	observability.Sync()
	return err
}

// initializeConfig reads the config file, the environment and the flags into
// v, in increasing order of precedence.
func initializeConfig(cmd *cobra.Command, v *viper.Viper) error {
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		if home, err := homedir.Dir(); err == nil {
			v.AddConfigPath(filepath.Clean(home))
		}
		v.SetConfigName(configFileName)
		v.SetConfigType("yaml")
	}

	config.BindEnvironment(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	bindings := map[string]string{
		"browser.engine":            "engine",
		"network.timeout":           "timeout",
		"network.ignore_tls_errors": "insecure",
		"logger.level":              "log-level",
	}
	for key, name := range bindings {
		if f := cmd.Flags().Lookup(name); f != nil && f.Changed {
			if err := v.BindPFlag(key, f); err != nil {
				return err
			}
		}
	}
	if f := cmd.Flags().Lookup("headful"); f != nil && f.Changed {
		headful, _ := cmd.Flags().GetBool("headful")
		v.Set("browser.headless", !headful)
	}
	return nil
}

// configFrom returns the configuration stored by PersistentPreRunE.
func configFrom(ctx context.Context) (config.Interface, error) {
	cfg, ok := ctx.Value(configKey).(config.Interface)
	if !ok || cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	return cfg, nil
}
