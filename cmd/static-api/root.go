package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arthur-debert/static-api/staticapi/export"
	"github.com/arthur-debert/static-api/staticapi/ids"
	"github.com/arthur-debert/static-api/staticapi/store"
	"github.com/arthur-debert/static-api/types"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// configEnvVar names a config file that replaces the default discovery
const configEnvVar = "STATIC_API_CONFIG"

// CLI is the Viper-driven command line of the server
type CLI struct {
	rootCmd   *cobra.Command
	viperInst *viper.Viper
	logger    *slog.Logger
	out       io.Writer
}

// NewCLI creates the CLI with configuration loaded from the environment and
// any discovered config file
func NewCLI() *CLI {
	cli := &CLI{
		viperInst: viper.New(),
		logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
		out:       os.Stdout,
	}

	cli.setupViperConfig()
	cli.createRootCommand()
	cli.addCommands()

	return cli
}

// Execute runs the root command
func (cli *CLI) Execute() error {
	return cli.rootCmd.Execute()
}

// setupViperConfig configures Viper with environment variables and config files
func (cli *CLI) setupViperConfig() {
	// STATIC_API_CONFIG points at a specific config file
	if configFile := os.Getenv(configEnvVar); configFile != "" {
		cli.viperInst.SetConfigFile(configFile)
	} else {
		// Discover static-api.{json,yaml,toml} in the usual places
		cli.viperInst.SetConfigName(appName)
		cli.viperInst.AddConfigPath(".")
		cli.viperInst.AddConfigPath("$HOME/.static-api")
		cli.viperInst.AddConfigPath("/etc/static-api")
	}

	// Replace dash with underscore in env vars (e.g., --data-dir -> STATIC_API_DATA_DIR)
	cli.viperInst.SetEnvPrefix("STATIC_API")
	cli.viperInst.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	cli.viperInst.AutomaticEnv()

	// Read config file if it exists (ignore errors)
	_ = cli.viperInst.ReadInConfig()
}

// createRootCommand creates the root Cobra command with Viper integration
func (cli *CLI) createRootCommand() {
	cli.rootCmd = &cobra.Command{
		Use:   appName,
		Short: "Mock REST API backed by JSON files",
		Long: `static-api serves generic CRUD endpoints for any collection named in the
URL. Each collection is a JSON array stored as {data-dir}/{collection}.json.

Configuration Sources (in order of precedence):
1. Command line flags
2. Environment variables (STATIC_API_*)
3. Configuration file (STATIC_API_CONFIG or static-api.{json,yaml,toml} in
   ., ~/.static-api, /etc/static-api)
4. Defaults

Examples:
  # Start the server on the default port
  static-api serve

  # Serve a project-local data directory
  STATIC_API_DATA_DIR=./fixtures static-api serve --port 8080

  # Inspect a collection
  static-api show widgets --limit 5 --format yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,

		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cli.viperInst.BindPFlags(cmd.Flags()); err != nil {
				return NewConfigError(cmd.Name(), err.Error(), CommonSuggestions.RunHelp)
			}

			logger, err := initLogging(cli.viperInst.GetString("log-level"), cli.viperInst.GetBool("log-stdout"))
			if err != nil {
				return NewConfigError(cmd.Name(), err.Error(), CommonSuggestions.CheckPerms)
			}
			cli.logger = logger
			cli.logger.Debug("configuration loaded", "config_file", cli.viperInst.ConfigFileUsed())
			return nil
		},
	}

	cli.rootCmd.SetOut(cli.out)
	cli.addGlobalFlags()
}

// addGlobalFlags adds persistent flags that apply to all commands
func (cli *CLI) addGlobalFlags() {
	flags := cli.rootCmd.PersistentFlags()

	flags.StringP("data-dir", "d", defaultDataDir(), "Directory holding the collection files")
	flags.StringP("format", "f", string(export.FormatJSON), "Output format (json|yaml)")
	flags.String("log-level", "warn", "Log level (debug|info|warn|error)")
	flags.Bool("log-stdout", false, "Also print log records to stdout")

	flags.String("id-strategy", ids.StrategySequential, "Id generation strategy (sequential|random)")
	flags.Uint64("random-id-max", ids.DefaultRandomMax, "Upper bound of random ids")
	flags.Duration("lock-timeout", store.DefaultLockTimeout, "Maximum wait for a collection lock")

	// Bind all flags to Viper
	for _, flag := range []string{"data-dir", "format", "log-level", "log-stdout", "id-strategy", "random-id-max", "lock-timeout"} {
		_ = cli.viperInst.BindPFlag(flag, flags.Lookup(flag))
	}
}

// addCommands adds all the CLI commands
func (cli *CLI) addCommands() {
	cli.addServeCommand()
	cli.addCollectionsCommand()
	cli.addShowCommand()
	cli.addExportCommand()
	cli.addImportCommand()
	cli.addConfigCommand()
}

// defaultDataDir is ~/.static-api, or ./data when there is no home directory
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "data"
	}
	return filepath.Join(home, ".static-api")
}

// storeConfig builds the store configuration from the merged settings
func (cli *CLI) storeConfig() store.Config {
	return store.Config{
		DataDir:     cli.viperInst.GetString("data-dir"),
		IDStrategy:  cli.viperInst.GetString("id-strategy"),
		RandomIDMax: cli.viperInst.GetUint64("random-id-max"),
		LockTimeout: cli.viperInst.GetDuration("lock-timeout"),
	}
}

// openStore opens the store described by the configuration
func (cli *CLI) openStore(operation string) (store.Store, error) {
	cfg := cli.storeConfig()
	if cfg.DataDir == "" {
		return nil, NewConfigError(operation, "missing data directory",
			"Set --data-dir to the directory holding the collection files",
			"Use environment variable: export STATIC_API_DATA_DIR=path/to/data",
			"Add \"data-dir\": \"path/to/data\" to your config file")
	}
	if cfg.LockTimeout < 0 {
		return nil, NewValidationError(operation, "lock-timeout", cfg.LockTimeout.String(),
			"Use a positive duration such as 3s")
	}

	s, err := store.NewWithOptions(cfg, store.WithLogger(cli.logger))
	if err != nil {
		return nil, WrapError(operation, err, CommonSuggestions.CheckDataDir, CommonSuggestions.CheckConfig)
	}
	return s, nil
}

// outputFormat validates the configured output format
func (cli *CLI) outputFormat(operation string) (export.Format, error) {
	raw := cli.viperInst.GetString("format")
	format, err := export.ParseFormat(raw)
	if err != nil {
		return "", NewValidationError(operation, "format", raw, "Use --format json or --format yaml")
	}
	return format, nil
}

// outputResult formats and outputs the result based on the configured format
func (cli *CLI) outputResult(operation string, result any) error {
	format, err := cli.outputFormat(operation)
	if err != nil {
		return err
	}
	data, err := export.EncodeValue(result, format)
	if err != nil {
		return WrapError(operation, err)
	}
	_, err = cli.out.Write(data)
	return err
}

// listOptions converts the --skip and --limit flags of a command
func listOptions(cmd *cobra.Command) (types.ListOptions, error) {
	skip, _ := cmd.Flags().GetInt("skip")
	limit, _ := cmd.Flags().GetInt("limit")
	if skip < 0 {
		return types.ListOptions{}, NewValidationError(cmd.Name(), "skip", fmt.Sprint(skip), "Use a non-negative number")
	}
	if limit < 0 {
		return types.ListOptions{}, NewValidationError(cmd.Name(), "limit", fmt.Sprint(limit), "Use a non-negative number")
	}
	return types.NewListOptions(skip, limit), nil
}

// shutdownTimeout bounds graceful shutdown of the HTTP server
const shutdownTimeout = 5 * time.Second
