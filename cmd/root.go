// Package cmd provides the command-line interface of rdfendpoint.
//
// This package implements a cobra-based CLI with commands for:
//   - serve: expose RDF files as a SPARQL endpoint
//   - convert: merge RDF files into one file of another format
//   - compress: merge RDF files into a COTTAS file
//   - auth, journal: update credentials and the update journal
//   - config, version: effective settings and build information
//
// The CLI supports configuration via:
//   - Command-line flags
//   - Configuration files (YAML format)
//   - Environment variables prefixed with RDFENDPOINT_, also read from a .env file
//
// Configuration File Locations:
//   - Specified via --config flag
//   - $HOME/.rdfendpoint.yaml (default)
package cmd

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"evalgo.org/rdfendpoint/internal/domain"
	"evalgo.org/rdfendpoint/internal/helpers"
	"evalgo.org/rdfendpoint/internal/logging"
	"evalgo.org/rdfendpoint/internal/operations"
	"evalgo.org/rdfendpoint/internal/store"
)

var (
	// cfgFile holds the path to the configuration file
	cfgFile string
	// debug enables debug logging and HTTP tracing
	debug bool

	// console receives the INFO/WARN/ERROR lines; tests replace it
	console = logging.Stdout
	// errConsole receives the final error line
	errConsole = logging.Stderr

	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "rdfendpoint",
		Short: "SPARQL endpoint and converter for RDF files",
		Long: `rdfendpoint loads RDF files, or a COTTAS columnar file, and either serves
them as a SPARQL 1.1 query and update endpoint or re-serializes them.

  - serve: load files into a store and answer SPARQL requests over HTTP
  - convert: merge files and write them in the format picked by the output suffix
  - compress: merge files and write a COTTAS file

Use "rdfendpoint serve data/*.ttl" to start an endpoint on http://localhost:8000.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			helpers.DebugMode = debug || viper.GetBool("debug")
			logging.SetDebug(helpers.DebugMode)
		},
	}
)

// Execute executes the root command and returns any error that occurs.
// Errors are printed as a red ERROR line; the caller exits with status 1.
func Execute() error {
	err := rootCmd.Execute()
	if err != nil {
		reportError(err)
	}
	return err
}

func reportError(err error) {
	errConsole.Error("%s", err)
	if domain.IsUsage(err) {
		return
	}
	logging.Logger.WithError(err).Debug("Command failed")
}

// init initializes the command-line interface.
// It sets up configuration initialization and the global flags.
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.rdfendpoint.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
}

// initConfig reads in config file and environment variables if set.
// This function is called during cobra initialization before command execution.
func initConfig() {
	// A .env file is optional
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.Logger.WithError(err).Warn("Failed to read .env file")
	}

	if cfgFile != "" {
		// Use config file from the flag
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".rdfendpoint" (without extension)
		viper.AddConfigPath(home)
		viper.SetConfigType("yaml")
		viper.SetConfigName(".rdfendpoint")
	}

	// Read environment variables that match config keys
	viper.SetEnvPrefix(helpers.EnvPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	// If a config file is found, read it in
	if err := viper.ReadInConfig(); err == nil {
		logging.Logger.WithField("file", viper.ConfigFileUsed()).Debug("Using config file")
	}
}

// bindFlags binds command flags to configuration keys. Commands share flag
// names, so binding happens when a command runs rather than in init.
func bindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			return err
		}
	}
	return nil
}

// storeFlags registers the backend selection flags on a command.
func storeFlags(cmd *cobra.Command) {
	cmd.Flags().String("store", domain.BackendDefault.String(), "store backend: default, oxigraph or badger")
	cmd.Flags().String("store-url", helpers.DefaultOxigraphURL, "Oxigraph server URL (oxigraph store)")
	cmd.Flags().String("store-path", "", "BadgerDB directory, in-memory when empty (badger store)")
}

var storeKeys = map[string]string{
	"store.backend": "store",
	"store.url":     "store-url",
	"store.path":    "store-path",
}

func storeConfig() (domain.StoreConfig, error) {
	backend, err := domain.ParseBackend(viper.GetString("store.backend"))
	if err != nil {
		return domain.StoreConfig{}, err
	}
	return domain.StoreConfig{
		Backend: backend,
		URL:     viper.GetString("store.url"),
		Path:    viper.GetString("store.path"),
		Debug:   helpers.DebugMode,
	}, nil
}

func newRegistry() *operations.Registry {
	return operations.NewRegistry(store.NewRegistry(), console, logging.ServiceLogger("rdfendpoint", version))
}
