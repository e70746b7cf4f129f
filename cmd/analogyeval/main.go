// Package main is the analogyeval CLI entry point.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hyperjump/analogyeval/internal/config"
	"github.com/hyperjump/analogyeval/pkg/utils"
)

var version = "dev"

const defaultConfigName = "analogyeval.yaml"

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	configPath string
	debug      bool
}

// loadConfig loads config from path. With no path it looks for analogyeval.yaml
// in the current directory and falls back to built-in defaults.
// Returns the config and the path that was actually loaded ("" for defaults).
func loadConfig(path string) (*config.Config, string, error) {
	if path == "" {
		if cwd, err := os.Getwd(); err == nil {
			fallback := filepath.Join(cwd, defaultConfigName)
			if _, statErr := os.Stat(fallback); statErr == nil {
				path = fallback
			}
		}
	}
	if path == "" {
		return config.Default(), "", nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// setup loads the config and builds the CLI logger.
func (g *globalOptions) setup() (*config.Config, *zap.Logger, error) {
	return g.setupWith(utils.NewCLILogger)
}

// setupService is setup for long-running commands: JSON logs unless debugging.
func (g *globalOptions) setupService() (*config.Config, *zap.Logger, error) {
	return g.setupWith(utils.NewLogger)
}

func (g *globalOptions) setupWith(newLogger func(debug bool) (*zap.Logger, error)) (*config.Config, *zap.Logger, error) {
	cfg, resolved, err := loadConfig(g.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	debug := cfg.Debug || g.debug
	logger, err := newLogger(debug)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	if resolved != "" {
		logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))
	}
	return cfg, logger, nil
}

func newRootCmd() *cobra.Command {
	g := &globalOptions{}
	rootCmd := &cobra.Command{
		Use:           "analogyeval",
		Short:         "Rank-based evaluation of word embeddings on analogy tests",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&g.configPath, "config", "", "config file path (default ./"+defaultConfigName+" when present)")
	rootCmd.PersistentFlags().BoolVar(&g.debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(
		evaluateCmd(g),
		pareCmd(g),
		convertCmd(g),
		solveCmd(g),
		runsCmd(g),
		serveCmd(g),
		versionCmd(),
	)
	return rootCmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "analogyeval version %s\n", version)
		},
	}
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
