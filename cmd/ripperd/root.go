package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"github.com/five82/ripperd/internal/config"
	"github.com/five82/ripperd/internal/rlog"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "ripperd",
		Short:         "ripperd watches optical drives and rips, transcodes, and compresses inserted discs",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")

	rootCmd.AddCommand(
		newRunCommand(&configFlag),
		newDrivesCommand(&configFlag),
		newVersionCommand(),
		newConfigCommand(&configFlag),
	)

	return rootCmd
}

func newRunCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the ripperd daemon in the foreground",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(*configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}

			logger, err := rlog.NewFromConfig(cfg)
			if err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			lockPath := lockFilePath(cfg)
			lock := flock.New(lockPath)
			locked, err := lock.TryLock()
			if err != nil {
				return fmt.Errorf("acquire instance lock: %w", err)
			}
			if !locked {
				return errors.New("another ripperd instance is already running")
			}
			defer lock.Unlock() //nolint:errcheck

			d, err := newDaemon(cfg, logger)
			if err != nil {
				return fmt.Errorf("initialize daemon: %w", err)
			}

			if table, err := listDrivesForStartup(cmd.Context(), d.registry, d.host); err == nil {
				fmt.Fprintln(cmd.OutOrStdout(), table)
			} else {
				logger.Warn("initial drive listing failed", rlog.Error(err))
			}

			logger.Info("ripperd starting", rlog.String("version", version))
			d.run(cmd.Context())
			logger.Info("ripperd stopped")
			return nil
		},
	}
}

func newDrivesCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "drives",
		Short: "List optical drives currently attached to this host",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, _, err := config.Load(*configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			d, err := newDaemon(cfg, rlog.NewNop())
			if err != nil {
				return fmt.Errorf("initialize daemon: %w", err)
			}
			table, err := listDrivesForStartup(cmd.Context(), d.registry, d.host)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the ripperd version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(cmd.OutOrStdout(), version)
			return nil
		},
	}
}

func newConfigCommand(configFlag *string) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	var initPath string
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample configuration file",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := initPath
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			}
			if _, err := os.Stat(target); err == nil {
				return fmt.Errorf("config file already exists at %s", target)
			}
			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote sample configuration to %s\n", target)
			return nil
		},
	}
	initCmd.Flags().StringVarP(&initPath, "path", "p", "", "Destination for the configuration file")

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the active configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(*configFlag)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config path: %s\n", path)
			if !exists {
				fmt.Fprintln(out, "config file did not exist; defaults were used")
			}
			fmt.Fprintln(out, "configuration valid")
			return nil
		},
	}

	configCmd.AddCommand(initCmd, validateCmd)
	return configCmd
}

func lockFilePath(cfg *config.Config) string {
	return fmt.Sprintf("%s/ripperd.lock", cfg.LogDir)
}

func mainContext() (context.Context, context.CancelFunc) {
	return newSignalContext()
}
