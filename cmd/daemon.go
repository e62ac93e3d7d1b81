// Package cmd holds the incidentd subcommands.
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/opswatch/incidentd/cli"
	"github.com/opswatch/incidentd/errors"
	"github.com/opswatch/incidentd/internal/daemon/hub"
	"github.com/opswatch/incidentd/internal/daemon/pidfile"
	"github.com/opswatch/incidentd/internal/daemon/server"
	"github.com/opswatch/incidentd/internal/daemon/store"
	"github.com/opswatch/incidentd/internal/daemon/watcher"
	"github.com/opswatch/incidentd/logging"
	"github.com/opswatch/incidentd/pkg/paths"
	"github.com/opswatch/incidentd/pkg/process"
)

// NewDaemonCmd returns the daemon command with subcommands.
func NewDaemonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Incident broadcaster daemon",
		Long:  "The daemon holds the in-memory incident registry and fans out every change to connected clients.",
	}

	cmd.AddCommand(newDaemonStartCmd())
	cmd.AddCommand(newDaemonStopCmd())
	cmd.AddCommand(newDaemonStatusCmd())

	return cmd
}

func newDaemonStartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		Long:  "Start the incidentd daemon in foreground mode.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.NewLogger("daemon")
			pidPath := paths.PidFilePath()

			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			// 1. Acquire Lock
			if err := pidfile.Acquire(pidPath); err != nil {
				return fmt.Errorf("failed to start: %w", err)
			}
			defer func() {
				if err := pidfile.Release(pidPath); err != nil {
					logger.Errorf("Failed to release pidfile: %v", err)
				}
			}()

			// 2. Compose store, registry, bus, server
			st := store.New()
			registry := hub.NewRegistry()
			bus := hub.NewBus(registry, st, logger)
			srv := server.New(logger, cfg, st, registry, bus)

			// 3. Handle Signals
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()
			stop := make(chan os.Signal, 1)
			signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

			go func() {
				<-stop
				logger.Info("Received stop signal")
				cancel()

				shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer shutdownCancel()

				if err := srv.Shutdown(shutdownCtx); err != nil {
					logger.Errorf("Server shutdown error: %v", err)
				}

				_ = pidfile.Release(pidPath)
				os.Exit(0)
			}()

			// 4. Watch the config file for runtime-adjustable settings
			if configPath := cli.FindConfigPath(cmd); configPath != "" {
				w, err := watcher.New(configPath, nil)
				if err != nil {
					logger.WithError(err).Warn("Config watcher disabled")
				} else {
					go w.Start(ctx)
				}
			}

			// 5. Start Server (Blocking)
			logger.WithField("pid", os.Getpid()).Info("Starting daemon")
			if err := srv.ListenAndServe(); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
}

func newDaemonStopCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cli.GetLogger(cmd)
			pidPath := paths.PidFilePath()

			running, pid, err := pidfile.IsRunning(pidPath)
			if err != nil {
				return fmt.Errorf("failed to read pidfile: %w", err)
			}
			if !running {
				return errors.DaemonNotRunning()
			}

			proc, err := os.FindProcess(pid)
			if err != nil {
				return err
			}
			if err := proc.Signal(syscall.SIGTERM); err != nil {
				return fmt.Errorf("failed to signal daemon: %w", err)
			}

			// Wait briefly for the process to exit
			for i := 0; i < 50; i++ {
				if !process.IsProcessAlive(pid) {
					fmt.Printf("Daemon stopped (PID %d)\n", pid)
					return nil
				}
				time.Sleep(100 * time.Millisecond)
			}

			logger.Warnf("Daemon (PID %d) did not exit after SIGTERM", pid)
			return nil
		},
	}
}

func newDaemonStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			running, pid, err := pidfile.IsRunning(paths.PidFilePath())
			if err != nil {
				return fmt.Errorf("failed to read pidfile: %w", err)
			}
			if running {
				fmt.Printf("Daemon is running (PID %d)\n", pid)
			} else {
				fmt.Println("Daemon is not running")
			}
			return nil
		},
	}
}
