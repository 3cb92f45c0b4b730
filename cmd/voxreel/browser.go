package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/voxreel/voxreel/internal/browser"
)

var browserCmd = &cobra.Command{
	Use:   "browser",
	Short: "Manage the headless browser container",
	Long: `Manage the headless Chrome container that drives generation.

The browser runs in Docker with its profile persisted to
~/.voxreel/browser-profile/, so account cookies survive restarts.

Examples:
  voxreel browser start   # Start the browser container
  voxreel browser stop    # Stop the container (profile preserved)
  voxreel browser status  # Check container status
  voxreel browser logs    # View container logs`,
}

var browserStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the browser container",
	Long: `Start the browser container.

If the container doesn't exist, it will be created and started.
If it exists but is stopped, it will be started.
If it's already running, this is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getBrowserManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Starting browser...")
		if err := mgr.Start(ctx); err != nil {
			return fmt.Errorf("failed to start browser: %w", err)
		}

		fmt.Printf("Browser DevTools at %s\n", mgr.URL())
		return nil
	},
}

var browserStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the browser container",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getBrowserManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Stopping browser...")
		if err := mgr.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop browser: %w", err)
		}

		fmt.Println("Browser stopped")
		return nil
	},
}

var browserStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show browser container status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getBrowserManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		status, err := mgr.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		switch status {
		case browser.StatusRunning:
			fmt.Printf("Status: %s\n", status)
			fmt.Printf("DevTools: %s\n", mgr.URL())
			if ws, err := mgr.WebSocketURL(ctx); err != nil {
				fmt.Printf("Health: unreachable (%v)\n", err)
			} else {
				fmt.Printf("Health: ok (%s)\n", ws)
			}
		case browser.StatusStopped:
			fmt.Printf("Status: %s (use 'voxreel browser start' to start)\n", status)
		case browser.StatusNotFound:
			fmt.Printf("Status: %s (use 'voxreel browser start' to create)\n", status)
		default:
			fmt.Printf("Status: %s\n", status)
		}

		return nil
	},
}

var browserLogsTail string

var browserLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show browser container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := getBrowserManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		logs, err := mgr.Logs(cmd.Context(), browserLogsTail)
		if err != nil {
			return fmt.Errorf("failed to get logs: %w", err)
		}

		fmt.Print(logs)
		return nil
	},
}

var browserRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the browser container",
	Long: `Remove the browser container.

The profile directory in ~/.voxreel/browser-profile/ is NOT deleted,
only the container is removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := getBrowserManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Removing browser container...")
		if err := mgr.Remove(cmd.Context()); err != nil {
			return fmt.Errorf("failed to remove container: %w", err)
		}

		fmt.Println("Browser container removed (profile preserved)")
		return nil
	},
}

var browserWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for the browser to be ready",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := getBrowserManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		fmt.Printf("Waiting for browser (timeout: %s)...\n", timeout)

		if err := mgr.WaitReady(cmd.Context(), timeout); err != nil {
			return fmt.Errorf("browser not ready: %w", err)
		}

		fmt.Println("Browser is ready")
		return nil
	},
}

// getBrowserManager creates a DockerManager from config with the profile
// directory under the voxreel home.
func getBrowserManager() (*browser.DockerManager, error) {
	cm, err := loadConfig()
	if err != nil {
		return nil, err
	}
	cfg := cm.Get()

	h, err := newHome(cfg)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}

	profileDir := filepath.Join(h.Path(), "browser-profile")
	if err := os.MkdirAll(profileDir, 0o755); err != nil {
		return nil, fmt.Errorf("create profile directory: %w", err)
	}

	return browser.NewDockerManager(browser.DockerConfig{
		ContainerName: cfg.Browser.ContainerName,
		Image:         cfg.Browser.Image,
		ProfilePath:   profileDir,
		HostPort:      strconv.Itoa(cfg.Browser.DebugPort),
	})
}

func init() {
	browserCmd.AddCommand(browserStartCmd)
	browserCmd.AddCommand(browserStopCmd)
	browserCmd.AddCommand(browserStatusCmd)
	browserCmd.AddCommand(browserLogsCmd)
	browserCmd.AddCommand(browserRemoveCmd)
	browserCmd.AddCommand(browserWaitCmd)

	browserLogsCmd.Flags().StringVar(&browserLogsTail, "tail", "100", "Number of lines to show from the end")
	browserWaitCmd.Flags().Duration("timeout", 30*time.Second, "Timeout waiting for the browser")

	rootCmd.AddCommand(browserCmd)
}
