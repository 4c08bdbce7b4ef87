package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/openhusky/huskyd/internal/audit"
	"github.com/openhusky/huskyd/internal/config"
	"github.com/openhusky/huskyd/internal/dispatch"
	"github.com/openhusky/huskyd/internal/gateway"
	"github.com/openhusky/huskyd/internal/husky"
	"github.com/openhusky/huskyd/internal/scheduler"
	"github.com/openhusky/huskyd/internal/store"
)

var (
	listenAddr string
	deviceURL  string
	dbPath     string
	demoMode   bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the huskyd gateway",
	Long:  `Starts the MCP gateway and the task scheduler loop against a HuskyLens 2 device.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "listen", "", "Listen address for the MCP endpoint")
	serveCmd.Flags().StringVar(&deviceURL, "device", "", "HuskyLens 2 base URL")
	serveCmd.Flags().StringVar(&dbPath, "db", "", "Path to SQLite database")
	serveCmd.Flags().BoolVar(&demoMode, "demo", false, "Use a simulated device instead of real hardware")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if listenAddr != "" {
		cfg.Listen = listenAddr
	}
	if deviceURL != "" {
		cfg.DeviceURL = deviceURL
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if demoMode {
		cfg.Demo = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log.Println("Starting huskyd...")

	s, err := store.New(cfg.DBPath)
	if err != nil {
		return err
	}

	var device husky.Device
	if cfg.Demo {
		log.Println("Demo mode: using simulated device")
		device = husky.NewMockDevice()
	} else {
		device = husky.NewHTTPDevice(cfg.DeviceURL, cfg.DeviceTimeout.Std())
	}

	recorder := audit.NewRecorder(s)
	dispatcher := dispatch.New(device)

	service := gateway.NewService(s, device, recorder)
	server := gateway.NewServer(service, cfg.Listen)

	schedCfg := &scheduler.Config{
		PollInterval:  cfg.PollInterval.Std(),
		DeviceTimeout: cfg.DeviceTimeout.Std(),
	}
	sched := scheduler.New(s, device, dispatcher, recorder, schedCfg)

	sched.Start()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		err := server.Start()
		if err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case sig := <-sigCh:
		log.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-serverErr:
		if err != nil {
			log.Printf("Server error: %v", err)
			sched.Stop()
			s.Close()
			return err
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	log.Println("Shutting down MCP endpoint...")
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// The scheduler must be fully stopped before the database closes, or
	// an in-flight tick could fire a handler and lose the MarkFired write.
	sched.Stop()

	log.Println("Closing database connection...")
	if err := s.Close(); err != nil {
		log.Printf("Database close error: %v", err)
	}

	log.Println("Shutdown complete")
	return nil
}

// loadConfig resolves the config file: explicit --config path, otherwise
// ~/.huskyd/config.yaml, otherwise defaults.
func loadConfig() (*config.Config, error) {
	if configPath != "" {
		return config.Load(configPath)
	}
	return config.LoadFromHome()
}
