// Command centralcontroller is the authoritative alarm state machine and
// hardware I/O process (spec §4.5, §4.6). Wiring follows
// nucleus/internal/governance/alfred_server.go's alfredStartCmd: a cobra
// command that builds a logger, a process singleton guard, the HTTP server,
// and a signal-driven graceful shutdown.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"secureshed/internal/config"
	"secureshed/internal/devicemanager"
	"secureshed/internal/eventbus"
	"secureshed/internal/gpio"
	"secureshed/internal/httpapi"
	"secureshed/internal/keycode"
	"secureshed/internal/logging"
	"secureshed/internal/procguard"
	"secureshed/internal/schema"
	"secureshed/internal/statemanager"
	"secureshed/internal/workerloop"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "centralcontroller: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		listenAddr     string
		authKey        string
		keypadEndpoint string
		keypadAuthKey  string
		logDir         string
		gpioFile       string
	)

	cmd := &cobra.Command{
		Use:   "centralcontroller",
		Short: "Runs the central controller's alarm state machine and hardware I/O",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(listenAddr, authKey, keypadEndpoint, keypadAuthKey, logDir, gpioFile)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen-addr", ":8443", "address to serve the central controller's HTTP surface on")
	cmd.Flags().StringVar(&authKey, "auth-key", "", "shared secret required on every inbound request (required)")
	cmd.Flags().StringVar(&keypadEndpoint, "keypad-endpoint", "", "base URL of the keypad controller, e.g. http://keypad.local:8444 (required)")
	cmd.Flags().StringVar(&keypadAuthKey, "keypad-auth-key", "", "shared secret used on outbound requests to the keypad controller (required)")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "directory to write centralcontroller.log under (empty: stdout only)")
	cmd.Flags().StringVar(&gpioFile, "gpio-file", "", "path to the emulated GPIO state file (defaults to <config dir>/gpio.json)")
	_ = cmd.MarkFlagRequired("auth-key")
	_ = cmd.MarkFlagRequired("keypad-endpoint")
	_ = cmd.MarkFlagRequired("keypad-auth-key")

	return cmd
}

func run(listenAddr, authKey, keypadEndpoint, keypadAuthKey, logDir, gpioFile string) error {
	log, err := logging.New("centralcontroller", logDir, 512)
	if err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	defer log.Close()

	configDir, err := config.RequireEnv(config.EnvCentralConfig)
	if err != nil {
		return err
	}
	dbPath, err := config.RequireEnv(config.EnvCentralDB)
	if err != nil {
		return err
	}

	guard, err := procguard.Acquire(filepath.Join(configDir, "centralcontroller.lock"))
	if err != nil {
		return err
	}
	defer guard.Release()

	schemas, err := schema.Compile()
	if err != nil {
		return fmt.Errorf("compiling schemas: %w", err)
	}

	descriptors, err := config.LoadDevices(configDir, schemas)
	if err != nil {
		return fmt.Errorf("loading devices: %w", err)
	}
	failedAttemptResponses, err := config.LoadFailedAttemptResponses(configDir, schemas)
	if err != nil {
		return fmt.Errorf("loading failed attempt responses: %w", err)
	}

	if gpioFile == "" {
		gpioFile = filepath.Join(configDir, "gpio.json")
	}
	gpioCtl, err := gpio.NewController(gpioFile)
	if err != nil {
		return fmt.Errorf("initialising emulated GPIO: %w", err)
	}

	store, err := keycode.Open(dbPath)
	if err != nil {
		return fmt.Errorf("opening key-code store: %w", err)
	}
	defer store.Close()

	bus := eventbus.New()
	devices := devicemanager.New(bus, gpioCtl, log)
	devices.Load(descriptors)
	defer devices.Cleanup()

	stateCfg := statemanager.Config{
		FailedAttemptResponses: failedAttemptResponses,
		KeypadEndpoint:         keypadEndpoint,
		KeypadAuthKey:          keypadAuthKey,
	}
	statemanager.New(bus, store, stateCfg, log)

	apiServer := httpapi.New(bus, schemas, log, authKey)
	httpSrv := &http.Server{Addr: listenAddr, Handler: apiServer.Handler()}

	loop := workerloop.New(100*time.Millisecond, workerloop.CentralTick(gpioCtl, devices, bus, log, nil), log)
	go loop.Run()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("central controller listening on %s", listenAddr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Info("received signal %s, shutting down", sig)
	case err := <-serveErr:
		log.Error("HTTP server failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(ctx)

	loop.Stop()
	<-loop.Done()

	return nil
}
