// Command keypadcontroller is the user-facing numeric keypad process (spec
// §4.7). Wiring mirrors cmd/centralcontroller: cobra flags, a process
// singleton guard, an HTTP server, and a 10ms worker loop driving the panel
// state machine.
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

	"secureshed/internal/keypadapi"
	"secureshed/internal/logging"
	"secureshed/internal/panel"
	"secureshed/internal/procguard"
	"secureshed/internal/schema"
	"secureshed/internal/workerloop"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "keypadcontroller: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		listenAddr      string
		authKey         string
		centralEndpoint string
		centralAuthKey  string
		logDir          string
		lockDir         string
	)

	cmd := &cobra.Command{
		Use:   "keypadcontroller",
		Short: "Runs the keypad controller's panel state machine and HTTP surface",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(listenAddr, authKey, centralEndpoint, centralAuthKey, logDir, lockDir)
		},
	}

	cmd.Flags().StringVar(&listenAddr, "listen-addr", ":8444", "address to serve the keypad controller's HTTP surface on")
	cmd.Flags().StringVar(&authKey, "auth-key", "", "shared secret required on every inbound request (required)")
	cmd.Flags().StringVar(&centralEndpoint, "central-endpoint", "", "base URL of the central controller, e.g. http://central.local:8443 (required)")
	cmd.Flags().StringVar(&centralAuthKey, "central-auth-key", "", "shared secret used on outbound requests to the central controller (required)")
	cmd.Flags().StringVar(&logDir, "log-dir", "", "directory to write keypadcontroller.log under (empty: stdout only)")
	cmd.Flags().StringVar(&lockDir, "lock-dir", os.TempDir(), "directory to hold the process singleton lock file")
	_ = cmd.MarkFlagRequired("auth-key")
	_ = cmd.MarkFlagRequired("central-endpoint")
	_ = cmd.MarkFlagRequired("central-auth-key")

	return cmd
}

func run(listenAddr, authKey, centralEndpoint, centralAuthKey, logDir, lockDir string) error {
	log, err := logging.New("keypadcontroller", logDir, 512)
	if err != nil {
		return fmt.Errorf("initialising logger: %w", err)
	}
	defer log.Close()

	guard, err := procguard.Acquire(filepath.Join(lockDir, "keypadcontroller.lock"))
	if err != nil {
		return err
	}
	defer guard.Release()

	schemas, err := schema.Compile()
	if err != nil {
		return fmt.Errorf("compiling schemas: %w", err)
	}

	p := panel.New(centralEndpoint, centralAuthKey, log)

	apiServer := keypadapi.New(p, schemas, log, authKey)
	httpSrv := &http.Server{Addr: listenAddr, Handler: apiServer.Handler()}

	loop := workerloop.New(10*time.Millisecond, workerloop.KeypadTick(p), log)
	go loop.Run()

	serveErr := make(chan error, 1)
	go func() {
		log.Info("keypad controller listening on %s", listenAddr)
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
