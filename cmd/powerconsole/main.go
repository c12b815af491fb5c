// Command powerconsole is the operator monitoring CLI (SPEC_FULL §5.1): log
// tailing, health polling, and a live console-events watch, against
// whichever controller --target names. The operator window itself is out
// of scope (spec.md §1); this only exercises the observability data path.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"secureshed/internal/config"
	"secureshed/internal/schema"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "powerconsole: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "powerconsole",
		Short: "Operator monitoring CLI for the central and keypad controllers",
	}

	var sinceTS float64
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Fetch console log entries since a timestamp",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveTarget(cmd)
			if err != nil {
				return err
			}
			return runLogs(target, sinceTS)
		},
	}
	logsCmd.Flags().String("target", "", "central|keypad (required)")
	logsCmd.Flags().Float64Var(&sinceTS, "since", 0, "only entries after this unix timestamp")
	_ = logsCmd.MarkFlagRequired("target")

	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Poll a controller's health endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveTarget(cmd)
			if err != nil {
				return err
			}
			return runHealth(target)
		},
	}
	healthCmd.Flags().String("target", "", "central|keypad (required)")
	_ = healthCmd.MarkFlagRequired("target")

	watchCmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream console log entries as they are appended",
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := resolveTarget(cmd)
			if err != nil {
				return err
			}
			return runWatch(target)
		},
	}
	watchCmd.Flags().String("target", "", "central|keypad (required)")
	_ = watchCmd.MarkFlagRequired("target")

	root.AddCommand(logsCmd, healthCmd, watchCmd)
	return root
}

func resolveTarget(cmd *cobra.Command) (config.Target, error) {
	name, err := cmd.Flags().GetString("target")
	if err != nil {
		return config.Target{}, err
	}

	configPath, err := config.RequireEnv(config.EnvPowerConfig)
	if err != nil {
		return config.Target{}, err
	}

	schemas, err := schema.Compile()
	if err != nil {
		return config.Target{}, fmt.Errorf("compiling schemas: %w", err)
	}

	cfg, err := config.LoadPowerConsoleConfig(configPath, schemas)
	if err != nil {
		return config.Target{}, err
	}

	switch name {
	case "central":
		return cfg.CentralController, nil
	case "keypad":
		return cfg.KeypadController, nil
	default:
		return config.Target{}, fmt.Errorf("unknown --target %q, expected central or keypad", name)
	}
}

type logEntryWire struct {
	Timestamp float64 `json:"timestamp"`
	Level     int     `json:"level"`
	Message   string  `json:"message"`
}

type retrieveConsoleLogsResponse struct {
	LastTimestamp float64        `json:"lastTimestamp"`
	Entries       []logEntryWire `json:"entries"`
}

func runLogs(target config.Target, since float64) error {
	payload, err := json.Marshal(map[string]float64{"startTimestamp": since})
	if err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, target.Endpoint+"/retrieveConsoleLogs", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("authorisationKey", target.AuthKey)

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("requesting logs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("retrieveConsoleLogs returned %d: %s", resp.StatusCode, string(body))
	}

	var decoded retrieveConsoleLogsResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	for _, e := range decoded.Entries {
		fmt.Printf("[%0.3f] %d %s\n", e.Timestamp, e.Level, e.Message)
	}
	return nil
}

func runHealth(target config.Target) error {
	// The central controller's route is /_health_status; the keypad
	// controller's is /_healthStatus (spec §4.6 vs §4.7.2 naming).
	paths := []string{"/_health_status", "/_healthStatus"}

	client := &http.Client{Timeout: 10 * time.Second}
	var lastErr error
	for _, path := range paths {
		req, err := http.NewRequest(http.MethodGet, target.Endpoint+path, nil)
		if err != nil {
			return err
		}
		req.Header.Set("authorisationKey", target.AuthKey)

		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusNotFound {
			lastErr = fmt.Errorf("404 at %s", path)
			continue
		}

		body, _ := io.ReadAll(resp.Body)
		fmt.Println(string(body))
		return nil
	}
	return fmt.Errorf("health check failed: %w", lastErr)
}

func runWatch(target config.Target) error {
	wsURL, err := httpToWS(target.Endpoint + "/consoleEvents")
	if err != nil {
		return err
	}

	header := http.Header{}
	header.Set("authorisationKey", target.AuthKey)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		return fmt.Errorf("connecting to consoleEvents: %w", err)
	}
	defer conn.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		_ = conn.Close()
	}()

	for {
		var entry logEntryWire
		if err := conn.ReadJSON(&entry); err != nil {
			return nil
		}
		fmt.Printf("[%0.3f] %d %s\n", entry.Timestamp, entry.Level, entry.Message)
	}
}

func httpToWS(endpoint string) (string, error) {
	switch {
	case len(endpoint) > 7 && endpoint[:7] == "http://":
		return "ws://" + endpoint[7:], nil
	case len(endpoint) > 8 && endpoint[:8] == "https://":
		return "wss://" + endpoint[8:], nil
	default:
		return "", fmt.Errorf("unrecognised endpoint scheme: %s", endpoint)
	}
}
