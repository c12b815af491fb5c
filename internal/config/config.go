// Package config loads and schema-validates the central controller's
// configuration files (spec §6): device types, devices, and failed-attempt
// responses, plus the environment variables that locate them. Path
// resolution follows the layout idiom of
// nucleus/internal/core/paths.go, simplified from its OS-specific AppData
// layout down to a single CENCON_CONFIG directory since spec §6 fixes the
// environment-variable contract explicitly.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"secureshed/internal/device"
	"secureshed/internal/gpio"
	"secureshed/internal/schema"
	"secureshed/internal/statemanager"
)

// EnvCentralConfig and friends name the environment variables spec §6 fixes
// for the central controller and power console processes.
const (
	EnvCentralConfig = "CENCON_CONFIG"
	EnvCentralDB     = "CENCON_DB"
	EnvPowerConfig   = "PWRCON_CONFIG"
)

type deviceTypesFile struct {
	DeviceTypes []struct {
		Name    string `json:"name"`
		Enabled bool   `json:"enabled"`
	} `json:"deviceTypes"`
}

type devicesFile struct {
	Devices []struct {
		DeviceType             string `json:"deviceType"`
		Hardware               string `json:"hardware"`
		Name                   string `json:"name"`
		Enabled                bool   `json:"enabled"`
		Pins                   []struct {
			IOPin      string `json:"ioPin"`
			Identifier string `json:"identifier"`
		} `json:"pins"`
		TriggerGracePeriodSecs *int `json:"triggerGracePeriodSecs"`
	} `json:"devices"`
}

type failedAttemptEntry struct {
	AttemptNo int `json:"attemptNo"`
	Actions   []struct {
		ActionType string `json:"actionType"`
		Parameters []struct {
			Key   string `json:"key"`
			Value any    `json:"value"`
		} `json:"parameters"`
	} `json:"actions"`
}

// Target is one named endpoint (central or keypad controller) the Power
// Console talks to.
type Target struct {
	Endpoint string
	AuthKey  string
}

// PowerConsoleConfig is the decoded shape of PWRCON_CONFIG (spec §6 out-of-
// scope collaborator, concretized per original_source/src/powerConsole/
// configuration_manager.py's centralController/keypadController sections).
type PowerConsoleConfig struct {
	CentralController Target
	KeypadController  Target
}

type powerConsoleFile struct {
	CentralController struct {
		Endpoint         string `json:"endpoint"`
		AuthorisationKey string `json:"authorisationKey"`
	} `json:"centralController"`
	KeypadController struct {
		Endpoint         string `json:"endpoint"`
		AuthorisationKey string `json:"authorisationKey"`
	} `json:"keypadController"`
}

// LoadPowerConsoleConfig reads, validates, and decodes the file named by
// PWRCON_CONFIG (a single file path, not a directory, matching the original
// configuration_manager.py's parse_config_file(filename)).
func LoadPowerConsoleConfig(path string, schemas *schema.Set) (PowerConsoleConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PowerConsoleConfig{}, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := schemas.Validate(schema.PowerConsoleConfig, data); err != nil {
		return PowerConsoleConfig{}, fmt.Errorf("config: %s failed schema validation: %w", path, err)
	}

	var parsed powerConsoleFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return PowerConsoleConfig{}, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	return PowerConsoleConfig{
		CentralController: Target{Endpoint: parsed.CentralController.Endpoint, AuthKey: parsed.CentralController.AuthorisationKey},
		KeypadController:  Target{Endpoint: parsed.KeypadController.Endpoint, AuthKey: parsed.KeypadController.AuthorisationKey},
	}, nil
}

// RequireEnv reads an environment variable, returning a fatal error if
// absent (spec §6: "Absent-required variable is fatal at start").
func RequireEnv(name string) (string, error) {
	v, ok := os.LookupEnv(name)
	if !ok || v == "" {
		return "", fmt.Errorf("config: required environment variable %s is not set", name)
	}
	return v, nil
}

// enabledDeviceTypes loads and validates deviceTypes.json, returning the set
// of type names that are enabled.
func enabledDeviceTypes(dir string, schemas *schema.Set) (map[string]struct{}, error) {
	path := filepath.Join(dir, "deviceTypes.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := schemas.Validate(schema.DeviceTypesConfig, data); err != nil {
		return nil, fmt.Errorf("config: %s failed schema validation: %w", path, err)
	}

	var parsed deviceTypesFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	enabled := make(map[string]struct{})
	for _, dt := range parsed.DeviceTypes {
		if dt.Enabled {
			enabled[dt.Name] = struct{}{}
		}
	}
	return enabled, nil
}

// LoadDevices loads, validates, and decodes devices.json and deviceTypes.json
// into device.Descriptor values. A device whose type is disabled or absent
// at the device-type level is still returned, with Enabled set to false, so
// the device manager skips it (spec §6: "A disabled type is not loaded").
func LoadDevices(dir string, schemas *schema.Set) ([]device.Descriptor, error) {
	enabledTypes, err := enabledDeviceTypes(dir, schemas)
	if err != nil {
		return nil, err
	}

	path := filepath.Join(dir, "devices.json")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := schemas.Validate(schema.DevicesConfig, data); err != nil {
		return nil, fmt.Errorf("config: %s failed schema validation: %w", path, err)
	}

	var parsed devicesFile
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	descriptors := make([]device.Descriptor, 0, len(parsed.Devices))
	for _, d := range parsed.Devices {
		enabled := d.Enabled
		if _, ok := enabledTypes[d.DeviceType]; !ok {
			enabled = false
		}

		pins := make([]device.Pin, 0, len(d.Pins))
		for _, p := range d.Pins {
			pins = append(pins, device.Pin{Identifier: p.Identifier, IOPin: gpio.Label(p.IOPin)})
		}

		descriptors = append(descriptors, device.Descriptor{
			Name:                   d.Name,
			Hardware:               device.Hardware(d.Hardware),
			DeviceType:             d.DeviceType,
			Pins:                   pins,
			Enabled:                enabled,
			TriggerGracePeriodSecs: d.TriggerGracePeriodSecs,
		})
	}
	return descriptors, nil
}

// LoadFailedAttemptResponses loads and validates failedAttempts.json into the
// map statemanager.Config expects, keyed by attempt number.
func LoadFailedAttemptResponses(dir string, schemas *schema.Set) (map[int][]statemanager.FailedAttemptAction, error) {
	path := filepath.Join(dir, "failedAttempts.json")
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return map[int][]statemanager.FailedAttemptAction{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	if err := schemas.Validate(schema.FailedAttemptConfig, data); err != nil {
		return nil, fmt.Errorf("config: %s failed schema validation: %w", path, err)
	}

	var entries []failedAttemptEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	responses := make(map[int][]statemanager.FailedAttemptAction, len(entries))
	for _, entry := range entries {
		var actions []statemanager.FailedAttemptAction
		for _, a := range entry.Actions {
			action := statemanager.FailedAttemptAction{}
			switch a.ActionType {
			case "disableKeyPad":
				action.DisableKeyPad = true
				for _, p := range a.Parameters {
					if p.Key != "lockTime" {
						continue
					}
					switch v := p.Value.(type) {
					case float64:
						action.DisableKeyPadSecs = int(v)
					case json.Number:
						n, _ := v.Int64()
						action.DisableKeyPadSecs = int(n)
					}
				}
			case "triggerAlarm":
				action.TriggerAlarm = true
			case "resetAttemptAccount":
				action.ResetAttemptAccount = true
			default:
				continue
			}
			actions = append(actions, action)
		}
		responses[entry.AttemptNo] = actions
	}
	return responses, nil
}
