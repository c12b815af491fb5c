// Package schema compiles and exposes the JSON Schemas governing the wire
// bodies and configuration files described in spec §6, using
// github.com/santhosh-tekuri/jsonschema/v6. Grounded on the dependency
// manifest in other_examples/ab30510f_urmzd-homai (a sibling project that
// validates its own config/wire bodies the same way).
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const (
	receiveKeyCodeSchema = `{
		"type": "object",
		"additionalProperties": false,
		"required": ["keySequence"],
		"properties": {
			"keySequence": {"type": "string"}
		}
	}`

	keypadLockRequestSchema = `{
		"type": "object",
		"additionalProperties": false,
		"required": ["lockTime"],
		"properties": {
			"lockTime": {"type": "integer", "minimum": 0}
		}
	}`

	retrieveConsoleLogsRequestSchema = `{
		"type": "object",
		"additionalProperties": false,
		"required": ["startTimestamp"],
		"properties": {
			"startTimestamp": {"type": "number", "minimum": 0}
		}
	}`

	deviceTypesConfigSchema = `{
		"type": "object",
		"additionalProperties": false,
		"required": ["deviceTypes"],
		"properties": {
			"deviceTypes": {
				"type": "array",
				"items": {
					"type": "object",
					"additionalProperties": false,
					"required": ["name", "enabled"],
					"properties": {
						"name": {"type": "string"},
						"enabled": {"type": "boolean"}
					}
				}
			}
		}
	}`

	devicesConfigSchema = `{
		"type": "object",
		"additionalProperties": false,
		"required": ["devices"],
		"properties": {
			"devices": {
				"type": "array",
				"items": {
					"type": "object",
					"additionalProperties": false,
					"required": ["deviceType", "hardware", "name", "enabled", "pins"],
					"properties": {
						"deviceType": {"type": "string"},
						"hardware": {"type": "string", "enum": ["sensor", "siren"]},
						"name": {"type": "string"},
						"enabled": {"type": "boolean"},
						"pins": {
							"type": "array",
							"items": {
								"type": "object",
								"additionalProperties": false,
								"required": ["ioPin", "identifier"],
								"properties": {
									"ioPin": {
										"type": "string",
										"enum": ["GPIO05", "GPIO06", "GPIO14", "GPIO15", "GPIO18", "GPIO23", "GPIO24", "GPIO25"]
									},
									"identifier": {"type": "string"}
								}
							}
						},
						"triggerGracePeriodSecs": {"type": "integer", "minimum": 1}
					}
				}
			}
		}
	}`

	powerConsoleConfigSchema = `{
		"type": "object",
		"additionalProperties": false,
		"required": ["centralController", "keypadController"],
		"properties": {
			"centralController": {
				"type": "object",
				"additionalProperties": false,
				"required": ["endpoint", "authorisationKey"],
				"properties": {
					"endpoint": {"type": "string"},
					"authorisationKey": {"type": "string"}
				}
			},
			"keypadController": {
				"type": "object",
				"additionalProperties": false,
				"required": ["endpoint", "authorisationKey"],
				"properties": {
					"endpoint": {"type": "string"},
					"authorisationKey": {"type": "string"}
				}
			}
		}
	}`

	failedAttemptConfigSchema = `{
		"type": "array",
		"items": {
			"type": "object",
			"additionalProperties": false,
			"required": ["attemptNo", "actions"],
			"properties": {
				"attemptNo": {"type": "integer", "minimum": 1, "maximum": 100},
				"actions": {
					"type": "array",
					"items": {
						"type": "object",
						"additionalProperties": false,
						"required": ["actionType"],
						"properties": {
							"actionType": {"type": "string", "enum": ["disableKeyPad", "triggerAlarm", "resetAttemptAccount"]},
							"parameters": {
								"type": "array",
								"items": {
									"type": "object",
									"additionalProperties": false,
									"properties": {
										"key": {"type": "string"},
										"value": {}
									}
								}
							}
						}
					}
				}
			}
		}
	}`
)

// Name identifies one compiled schema.
type Name string

const (
	ReceiveKeyCode          Name = "receiveKeyCode"
	KeypadLockRequest       Name = "keypadLockRequest"
	RetrieveConsoleLogsReq  Name = "retrieveConsoleLogsRequest"
	DeviceTypesConfig       Name = "deviceTypesConfig"
	DevicesConfig           Name = "devicesConfig"
	FailedAttemptConfig     Name = "failedAttemptConfig"
	PowerConsoleConfig      Name = "powerConsoleConfig"
)

var sources = map[Name]string{
	ReceiveKeyCode:         receiveKeyCodeSchema,
	KeypadLockRequest:      keypadLockRequestSchema,
	RetrieveConsoleLogsReq: retrieveConsoleLogsRequestSchema,
	DeviceTypesConfig:      deviceTypesConfigSchema,
	DevicesConfig:          devicesConfigSchema,
	FailedAttemptConfig:    failedAttemptConfigSchema,
	PowerConsoleConfig:     powerConsoleConfigSchema,
}

// Set is a compiled collection of all schemas, ready for repeated Validate
// calls against decoded JSON values.
type Set struct {
	schemas map[Name]*jsonschema.Schema
}

// Compile builds a Set from the fixed schema sources above.
func Compile() (*Set, error) {
	compiler := jsonschema.NewCompiler()

	for name, src := range sources {
		var doc any
		if err := json.Unmarshal([]byte(src), &doc); err != nil {
			return nil, fmt.Errorf("schema: parsing %s: %w", name, err)
		}
		resourceURL := string(name) + ".json"
		if err := compiler.AddResource(resourceURL, doc); err != nil {
			return nil, fmt.Errorf("schema: adding resource %s: %w", name, err)
		}
	}

	set := &Set{schemas: make(map[Name]*jsonschema.Schema, len(sources))}
	for name := range sources {
		sch, err := compiler.Compile(string(name) + ".json")
		if err != nil {
			return nil, fmt.Errorf("schema: compiling %s: %w", name, err)
		}
		set.schemas[name] = sch
	}
	return set, nil
}

// Validate decodes data as JSON and validates it against the named schema.
func (s *Set) Validate(name Name, data []byte) error {
	sch, ok := s.schemas[name]
	if !ok {
		return fmt.Errorf("schema: no compiled schema named %q", name)
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("schema: decoding JSON: %w", err)
	}

	return sch.Validate(doc)
}

// ValidateValue validates an already-decoded value (e.g. from a config file
// loaded with encoding/json into a map[string]any).
func (s *Set) ValidateValue(name Name, doc any) error {
	sch, ok := s.schemas[name]
	if !ok {
		return fmt.Errorf("schema: no compiled schema named %q", name)
	}
	return sch.Validate(doc)
}
