// Package device implements the device plug-in contract (spec §4.3) and
// the compile-time type registry that replaces the original's dynamic
// plug-in loading by name (spec §9: "registry-style dynamic plug-in
// loading by name becomes a compile-time registry table").
package device

import (
	"fmt"
	"sync"

	"secureshed/internal/eventbus"
	"secureshed/internal/gpio"
	"secureshed/internal/logging"
)

// Hardware is the hardware role a device descriptor declares (spec §3).
type Hardware string

const (
	HardwareSensor Hardware = "sensor"
	HardwareSiren  Hardware = "siren"
)

// Pin is one entry of a DeviceDescriptor's pin list (spec §3).
type Pin struct {
	Identifier string
	IOPin      gpio.Label
}

// Descriptor is the DeviceDescriptor data model item (spec §3): immutable
// once constructed at boot.
type Descriptor struct {
	Name                   string
	Hardware               Hardware
	DeviceType             string
	Pins                   []Pin
	Enabled                bool
	TriggerGracePeriodSecs *int
}

// Instance is the live object implementing the device plug-in contract.
// Every concrete device type (GenericAlarmSiren, MagneticContactSensor)
// implements this interface.
type Instance interface {
	// Initialise configures the device from its descriptor's pins and any
	// additional parameters. Returning false removes the device from the
	// live set without being fatal to the rest of boot (spec §4.3).
	Initialise(deviceName string, pins []Pin, additionalParams map[string]any) bool

	// CheckDevice is polled once per worker tick; it may publish
	// SensorDeviceStateChange.
	CheckDevice()

	// ReceiveEvent is called for alarm-level events routed by the device
	// manager (AlarmActivated/AlarmDeactivated for sensors,
	// ActivateSiren/DeactivateSiren for sirens).
	ReceiveEvent(event eventbus.Event)
}

// Builder constructs a fresh, uninitialised Instance for a device type.
// Concrete types register a Builder under their type name in init().
type Builder func(bus *eventbus.Bus, gpioCtl *gpio.Controller, log *logging.Logger) Instance

var (
	mu       sync.RWMutex
	builders = map[string]Builder{}
)

// Register installs a builder for deviceType. Panics on duplicate
// registration — a programmer error caught at init time, not a runtime
// configuration error.
func Register(deviceType string, b Builder) {
	mu.Lock()
	defer mu.Unlock()
	if _, exists := builders[deviceType]; exists {
		panic(fmt.Sprintf("device: builder already registered for type %q", deviceType))
	}
	builders[deviceType] = b
}

// Lookup returns the registered builder for deviceType, or false if the
// type name is not in the registry (spec §7: "unknown type ... collapse
// into a single 'type not in registry' warning").
func Lookup(deviceType string) (Builder, bool) {
	mu.RLock()
	defer mu.RUnlock()
	b, ok := builders[deviceType]
	return b, ok
}
