// Package devicemanager owns the live device set: it loads device
// descriptors, instantiates and initialises their plug-ins, ticks them once
// per worker loop cycle, and routes alarm-level events to the devices whose
// hardware role the event concerns (spec §4.4).
package devicemanager

import (
	"secureshed/internal/device"
	"secureshed/internal/eventbus"
	"secureshed/internal/gpio"
	"secureshed/internal/logging"
)

// liveDevice pairs a descriptor with its initialised plug-in instance.
type liveDevice struct {
	descriptor device.Descriptor
	instance   device.Instance
}

// Manager owns the live device set for one controller process.
type Manager struct {
	bus     *eventbus.Bus
	gpioCtl *gpio.Controller
	log     *logging.Logger

	devices []liveDevice
}

// New creates an empty manager; call Load to populate it from configuration.
func New(bus *eventbus.Bus, gpioCtl *gpio.Controller, log *logging.Logger) *Manager {
	m := &Manager{bus: bus, gpioCtl: gpioCtl, log: log}
	bus.Register(eventbus.ActivateSiren, m.receiveEvent)
	bus.Register(eventbus.DeactivateSiren, m.receiveEvent)
	bus.Register(eventbus.AlarmActivated, m.receiveEvent)
	bus.Register(eventbus.AlarmDeactivated, m.receiveEvent)
	return m
}

// Load instantiates and initialises every enabled descriptor. A descriptor
// that is disabled, names an unknown device type, or whose Initialise
// returns false is skipped with a warning log; nothing here is fatal to
// boot (spec §4.4).
func (m *Manager) Load(descriptors []device.Descriptor) {
	for _, d := range descriptors {
		if !d.Enabled {
			m.log.Warning("device %q is disabled, not loading it", d.Name)
			continue
		}

		builder, ok := device.Lookup(d.DeviceType)
		if !ok {
			m.log.Warning("ignoring device %q: unknown device type %q", d.Name, d.DeviceType)
			continue
		}

		instance := builder(m.bus, m.gpioCtl, m.log)

		additionalParams := map[string]any{}
		if d.TriggerGracePeriodSecs != nil {
			additionalParams["triggerGracePeriodSecs"] = *d.TriggerGracePeriodSecs
		}

		if !instance.Initialise(d.Name, d.Pins, additionalParams) {
			m.log.Warning("device plug-in %q initialisation failed so cannot be used", d.Name)
			continue
		}

		m.devices = append(m.devices, liveDevice{descriptor: d, instance: instance})
	}
}

// CheckAll polls every live device once, called each worker tick after the
// GPIO backend has been rescanned for external edits.
func (m *Manager) CheckAll() {
	for _, d := range m.devices {
		d.instance.CheckDevice()
	}
}

// Cleanup releases whatever the live device set holds. The emulated GPIO
// backend needs no explicit release, but the hook mirrors the original's
// single `cleanup_devices` call so a future real hardware backend has a
// place to hang process-wide teardown.
func (m *Manager) Cleanup() {
	m.log.Info("cleaning up hardware devices")
}

func (m *Manager) receiveEvent(event eventbus.Event) {
	switch event.Kind {
	case eventbus.ActivateSiren:
		m.dispatchToHardware(device.HardwareSiren, event, "activating alarm siren %q")
	case eventbus.DeactivateSiren:
		m.dispatchToHardware(device.HardwareSiren, event, "deactivating alarm siren %q")
	case eventbus.AlarmActivated:
		body, _ := event.Body.(eventbus.AlarmActivatedBody)
		if body.NoGraceTime {
			return
		}
		m.dispatchToHardware(device.HardwareSensor, event, "")
	case eventbus.AlarmDeactivated:
		m.dispatchToHardware(device.HardwareSensor, event, "")
	}
}

func (m *Manager) dispatchToHardware(hardware device.Hardware, event eventbus.Event, logFmt string) {
	for _, d := range m.devices {
		if d.descriptor.Hardware != hardware {
			continue
		}
		if logFmt != "" {
			m.log.Info(logFmt, d.descriptor.Name)
		}
		d.instance.ReceiveEvent(event)
	}
}
