package devicemanager_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"secureshed/internal/device"
	"secureshed/internal/devicemanager"
	"secureshed/internal/eventbus"
	"secureshed/internal/gpio"
	"secureshed/internal/logging"
)

func newManager(t *testing.T) (*devicemanager.Manager, *eventbus.Bus, *gpio.Controller) {
	t.Helper()
	log, err := logging.New("test", t.TempDir(), 16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	gpioCtl, err := gpio.NewController(filepath.Join(t.TempDir(), "pins.json"))
	require.NoError(t, err)

	bus := eventbus.New()
	mgr := devicemanager.New(bus, gpioCtl, log)
	return mgr, bus, gpioCtl
}

func TestLoadSkipsDisabledDevice(t *testing.T) {
	mgr, bus, _ := newManager(t)
	mgr.Load([]device.Descriptor{
		{Name: "siren1", Hardware: device.HardwareSiren, DeviceType: "GenericAlarmSiren", Enabled: false},
	})

	require.NoError(t, bus.Queue(eventbus.Event{Kind: eventbus.ActivateSiren}))
	mgr.CheckAll()
}

func TestLoadSkipsUnknownDeviceType(t *testing.T) {
	mgr, _, _ := newManager(t)
	mgr.Load([]device.Descriptor{
		{Name: "mystery1", Hardware: device.HardwareSensor, DeviceType: "DoesNotExist", Enabled: true},
	})
	mgr.CheckAll()
}

func TestActivateSirenDispatchesOnlyToSirens(t *testing.T) {
	mgr, bus, gpioCtl := newManager(t)
	mgr.Load([]device.Descriptor{
		{
			Name: "siren1", Hardware: device.HardwareSiren, DeviceType: "GenericAlarmSiren", Enabled: true,
			Pins: []device.Pin{{Identifier: "sirenPin", IOPin: gpio.GPIO18}},
		},
	})
	require.Equal(t, gpio.High, gpioCtl.Read(gpio.GPIO18))

	require.NoError(t, bus.Queue(eventbus.Event{Kind: eventbus.ActivateSiren}))
	bus.ProcessNext()
	require.Equal(t, gpio.Low, gpioCtl.Read(gpio.GPIO18))

	require.NoError(t, bus.Queue(eventbus.Event{Kind: eventbus.DeactivateSiren}))
	bus.ProcessNext()
	require.Equal(t, gpio.High, gpioCtl.Read(gpio.GPIO18))
}

func TestAlarmActivatedWithNoGraceTimeSkipsSensors(t *testing.T) {
	mgr, bus, gpioCtl := newManager(t)
	grace := 10
	mgr.Load([]device.Descriptor{
		{
			Name: "sensor1", Hardware: device.HardwareSensor, DeviceType: "MagneticContactSensor", Enabled: true,
			Pins:                   []device.Pin{{Identifier: "sensorPin", IOPin: gpio.GPIO23}},
			TriggerGracePeriodSecs: &grace,
		},
	})

	require.NoError(t, bus.Queue(eventbus.Event{
		Kind: eventbus.AlarmActivated,
		Body: eventbus.AlarmActivatedBody{ActivationTimestamp: 1000, NoGraceTime: true},
	}))
	bus.ProcessNext()

	// Sensor must not have entered its grace-period state; verifying this
	// requires no externally observable effect beyond "no panic and the
	// event drained cleanly", since NoGraceTime routing is opaque from
	// outside the manager.
	require.Equal(t, 0, bus.Len())
	_ = gpioCtl
}
