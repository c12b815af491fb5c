package device_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"secureshed/internal/device"
	"secureshed/internal/eventbus"
	"secureshed/internal/gpio"
	"secureshed/internal/logging"
)

func newTestLogger(t *testing.T) *logging.Logger {
	t.Helper()
	log, err := logging.New("test", t.TempDir(), 16)
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })
	return log
}

func newTestGPIO(t *testing.T) *gpio.Controller {
	t.Helper()
	c, err := gpio.NewController(filepath.Join(t.TempDir(), "pins.json"))
	require.NoError(t, err)
	return c
}

func TestSirenInitialiseRejectsWrongPinCount(t *testing.T) {
	builder, ok := device.Lookup("GenericAlarmSiren")
	require.True(t, ok)

	siren := builder(eventbus.New(), newTestGPIO(t), newTestLogger(t))
	ok = siren.Initialise("siren1", nil, nil)
	require.False(t, ok)
}

func TestSirenInitialiseRequiresSirenPin(t *testing.T) {
	builder, _ := device.Lookup("GenericAlarmSiren")
	siren := builder(eventbus.New(), newTestGPIO(t), newTestLogger(t))

	ok := siren.Initialise("siren1", []device.Pin{{Identifier: "wrongPin", IOPin: gpio.GPIO18}}, nil)
	require.False(t, ok)
}

func TestSirenDrivesPinLowOnActivate(t *testing.T) {
	builder, _ := device.Lookup("GenericAlarmSiren")
	gpioCtl := newTestGPIO(t)
	siren := builder(eventbus.New(), gpioCtl, newTestLogger(t))

	ok := siren.Initialise("siren1", []device.Pin{{Identifier: "sirenPin", IOPin: gpio.GPIO18}}, nil)
	require.True(t, ok)
	require.Equal(t, gpio.High, gpioCtl.Read(gpio.GPIO18))

	siren.ReceiveEvent(eventbus.Event{Kind: eventbus.ActivateSiren})
	require.Equal(t, gpio.Low, gpioCtl.Read(gpio.GPIO18))

	siren.ReceiveEvent(eventbus.Event{Kind: eventbus.DeactivateSiren})
	require.Equal(t, gpio.High, gpioCtl.Read(gpio.GPIO18))
}
