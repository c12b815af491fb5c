package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"secureshed/internal/config"
	"secureshed/internal/device"
	"secureshed/internal/schema"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoadDevicesSkipsDisabledType(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "deviceTypes.json", `{"deviceTypes":[{"name":"GenericAlarmSiren","enabled":false}]}`)
	writeFile(t, dir, "devices.json", `{"devices":[{"deviceType":"GenericAlarmSiren","hardware":"siren","name":"siren1","enabled":true,"pins":[{"ioPin":"GPIO18","identifier":"sirenPin"}]}]}`)

	schemas, err := schema.Compile()
	require.NoError(t, err)

	devices, err := config.LoadDevices(dir, schemas)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.False(t, devices[0].Enabled)
}

func TestLoadDevicesKeepsEnabledType(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "deviceTypes.json", `{"deviceTypes":[{"name":"MagneticContactSensor","enabled":true}]}`)
	writeFile(t, dir, "devices.json", `{"devices":[{"deviceType":"MagneticContactSensor","hardware":"sensor","name":"door1","enabled":true,"pins":[{"ioPin":"GPIO23","identifier":"sensorPin"}],"triggerGracePeriodSecs":10}]}`)

	schemas, err := schema.Compile()
	require.NoError(t, err)

	devices, err := config.LoadDevices(dir, schemas)
	require.NoError(t, err)
	require.Len(t, devices, 1)
	require.True(t, devices[0].Enabled)
	require.Equal(t, device.HardwareSensor, devices[0].Hardware)
	require.NotNil(t, devices[0].TriggerGracePeriodSecs)
	require.Equal(t, 10, *devices[0].TriggerGracePeriodSecs)
}

func TestLoadFailedAttemptResponsesParsesDisableKeyPad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "failedAttempts.json", `[{"attemptNo":3,"actions":[{"actionType":"disableKeyPad","parameters":[{"key":"lockTime","value":30}]}]}]`)

	schemas, err := schema.Compile()
	require.NoError(t, err)

	responses, err := config.LoadFailedAttemptResponses(dir, schemas)
	require.NoError(t, err)
	require.Len(t, responses[3], 1)
	require.True(t, responses[3][0].DisableKeyPad)
	require.Equal(t, 30, responses[3][0].DisableKeyPadSecs)
}

func TestLoadFailedAttemptResponsesMissingFileIsEmpty(t *testing.T) {
	dir := t.TempDir()
	schemas, err := schema.Compile()
	require.NoError(t, err)

	responses, err := config.LoadFailedAttemptResponses(dir, schemas)
	require.NoError(t, err)
	require.Empty(t, responses)
}

func TestLoadPowerConsoleConfigParsesBothSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "powerconsole.json")
	writeFile(t, dir, "powerconsole.json", `{"centralController":{"endpoint":"http://central.local:8443","authorisationKey":"central-secret"},"keypadController":{"endpoint":"http://keypad.local:8444","authorisationKey":"keypad-secret"}}`)

	schemas, err := schema.Compile()
	require.NoError(t, err)

	cfg, err := config.LoadPowerConsoleConfig(path, schemas)
	require.NoError(t, err)
	require.Equal(t, "http://central.local:8443", cfg.CentralController.Endpoint)
	require.Equal(t, "central-secret", cfg.CentralController.AuthKey)
	require.Equal(t, "http://keypad.local:8444", cfg.KeypadController.Endpoint)
	require.Equal(t, "keypad-secret", cfg.KeypadController.AuthKey)
}

func TestRequireEnvFailsWhenAbsent(t *testing.T) {
	os.Unsetenv("CENCON_CONFIG_TEST_MISSING")
	_, err := config.RequireEnv("CENCON_CONFIG_TEST_MISSING")
	require.Error(t, err)
}

func TestRequireEnvSucceedsWhenSet(t *testing.T) {
	t.Setenv("CENCON_CONFIG_TEST_PRESENT", "/tmp/somewhere")
	v, err := config.RequireEnv("CENCON_CONFIG_TEST_PRESENT")
	require.NoError(t, err)
	require.Equal(t, "/tmp/somewhere", v)
}
