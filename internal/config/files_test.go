// internal/config/files_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heatpump-collector/internal/model"
)

const registersDoc = `
models:
  nibe-f1255:
    registers:
      - name: outdoor_temp
        address: 1
        data_type: int16
        scale: 0.1
        unit: "°C"
      - name: status_flags
        address: 31
        data_type: uint16
        unit: bitmap
        bitmap_fields:
          0: compressor_running
`

const devicesDoc = `
heatpumps:
  - id: hp-1
    name: Basement
    model: nibe-f1255
    modbus:
      type: tcp
      host: 10.0.0.1
`

func writeConfigDir(t *testing.T, registers, devices string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, RegistersFileName), []byte(registers), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, DevicesFileName), []byte(devices), 0644))
	return dir
}

func TestLoadRegisterMaps(t *testing.T) {
	dir := writeConfigDir(t, registersDoc, devicesDoc)

	maps, err := LoadRegisterMaps(dir)
	require.NoError(t, err)
	require.Contains(t, maps, "nibe-f1255")

	regs := maps["nibe-f1255"]
	require.Len(t, regs, 2)
	assert.Equal(t, "outdoor_temp", regs[0].Name)
	assert.Equal(t, model.RegisterKindHolding, regs[0].RegisterType)
	assert.Equal(t, 0.1, regs[0].Scale)
	assert.True(t, regs[1].IsBitmap())
}

func TestLoadRegisterMapsUnknownField(t *testing.T) {
	bad := `
models:
  m1:
    registers:
      - name: x
        adress: 1
`
	dir := writeConfigDir(t, bad, devicesDoc)

	_, err := LoadRegisterMaps(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "adress")
}

func TestLoadDevices(t *testing.T) {
	dir := writeConfigDir(t, registersDoc, devicesDoc)

	maps, err := LoadRegisterMaps(dir)
	require.NoError(t, err)

	devices, err := LoadDevices(dir, maps)
	require.NoError(t, err)
	require.Len(t, devices, 1)

	d := devices[0]
	assert.Equal(t, "hp-1", d.ID)
	assert.True(t, d.Enabled)
	assert.Equal(t, 502, d.Modbus.Port)
	assert.Equal(t, 3, d.Modbus.Retries)
}

func TestLoadDevicesUnknownModel(t *testing.T) {
	bad := `
heatpumps:
  - id: hp-1
    model: missing
    modbus:
      type: tcp
      host: 10.0.0.1
`
	dir := writeConfigDir(t, registersDoc, bad)

	maps, err := LoadRegisterMaps(dir)
	require.NoError(t, err)

	_, err = LoadDevices(dir, maps)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown model")
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	doc := `
influxdb:
  url: http://localhost:8086
  token: secret
  org: test-org
  bucket: test-bucket
collector:
  poll_interval: 15s
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(doc), 0644))

	cfg, err := Load(dir)
	require.NoError(t, err)

	assert.Equal(t, "test-org", cfg.InfluxDB.Org)
	assert.Equal(t, "15s", cfg.Collector.PollInterval.String())
	// defaults fill the rest
	assert.Equal(t, 100, cfg.Collector.BatchSize)
	assert.Equal(t, "heatpump_metrics", cfg.Collector.Measurement)
	assert.Equal(t, "0.0.0.0:8000", cfg.GetServerAddr())
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfigMissingDir(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
}
