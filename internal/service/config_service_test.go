// internal/service/config_service_test.go
package service

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"heatpump-collector/internal/config"
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

func newTestConfigService(t *testing.T) *ConfigService {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.RegistersFileName), []byte(registersDoc), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DevicesFileName), []byte(devicesDoc), 0644))

	svc, err := NewConfigService(dir, zap.NewNop())
	require.NoError(t, err)
	return svc
}

func validDevice(id string) model.DeviceDescriptor {
	return model.DeviceDescriptor{
		ID:      id,
		Name:    id,
		Model:   "nibe-f1255",
		Enabled: true,
		Modbus: model.ConnectionConfig{
			Type:              model.ConnectionTypeTCP,
			Host:              "10.0.0.2",
			Port:              502,
			UnitID:            1,
			TimeoutSeconds:    5,
			Retries:           3,
			RetryDelaySeconds: 1,
		},
	}
}

func TestConfigServiceList(t *testing.T) {
	svc := newTestConfigService(t)

	devices, err := svc.List()
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "hp-1", devices[0].ID)
}

func TestConfigServiceGet(t *testing.T) {
	svc := newTestConfigService(t)

	d, err := svc.Get("hp-1")
	require.NoError(t, err)
	assert.Equal(t, "Basement", d.Name)

	_, err = svc.Get("missing")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestConfigServiceCreate(t *testing.T) {
	svc := newTestConfigService(t)

	require.NoError(t, svc.Create(validDevice("hp-2")))

	devices, _ := svc.List()
	assert.Len(t, devices, 2)

	err := svc.Create(validDevice("hp-1"))
	assert.ErrorIs(t, err, ErrDeviceExists)
}

func TestConfigServiceCreateRejectsUnknownModel(t *testing.T) {
	svc := newTestConfigService(t)

	d := validDevice("hp-2")
	d.Model = "missing"
	err := svc.Create(d)
	require.Error(t, err)

	// failed create leaves the list untouched
	devices, _ := svc.List()
	assert.Len(t, devices, 1)
}

func TestConfigServiceUpdate(t *testing.T) {
	svc := newTestConfigService(t)

	d := validDevice("ignored")
	d.Name = "Renamed"
	require.NoError(t, svc.Update("hp-1", d))

	got, err := svc.Get("hp-1")
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	err = svc.Update("missing", validDevice("missing"))
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestConfigServiceDelete(t *testing.T) {
	svc := newTestConfigService(t)

	require.NoError(t, svc.Delete("hp-1"))
	_, err := svc.Get("hp-1")
	assert.ErrorIs(t, err, ErrDeviceNotFound)

	err = svc.Delete("hp-1")
	assert.ErrorIs(t, err, ErrDeviceNotFound)
}

func TestConfigServicePersists(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.RegistersFileName), []byte(registersDoc), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DevicesFileName), []byte(devicesDoc), 0644))

	svc, err := NewConfigService(dir, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, svc.Create(validDevice("hp-2")))

	// a fresh service sees the written file
	reloaded, err := NewConfigService(dir, zap.NewNop())
	require.NoError(t, err)

	devices, _ := reloaded.List()
	assert.Len(t, devices, 2)
}

func TestConfigServiceUpdatePollInterval(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.RegistersFileName), []byte(registersDoc), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, config.DevicesFileName), []byte(devicesDoc), 0644))
	cfgDoc := "influxdb:\n  url: http://localhost:8086\ncollector:\n  poll_interval: 10s\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(cfgDoc), 0644))

	svc, err := NewConfigService(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, svc.UpdatePollInterval(30*time.Second))

	raw, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "poll_interval: 30s")
	// unrelated settings survive the rewrite
	assert.Contains(t, string(raw), "http://localhost:8086")

	// bounds are enforced
	assert.Error(t, svc.UpdatePollInterval(time.Second))
	assert.Error(t, svc.UpdatePollInterval(10*time.Minute))
}

func TestConfigServiceModels(t *testing.T) {
	svc := newTestConfigService(t)

	assert.Equal(t, []string{"nibe-f1255"}, svc.Models())

	regs, err := svc.Registers("nibe-f1255")
	require.NoError(t, err)
	assert.Len(t, regs, 1)

	_, err = svc.Registers("missing")
	require.Error(t, err)
}
