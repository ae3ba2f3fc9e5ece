// internal/service/config_service.go
package service

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"heatpump-collector/internal/config"
	"heatpump-collector/internal/model"
)

// Errors returned by device configuration lookups and edits
var (
	ErrDeviceNotFound = errors.New("service: heat pump not found")
	ErrDeviceExists   = errors.New("service: heat pump already exists")
)

// ConfigService manages the heat pump list in the configuration
// directory. Edits are validated against the known register maps and
// written back atomically; the collector picks them up on restart.
type ConfigService struct {
	configDir string
	maps      config.RegisterMaps
	logger    *zap.Logger

	mu      sync.Mutex
	devices []model.DeviceDescriptor
}

// NewConfigService loads the device list and register maps from configDir
func NewConfigService(configDir string, logger *zap.Logger) (*ConfigService, error) {
	maps, err := config.LoadRegisterMaps(configDir)
	if err != nil {
		return nil, err
	}

	devices, err := config.LoadDevices(configDir, maps)
	if err != nil {
		return nil, err
	}

	return &ConfigService{
		configDir: configDir,
		maps:      maps,
		logger:    logger,
		devices:   devices,
	}, nil
}

// Models returns the names of all known device models
func (s *ConfigService) Models() []string {
	names := make([]string, 0, len(s.maps))
	for name := range s.maps {
		names = append(names, name)
	}
	return names
}

// Registers returns the register map of one model
func (s *ConfigService) Registers(modelName string) ([]model.RegisterDescriptor, error) {
	regs, ok := s.maps[modelName]
	if !ok {
		return nil, fmt.Errorf("unknown model %q", modelName)
	}
	return regs, nil
}

// List returns all configured heat pumps
func (s *ConfigService) List() ([]model.DeviceDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.DeviceDescriptor, len(s.devices))
	copy(out, s.devices)
	return out, nil
}

// Get returns one heat pump by id
func (s *ConfigService) Get(id string) (*model.DeviceDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.devices {
		if s.devices[i].ID == id {
			d := s.devices[i]
			return &d, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
}

// Create adds a new heat pump and persists the list
func (s *ConfigService) Create(device model.DeviceDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.devices {
		if s.devices[i].ID == device.ID {
			return fmt.Errorf("%w: %s", ErrDeviceExists, device.ID)
		}
	}

	next := append(append([]model.DeviceDescriptor{}, s.devices...), device)
	if err := s.saveLocked(next); err != nil {
		return err
	}

	s.logger.Info("Heat pump added", zap.String("heat_pump_id", device.ID))
	return nil
}

// Update replaces an existing heat pump and persists the list. The id in
// the path wins over any id in the body.
func (s *ConfigService) Update(id string, device model.DeviceDescriptor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	device.ID = id
	next := make([]model.DeviceDescriptor, len(s.devices))
	copy(next, s.devices)

	found := false
	for i := range next {
		if next[i].ID == id {
			next[i] = device
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	if err := s.saveLocked(next); err != nil {
		return err
	}

	s.logger.Info("Heat pump updated", zap.String("heat_pump_id", id))
	return nil
}

// Delete removes a heat pump and persists the list
func (s *ConfigService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]model.DeviceDescriptor, 0, len(s.devices))
	found := false
	for i := range s.devices {
		if s.devices[i].ID == id {
			found = true
			continue
		}
		next = append(next, s.devices[i])
	}
	if !found {
		return fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
	}

	if err := s.saveLocked(next); err != nil {
		return err
	}

	s.logger.Info("Heat pump removed", zap.String("heat_pump_id", id))
	return nil
}

// UpdatePollInterval rewrites collector.poll_interval in config.yaml,
// keeping every other setting untouched. The collector applies the new
// value on its next start.
func (s *ConfigService) UpdatePollInterval(interval time.Duration) error {
	if interval < config.MinPollInterval || interval > config.MaxPollInterval {
		return fmt.Errorf("poll interval %s out of range %s-%s",
			interval, config.MinPollInterval, config.MaxPollInterval)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.configDir, "config.yaml")
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var doc map[string]interface{}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	collector, _ := doc["collector"].(map[string]interface{})
	if collector == nil {
		collector = map[string]interface{}{}
		doc["collector"] = collector
	}
	collector["poll_interval"] = interval.String()

	data, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal config file: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace config file: %w", err)
	}

	s.logger.Info("Poll interval updated", zap.Duration("poll_interval", interval))
	return nil
}

// saveLocked validates the candidate list, writes it atomically and only
// then replaces the in-memory copy. Callers hold s.mu.
func (s *ConfigService) saveLocked(devices []model.DeviceDescriptor) error {
	if err := config.ValidateDevices(devices, s.maps); err != nil {
		return err
	}

	data, err := yaml.Marshal(struct {
		Heatpumps []model.DeviceDescriptor `yaml:"heatpumps"`
	}{Heatpumps: devices})
	if err != nil {
		return fmt.Errorf("marshal device list: %w", err)
	}

	path := filepath.Join(s.configDir, config.DevicesFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write device list: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace device list: %w", err)
	}

	s.devices = devices
	return nil
}
