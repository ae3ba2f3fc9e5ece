// internal/config/files.go
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"heatpump-collector/internal/model"
)

// File names inside the configuration directory.
const (
	RegistersFileName = "registers.yaml"
	DevicesFileName   = "heatpumps.yaml"
)

// RegisterMaps holds the register set for every known device model
type RegisterMaps map[string][]model.RegisterDescriptor

type registersFile struct {
	Models map[string]modelEntry `yaml:"models"`
}

type modelEntry struct {
	Registers []model.RegisterDescriptor `yaml:"registers"`
}

type devicesFile struct {
	Heatpumps []model.DeviceDescriptor `yaml:"heatpumps"`
}

// LoadRegisterMaps loads and validates the model register definitions
func LoadRegisterMaps(configDir string) (RegisterMaps, error) {
	path := filepath.Join(configDir, RegistersFileName)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open register definitions: %w", err)
	}
	defer f.Close()

	var file registersFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", RegistersFileName, err)
	}

	maps := make(RegisterMaps, len(file.Models))
	for name, entry := range file.Models {
		maps[name] = entry.Registers
	}

	if err := ValidateRegisterMaps(maps); err != nil {
		return nil, err
	}
	return maps, nil
}

// LoadDevices loads and validates the device list against the known models
func LoadDevices(configDir string, maps RegisterMaps) ([]model.DeviceDescriptor, error) {
	path := filepath.Join(configDir, DevicesFileName)

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open device list: %w", err)
	}
	defer f.Close()

	var file devicesFile
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", DevicesFileName, err)
	}

	if err := ValidateDevices(file.Heatpumps, maps); err != nil {
		return nil, err
	}
	return file.Heatpumps, nil
}
