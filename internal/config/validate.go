// internal/config/validate.go
package config

import (
	"fmt"

	"heatpump-collector/internal/model"
)

// ValidateRegisterMaps validates every model's register set
func ValidateRegisterMaps(maps RegisterMaps) error {
	for name, regs := range maps {
		if len(regs) == 0 {
			return fmt.Errorf("model %q: no registers defined", name)
		}
		if err := validateRegisterSet(name, regs); err != nil {
			return err
		}
	}
	return nil
}

// validateRegisterSet checks one model's registers: unique names, closed
// type/kind values, non-overlapping address spans per register space, and
// bitmap field names disjoint from every register name.
func validateRegisterSet(modelName string, regs []model.RegisterDescriptor) error {
	names := make(map[string]bool, len(regs))
	for _, r := range regs {
		if r.Name == "" {
			return fmt.Errorf("model %q: register with empty name", modelName)
		}
		if names[r.Name] {
			return fmt.Errorf("model %q: duplicate register name %q", modelName, r.Name)
		}
		names[r.Name] = true

		if !r.RegisterType.Valid() {
			return fmt.Errorf("model %q register %q: invalid register_type %q",
				modelName, r.Name, r.RegisterType)
		}
		if !r.DataType.Valid() {
			return fmt.Errorf("model %q register %q: invalid data_type %q",
				modelName, r.Name, r.DataType)
		}
		if r.Scale == 0 {
			return fmt.Errorf("model %q register %q: scale must be non-zero",
				modelName, r.Name)
		}

		if r.IsEnum() || r.IsBitmap() {
			if words, _ := r.DataType.WordCount(); words != 1 {
				return fmt.Errorf("model %q register %q: unit %q requires a single-word data type",
					modelName, r.Name, r.Unit)
			}
		}
		for bit, field := range r.BitmapFields {
			if bit < 0 || bit > 15 {
				return fmt.Errorf("model %q register %q: bitmap bit %d out of range 0-15",
					modelName, r.Name, bit)
			}
			if field == "" {
				return fmt.Errorf("model %q register %q: bitmap bit %d has empty field name",
					modelName, r.Name, bit)
			}
		}
	}

	// Bitmap-expanded field names share the flat sample namespace with
	// register names. A collision would silently overwrite a reading, so
	// it is rejected here.
	expanded := make(map[string]string) // field name -> owning register
	for _, r := range regs {
		if !r.IsBitmap() {
			continue
		}
		for _, field := range r.BitmapFields {
			if names[field] {
				return fmt.Errorf("model %q register %q: bitmap field %q collides with a register name",
					modelName, r.Name, field)
			}
			if owner, dup := expanded[field]; dup {
				return fmt.Errorf("model %q register %q: bitmap field %q already defined by register %q",
					modelName, r.Name, field, owner)
			}
			expanded[field] = r.Name
		}
	}

	return validateAddressSpans(modelName, regs)
}

// validateAddressSpans rejects registers whose multi-word spans overlap
// within the same register space.
func validateAddressSpans(modelName string, regs []model.RegisterDescriptor) error {
	type owner struct {
		name string
	}
	spans := map[model.RegisterKind]map[uint16]owner{
		model.RegisterKindHolding: {},
		model.RegisterKindInput:   {},
	}

	for _, r := range regs {
		words, err := r.DataType.WordCount()
		if err != nil {
			return fmt.Errorf("model %q register %q: %w", modelName, r.Name, err)
		}
		space := spans[r.RegisterType]
		for i := 0; i < words; i++ {
			addr := r.Address + uint16(i)
			if prev, taken := space[addr]; taken {
				return fmt.Errorf("model %q register %q: address %d already covered by register %q",
					modelName, r.Name, addr, prev.name)
			}
			space[addr] = owner{name: r.Name}
		}
	}
	return nil
}

// ValidateDevices checks the device list: unique ids, known models and
// sound connection parameters.
func ValidateDevices(devices []model.DeviceDescriptor, maps RegisterMaps) error {
	ids := make(map[string]bool, len(devices))
	for i := range devices {
		d := &devices[i]
		if d.ID == "" {
			return fmt.Errorf("device %d: id is required", i)
		}
		if ids[d.ID] {
			return fmt.Errorf("device %q: duplicate id", d.ID)
		}
		ids[d.ID] = true

		if d.Model == "" {
			return fmt.Errorf("device %q: model is required", d.ID)
		}
		if _, ok := maps[d.Model]; !ok {
			return fmt.Errorf("device %q: unknown model %q", d.ID, d.Model)
		}
		if err := ValidateConnection(&d.Modbus); err != nil {
			return fmt.Errorf("device %q: %w", d.ID, err)
		}
	}
	return nil
}

// ValidateConnection checks one device's Modbus connection parameters
func ValidateConnection(c *model.ConnectionConfig) error {
	switch c.Type {
	case model.ConnectionTypeTCP:
		if c.Host == "" {
			return fmt.Errorf("host is required for tcp connections")
		}
		if c.Port < 1 || c.Port > 65535 {
			return fmt.Errorf("port %d out of range 1-65535", c.Port)
		}
	case model.ConnectionTypeRTU:
		if c.SerialPort == "" {
			return fmt.Errorf("serial_port is required for rtu connections")
		}
		if c.BaudRate <= 0 {
			return fmt.Errorf("baudrate must be positive")
		}
	default:
		return fmt.Errorf("invalid connection type %q", c.Type)
	}

	if c.UnitID < 1 || c.UnitID > 247 {
		return fmt.Errorf("unit_id must be in range 1-247")
	}
	if c.TimeoutSeconds <= 0 {
		return fmt.Errorf("timeout must be positive")
	}
	if c.Retries < 0 {
		return fmt.Errorf("retries must not be negative")
	}
	if c.RetryDelaySeconds <= 0 {
		return fmt.Errorf("retry_delay must be positive")
	}
	return nil
}
