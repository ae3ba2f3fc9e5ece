// internal/model/yaml.go
package model

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Descriptor defaults match the values the device files may omit.
const (
	defaultScale      = 1.0
	defaultTCPPort    = 502
	defaultUnitID     = 1
	defaultBaudRate   = 9600
	defaultDataBits   = 8
	defaultParity     = "N"
	defaultStopBits   = 1
	defaultTimeout    = 5.0
	defaultRetries    = 3
	defaultRetryDelay = 1.0
)

// UnmarshalYAML applies register defaults and rejects unknown fields
func (r *RegisterDescriptor) UnmarshalYAML(value *yaml.Node) error {
	if err := checkFields(value, "name", "address", "register_type",
		"data_type", "scale", "unit", "description", "enum_values",
		"bitmap_fields"); err != nil {
		return err
	}

	type plain RegisterDescriptor
	tmp := plain{
		RegisterType: RegisterKindHolding,
		DataType:     DataTypeInt16,
		Scale:        defaultScale,
	}
	if err := value.Decode(&tmp); err != nil {
		return err
	}
	*r = RegisterDescriptor(tmp)
	return nil
}

// UnmarshalYAML applies device defaults and rejects unknown fields
func (d *DeviceDescriptor) UnmarshalYAML(value *yaml.Node) error {
	if err := checkFields(value, "id", "name", "location", "model",
		"enabled", "modbus"); err != nil {
		return err
	}

	type plain DeviceDescriptor
	tmp := plain{Enabled: true}
	if err := value.Decode(&tmp); err != nil {
		return err
	}
	*d = DeviceDescriptor(tmp)
	return nil
}

// UnmarshalYAML applies connection defaults and rejects unknown fields
func (c *ConnectionConfig) UnmarshalYAML(value *yaml.Node) error {
	if err := checkFields(value, "type", "host", "port", "unit_id",
		"serial_port", "baudrate", "bytesize", "parity", "stopbits",
		"timeout", "retries", "retry_delay"); err != nil {
		return err
	}

	type plain ConnectionConfig
	tmp := plain{
		Type:              ConnectionTypeTCP,
		Port:              defaultTCPPort,
		UnitID:            defaultUnitID,
		BaudRate:          defaultBaudRate,
		DataBits:          defaultDataBits,
		Parity:            defaultParity,
		StopBits:          defaultStopBits,
		TimeoutSeconds:    defaultTimeout,
		Retries:           defaultRetries,
		RetryDelaySeconds: defaultRetryDelay,
	}
	if err := value.Decode(&tmp); err != nil {
		return err
	}
	*c = ConnectionConfig(tmp)
	return nil
}

// checkFields rejects mapping keys outside the allowed set so that a typo in
// a config file fails at load rather than silently defaulting at use.
func checkFields(value *yaml.Node, allowed ...string) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", value.Line)
	}
	known := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		known[f] = true
	}
	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		if !known[key] {
			return fmt.Errorf("line %d: unknown field %q", value.Content[i].Line, key)
		}
	}
	return nil
}
