// internal/model/device.go
package model

import "time"

// ConnectionType represents how a heat pump is reached
type ConnectionType string

const (
	ConnectionTypeTCP ConnectionType = "tcp"
	ConnectionTypeRTU ConnectionType = "rtu"
)

// ConnectionConfig represents the Modbus connection parameters for one
// device. Durations are expressed in seconds in the YAML files.
type ConnectionConfig struct {
	Type   ConnectionType `yaml:"type" json:"type"`
	Host   string         `yaml:"host" json:"host,omitempty"`
	Port   int            `yaml:"port" json:"port,omitempty"`
	UnitID uint8          `yaml:"unit_id" json:"unit_id"`

	// RTU-specific parameters
	SerialPort string `yaml:"serial_port" json:"serial_port,omitempty"`
	BaudRate   int    `yaml:"baudrate" json:"baudrate,omitempty"`
	DataBits   int    `yaml:"bytesize" json:"bytesize,omitempty"`
	Parity     string `yaml:"parity" json:"parity,omitempty"`
	StopBits   int    `yaml:"stopbits" json:"stopbits,omitempty"`

	TimeoutSeconds    float64 `yaml:"timeout" json:"timeout"`
	Retries           int     `yaml:"retries" json:"retries"`
	RetryDelaySeconds float64 `yaml:"retry_delay" json:"retry_delay"`
}

// Timeout returns the connection timeout as a duration
func (c *ConnectionConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds * float64(time.Second))
}

// RetryDelay returns the base retry delay as a duration
func (c *ConnectionConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelaySeconds * float64(time.Second))
}

// DeviceDescriptor represents one configured heat pump
type DeviceDescriptor struct {
	ID       string           `yaml:"id" json:"id"`
	Name     string           `yaml:"name" json:"name"`
	Location string           `yaml:"location" json:"location"`
	Model    string           `yaml:"model" json:"model"`
	Enabled  bool             `yaml:"enabled" json:"enabled"`
	Modbus   ConnectionConfig `yaml:"modbus" json:"modbus"`
}

// Tags returns the time-series tag set identifying this device
func (d *DeviceDescriptor) Tags() map[string]string {
	return map[string]string{
		"heat_pump_id": d.ID,
		"name":         d.Name,
		"location":     d.Location,
		"model":        d.Model,
	}
}
