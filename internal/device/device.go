// internal/device/device.go
package device

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"heatpump-collector/internal/model"
	"heatpump-collector/internal/protocol"
	"heatpump-collector/internal/utils"
)

// Errors returned by metric reads
var (
	ErrUnknownMetric = errors.New("device: unknown metric")
	ErrUnavailable   = errors.New("device: metric unavailable")
)

// Device binds one configured heat pump to its register map and connection.
// ReadMetric and ReadAllMetrics return decoded, scaled values keyed by
// register name; registers reporting the no-data word are left out.
type Device struct {
	descriptor model.DeviceDescriptor
	registers  []model.RegisterDescriptor
	client     *protocol.Client
	logger     *utils.DeviceLogger

	byName map[string]*model.RegisterDescriptor
}

// New creates a device from its descriptor and the register map of its model
func New(descriptor model.DeviceDescriptor, registers []model.RegisterDescriptor, client *protocol.Client, logger *utils.DeviceLogger) *Device {
	byName := make(map[string]*model.RegisterDescriptor, len(registers))
	for i := range registers {
		byName[registers[i].Name] = &registers[i]
	}

	return &Device{
		descriptor: descriptor,
		registers:  registers,
		client:     client,
		logger:     logger,
		byName:     byName,
	}
}

// ID returns the device identifier
func (d *Device) ID() string {
	return d.descriptor.ID
}

// Descriptor returns the device configuration
func (d *Device) Descriptor() model.DeviceDescriptor {
	return d.descriptor
}

// Tags returns the time-series tags identifying this device
func (d *Device) Tags() map[string]string {
	return d.descriptor.Tags()
}

// Connect establishes the Modbus connection
func (d *Device) Connect() error {
	err := d.client.Connect()
	d.logger.LogConnection("connect", err)
	return err
}

// Disconnect closes the Modbus connection
func (d *Device) Disconnect() error {
	err := d.client.Disconnect()
	d.logger.LogConnection("disconnect", err)
	return err
}

// State returns the connection state of the underlying client
func (d *Device) State() protocol.ConnectionState {
	return d.client.State()
}

// ReadMetric reads and decodes a single register by name. A register whose
// first raw word is the no-data sentinel yields ErrUnavailable. Enum
// registers return their label string, bitmap registers return the raw
// value; everything else returns a scaled float64.
func (d *Device) ReadMetric(name string) (interface{}, error) {
	reg, ok := d.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q on device %s", ErrUnknownMetric, name, d.descriptor.ID)
	}
	return d.readRegister(reg)
}

func (d *Device) readRegister(reg *model.RegisterDescriptor) (interface{}, error) {
	count, err := reg.DataType.WordCount()
	if err != nil {
		return nil, err
	}

	words, err := d.client.ReadWords(reg.RegisterType, reg.Address, uint16(count))
	if err != nil {
		return nil, err
	}

	// the device reports 0x8000 in the first word when the register
	// carries no data
	if words[0] == model.SentinelUnavailable {
		return nil, fmt.Errorf("%w: %q", ErrUnavailable, reg.Name)
	}

	switch {
	case reg.IsEnum():
		return protocol.EnumLabel(words[0], reg.EnumValues), nil
	case reg.IsBitmap():
		return int64(words[0]), nil
	default:
		return protocol.DecodeScaled(reg.DataType, words, reg.Scale)
	}
}

// ReadAllMetrics reads every register in declaration order and returns one
// sample. Failed or unavailable registers are skipped; bitmap registers
// contribute their raw value plus one boolean per configured bit.
func (d *Device) ReadAllMetrics() *model.MetricSample {
	start := time.Now()
	sample := model.NewMetricSample(d.descriptor.ID)

	for i := range d.registers {
		reg := &d.registers[i]

		value, err := d.readRegister(reg)
		if err != nil {
			if !errors.Is(err, ErrUnavailable) {
				d.logger.Warn("Failed to read metric",
					zap.String("metric", reg.Name),
					zap.Error(err),
				)
			}
			continue
		}

		sample.Fields[reg.Name] = value

		if reg.IsBitmap() {
			raw := uint16(value.(int64))
			for bitName, set := range protocol.ExpandBitmap(raw, reg.BitmapFields) {
				sample.Fields[bitName] = set
			}
		}
	}

	d.logger.LogPoll(len(sample.Fields), len(d.registers), time.Since(start))
	return sample
}

// ValidateMetrics filters a field map down to fields this device can
// legitimately produce, with values of the right type. Unknown names,
// non-numeric values for numeric registers, non-string values for enums
// and non-boolean values for bitmap bits are dropped.
func (d *Device) ValidateMetrics(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))

	bitNames := make(map[string]struct{})
	for i := range d.registers {
		for _, name := range d.registers[i].BitmapFields {
			bitNames[name] = struct{}{}
		}
	}

	for name, value := range fields {
		if reg, ok := d.byName[name]; ok {
			switch {
			case reg.IsEnum():
				if _, ok := value.(string); ok {
					out[name] = value
				}
			case reg.IsBitmap():
				if isNumeric(value) {
					out[name] = value
				}
			default:
				if isNumeric(value) {
					out[name] = value
				}
			}
			continue
		}

		if _, ok := bitNames[name]; ok {
			if _, ok := value.(bool); ok {
				out[name] = value
			}
		}
	}
	return out
}

func isNumeric(value interface{}) bool {
	switch value.(type) {
	case float64, float32, int, int16, int32, int64, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}
