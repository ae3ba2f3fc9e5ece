// internal/protocol/transport.go
package protocol

import (
	"fmt"

	"github.com/goburrow/modbus"

	"heatpump-collector/internal/model"
)

// Transport is the raw Modbus request/response boundary: framed reads of
// the two register spaces plus connection lifecycle. Implementations are
// not safe for concurrent use; Client serializes access.
type Transport interface {
	Connect() error
	Close() error
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
	ReadInputRegisters(address, quantity uint16) ([]byte, error)
}

// clientHandler is the part of the goburrow handler types the transport
// needs for lifecycle management.
type clientHandler interface {
	Connect() error
	Close() error
}

// modbusTransport adapts a goburrow handler/client pair to Transport
type modbusTransport struct {
	handler clientHandler
	client  modbus.Client
}

func (t *modbusTransport) Connect() error {
	return t.handler.Connect()
}

func (t *modbusTransport) Close() error {
	return t.handler.Close()
}

func (t *modbusTransport) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	return t.client.ReadHoldingRegisters(address, quantity)
}

func (t *modbusTransport) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	return t.client.ReadInputRegisters(address, quantity)
}

// NewTransport builds the Modbus transport described by the connection
// config. The returned transport is disconnected; Client.Connect
// establishes the link.
func NewTransport(cfg *model.ConnectionConfig) (Transport, error) {
	switch cfg.Type {
	case model.ConnectionTypeTCP:
		handler := modbus.NewTCPClientHandler(fmt.Sprintf("%s:%d", cfg.Host, cfg.Port))
		handler.Timeout = cfg.Timeout()
		handler.SlaveId = cfg.UnitID
		return &modbusTransport{
			handler: handler,
			client:  modbus.NewClient(handler),
		}, nil

	case model.ConnectionTypeRTU:
		handler := modbus.NewRTUClientHandler(cfg.SerialPort)
		handler.BaudRate = cfg.BaudRate
		handler.DataBits = cfg.DataBits
		handler.Parity = cfg.Parity
		handler.StopBits = cfg.StopBits
		handler.SlaveId = cfg.UnitID
		handler.Timeout = cfg.Timeout()
		return &modbusTransport{
			handler: handler,
			client:  modbus.NewClient(handler),
		}, nil

	default:
		return nil, fmt.Errorf("invalid connection type %q", cfg.Type)
	}
}

// WordsFromBytes converts a big-endian register payload into 16-bit words
func WordsFromBytes(data []byte) ([]uint16, error) {
	if len(data)%2 != 0 {
		return nil, fmt.Errorf("%w: odd payload length %d", ErrDecode, len(data))
	}
	words := make([]uint16, len(data)/2)
	for i := range words {
		words[i] = uint16(data[2*i])<<8 | uint16(data[2*i+1])
	}
	return words, nil
}
