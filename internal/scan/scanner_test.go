// internal/scan/scanner_test.go
package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"heatpump-collector/internal/model"
	"heatpump-collector/internal/protocol"
)

// sparseTransport answers only for a few addresses
type sparseTransport struct {
	values map[uint16]uint16
}

func (s *sparseTransport) Connect() error { return nil }
func (s *sparseTransport) Close() error   { return nil }

func (s *sparseTransport) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	w, ok := s.values[address]
	if !ok {
		return nil, assert.AnError
	}
	return []byte{byte(w >> 8), byte(w)}, nil
}

func (s *sparseTransport) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	return nil, assert.AnError
}

func TestSweep(t *testing.T) {
	tr := &sparseTransport{values: map[uint16]uint16{
		1: 250,
		3: 0x8000, // no-data word, skipped
		5: 0xFF38, // -200 as int16
	}}
	client := protocol.NewClient(tr, &model.ConnectionConfig{Retries: 0}, zap.NewNop())
	s := NewScanner(client, zap.NewNop())

	results, err := s.Sweep(model.RegisterKindHolding, 0, 10)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, uint16(1), results[0].Address)
	assert.Equal(t, uint16(250), results[0].Raw)
	assert.Equal(t, uint16(5), results[1].Address)
	assert.Equal(t, int16(-200), results[1].Signed)
}

func TestSweepInvalidRange(t *testing.T) {
	client := protocol.NewClient(&sparseTransport{}, &model.ConnectionConfig{}, zap.NewNop())
	s := NewScanner(client, zap.NewNop())

	_, err := s.Sweep(model.RegisterKindHolding, 10, 5)
	require.Error(t, err)

	_, err = s.Sweep(model.RegisterKind("coil"), 0, 5)
	require.Error(t, err)
}
