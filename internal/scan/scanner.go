// internal/scan/scanner.go
package scan

import (
	"fmt"

	"go.bug.st/serial"
	"go.uber.org/zap"

	"heatpump-collector/internal/model"
	"heatpump-collector/internal/protocol"
)

// Result represents one register that responded during a sweep
type Result struct {
	Kind    model.RegisterKind `json:"kind"`
	Address uint16             `json:"address"`
	Raw     uint16             `json:"raw"`
	Signed  int16              `json:"signed"`
}

// Scanner sweeps a device's register address space to help build a
// register map for an undocumented model
type Scanner struct {
	client *protocol.Client
	logger *zap.Logger
}

// NewScanner creates a scanner over an already configured client
func NewScanner(client *protocol.Client, logger *zap.Logger) *Scanner {
	return &Scanner{client: client, logger: logger}
}

// Sweep reads every address in [start, end] one register at a time and
// returns the ones that answered with data. Addresses that fail to read
// or report the no-data word are skipped.
func (s *Scanner) Sweep(kind model.RegisterKind, start, end uint16) ([]Result, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("invalid register kind %q", kind)
	}
	if end < start {
		return nil, fmt.Errorf("invalid address range %d-%d", start, end)
	}

	s.logger.Info("Sweeping registers",
		zap.String("kind", string(kind)),
		zap.Uint16("start", start),
		zap.Uint16("end", end),
	)

	var results []Result
	for addr := uint32(start); addr <= uint32(end); addr++ {
		words, err := s.client.ReadWords(kind, uint16(addr), 1)
		if err != nil {
			continue
		}
		if words[0] == model.SentinelUnavailable {
			continue
		}

		results = append(results, Result{
			Kind:    kind,
			Address: uint16(addr),
			Raw:     words[0],
			Signed:  int16(words[0]),
		})
	}

	s.logger.Info("Sweep complete",
		zap.String("kind", string(kind)),
		zap.Int("responding", len(results)),
	)
	return results, nil
}

// SweepAll sweeps both register spaces over the same address range
func (s *Scanner) SweepAll(start, end uint16) (map[model.RegisterKind][]Result, error) {
	out := make(map[model.RegisterKind][]Result, 2)
	for _, kind := range []model.RegisterKind{model.RegisterKindHolding, model.RegisterKindInput} {
		results, err := s.Sweep(kind, start, end)
		if err != nil {
			return nil, err
		}
		out[kind] = results
	}
	return out, nil
}

// ListSerialPorts enumerates the serial ports available on this host,
// for picking an RTU port
func ListSerialPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("list serial ports: %w", err)
	}
	return ports, nil
}
