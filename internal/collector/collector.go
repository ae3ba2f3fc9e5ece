// internal/collector/collector.go
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"go.uber.org/zap"

	"heatpump-collector/internal/config"
	"heatpump-collector/internal/device"
	"heatpump-collector/internal/writer"
)

// ErrNoDevices is returned when no configured device could be connected
// at startup
var ErrNoDevices = errors.New("collector: no devices available")

// State represents the collector lifecycle
type State int

const (
	StateIdle State = iota
	StateStarting
	StatePolling
	StateShuttingDown
	StateStopped
)

// String returns a human-readable representation of the state
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StatePolling:
		return "polling"
	case StateShuttingDown:
		return "shutting_down"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Collector drives the poll loop: it connects all devices, polls them
// concurrently every interval, converts samples to points and hands them
// to the batch writer. Shutdown interrupts only the interval wait, never
// a poll in flight.
type Collector struct {
	cfg     *config.CollectorConfig
	devices []*device.Device
	writer  *writer.BatchWriter
	logger  *zap.Logger

	mu    sync.Mutex
	state State

	shutdown     sync.Once
	shutdownChan chan struct{}
}

// New creates a collector over the given devices and writer
func New(cfg *config.CollectorConfig, devices []*device.Device, w *writer.BatchWriter, logger *zap.Logger) *Collector {
	return &Collector{
		cfg:          cfg,
		devices:      devices,
		writer:       w,
		logger:       logger,
		state:        StateIdle,
		shutdownChan: make(chan struct{}),
	}
}

// State returns the current lifecycle state
func (c *Collector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Collector) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
	c.logger.Info("Collector state changed", zap.String("state", s.String()))
}

// Run starts the writer, connects all devices and polls until the context
// is cancelled or Shutdown is called. It returns ErrNoDevices when not a
// single device connection succeeds.
func (c *Collector) Run(ctx context.Context) error {
	c.setState(StateStarting)

	if err := c.writer.Start(ctx); err != nil {
		c.setState(StateStopped)
		return fmt.Errorf("start batch writer: %w", err)
	}

	connected := c.connectAll()
	if connected == 0 {
		c.stopAll(ctx)
		c.setState(StateStopped)
		return fmt.Errorf("%w: 0 of %d devices connected", ErrNoDevices, len(c.devices))
	}
	c.logger.Info("Devices connected",
		zap.Int("connected", connected),
		zap.Int("configured", len(c.devices)),
	)

	c.setState(StatePolling)
	ticker := time.NewTicker(c.cfg.PollInterval)
	defer ticker.Stop()

	// first cycle runs immediately
	c.pollAll()

	for {
		select {
		case <-ctx.Done():
			c.shutdownNow(ctx)
			return nil
		case <-c.shutdownChan:
			c.shutdownNow(ctx)
			return nil
		case <-ticker.C:
			c.pollAll()
		}
	}
}

// Shutdown requests a graceful stop. Safe to call from any goroutine and
// more than once; only the first call has effect.
func (c *Collector) Shutdown() {
	c.shutdown.Do(func() {
		close(c.shutdownChan)
	})
}

// connectAll connects every device concurrently and returns how many
// connections succeeded. A failed device stays in the rotation: its reads
// will keep retrying on later cycles.
func (c *Collector) connectAll() int {
	var wg sync.WaitGroup
	var mu sync.Mutex
	connected := 0

	for _, d := range c.devices {
		wg.Add(1)
		go func(d *device.Device) {
			defer wg.Done()
			if err := d.Connect(); err != nil {
				return
			}
			mu.Lock()
			connected++
			mu.Unlock()
		}(d)
	}
	wg.Wait()
	return connected
}

// pollAll polls every device concurrently and appends the resulting
// points. The cycle completes for all devices before control returns.
func (c *Collector) pollAll() {
	start := time.Now()

	var wg sync.WaitGroup
	for _, d := range c.devices {
		wg.Add(1)
		go func(d *device.Device) {
			defer wg.Done()
			c.pollDevice(d)
		}(d)
	}
	wg.Wait()

	c.logger.Debug("Poll cycle complete",
		zap.Int("devices", len(c.devices)),
		zap.Duration("duration", time.Since(start)),
	)
}

// pollDevice reads one device, validates the sample and appends one point
// when any metric survived
func (c *Collector) pollDevice(d *device.Device) {
	sample := d.ReadAllMetrics()
	if sample.Empty() {
		return
	}

	fields := d.ValidateMetrics(sample.Fields)
	if len(fields) == 0 {
		c.logger.Warn("No valid metrics in sample",
			zap.String("heat_pump_id", d.ID()),
			zap.Int("read", len(sample.Fields)),
		)
		return
	}

	point := influxdb2.NewPoint(
		c.cfg.Measurement,
		d.Tags(),
		fields,
		sample.Timestamp,
	)
	c.writer.Append(point)
}

// shutdownNow disconnects devices and stops the writer
func (c *Collector) shutdownNow(ctx context.Context) {
	c.setState(StateShuttingDown)
	c.stopAll(ctx)
	c.setState(StateStopped)
}

// stopAll stops the writer (final flush + sink disconnect) before the
// device connections come down, so the last cycle's points are not lost.
func (c *Collector) stopAll(ctx context.Context) {
	c.writer.Stop(ctx)

	var wg sync.WaitGroup
	for _, d := range c.devices {
		wg.Add(1)
		go func(d *device.Device) {
			defer wg.Done()
			if err := d.Disconnect(); err != nil {
				c.logger.Warn("Failed to disconnect device",
					zap.String("heat_pump_id", d.ID()),
					zap.Error(err),
				)
			}
		}(d)
	}
	wg.Wait()
}
