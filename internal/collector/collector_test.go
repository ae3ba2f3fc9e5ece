// internal/collector/collector_test.go
package collector

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"heatpump-collector/internal/config"
	"heatpump-collector/internal/device"
	"heatpump-collector/internal/model"
	"heatpump-collector/internal/protocol"
	"heatpump-collector/internal/utils"
	"heatpump-collector/internal/writer"
)

type captureSink struct {
	mu     sync.Mutex
	points []*write.Point
	closed bool
}

func (s *captureSink) Connect(ctx context.Context) error { return nil }

func (s *captureSink) WriteBatch(ctx context.Context, points []*write.Point) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.points = append(s.points, points...)
	return nil
}

func (s *captureSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

func (s *captureSink) pointCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.points)
}

// stubTransport serves a fixed register value, optionally refusing to
// connect
type stubTransport struct {
	connectErr error
}

func (s *stubTransport) Connect() error { return s.connectErr }
func (s *stubTransport) Close() error   { return nil }

func (s *stubTransport) ReadHoldingRegisters(address, quantity uint16) ([]byte, error) {
	out := make([]byte, quantity*2)
	out[1] = 0x2A // 42 in the low byte of the first word
	return out, nil
}

func (s *stubTransport) ReadInputRegisters(address, quantity uint16) ([]byte, error) {
	return s.ReadHoldingRegisters(address, quantity)
}

func testDevice(id string, tr protocol.Transport) *device.Device {
	desc := model.DeviceDescriptor{
		ID:      id,
		Name:    id,
		Model:   "test-model",
		Enabled: true,
		Modbus:  model.ConnectionConfig{Retries: 0},
	}
	regs := []model.RegisterDescriptor{
		{Name: "outdoor_temp", Address: 1, RegisterType: model.RegisterKindHolding, DataType: model.DataTypeInt16, Scale: 1},
	}
	client := protocol.NewClient(tr, &desc.Modbus, zap.NewNop())
	logger := utils.NewDeviceLogger(zap.NewNop(), desc.ID, desc.Name, desc.Model)
	return device.New(desc, regs, client, logger)
}

func testCollector(devices []*device.Device, sink writer.Sink) *Collector {
	cfg := &config.CollectorConfig{
		PollInterval:  20 * time.Millisecond,
		BatchSize:     1,
		BatchInterval: time.Hour,
		Measurement:   "heatpump_metrics",
	}
	w := writer.NewBatchWriter(sink, cfg.BatchSize, cfg.BatchInterval, zap.NewNop())
	return New(cfg, devices, w, zap.NewNop())
}

func TestRunFailsWithoutAnyDevice(t *testing.T) {
	sink := &captureSink{}
	devices := []*device.Device{
		testDevice("hp-1", &stubTransport{connectErr: errors.New("refused")}),
		testDevice("hp-2", &stubTransport{connectErr: errors.New("refused")}),
	}
	c := testCollector(devices, sink)

	err := c.Run(context.Background())
	require.ErrorIs(t, err, ErrNoDevices)
	assert.Equal(t, StateStopped, c.State())
	assert.True(t, sink.closed)
}

func TestRunPollsAndStops(t *testing.T) {
	sink := &captureSink{}
	devices := []*device.Device{
		testDevice("hp-1", &stubTransport{}),
		testDevice("hp-2", &stubTransport{}),
	}
	c := testCollector(devices, sink)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	// batch size 1: every sample flushes immediately
	assert.Eventually(t, func() bool {
		return sink.pointCount() >= 2
	}, time.Second, 5*time.Millisecond)

	c.Shutdown()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}

	assert.Equal(t, StateStopped, c.State())
	assert.True(t, sink.closed)

	// second shutdown is a no-op
	c.Shutdown()
}

func TestRunStopsOnContextCancel(t *testing.T) {
	sink := &captureSink{}
	devices := []*device.Device{testDevice("hp-1", &stubTransport{})}
	c := testCollector(devices, sink)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	assert.Eventually(t, func() bool {
		return c.State() == StatePolling
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("collector did not stop")
	}
	assert.Equal(t, StateStopped, c.State())
}

// lifecycleRecorder collects shutdown events across sink and transports
type lifecycleRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *lifecycleRecorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *lifecycleRecorder) index(event string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, e := range r.events {
		if e == event {
			return i
		}
	}
	return -1
}

type recordingSink struct {
	captureSink
	recorder *lifecycleRecorder
}

func (s *recordingSink) WriteBatch(ctx context.Context, points []*write.Point) error {
	s.recorder.add("sink-flush")
	return s.captureSink.WriteBatch(ctx, points)
}

func (s *recordingSink) Close() {
	s.recorder.add("sink-close")
	s.captureSink.Close()
}

type recordingTransport struct {
	stubTransport
	recorder *lifecycleRecorder
}

func (tr *recordingTransport) Close() error {
	tr.recorder.add("device-disconnect")
	return tr.stubTransport.Close()
}

func TestShutdownStopsWriterBeforeDevices(t *testing.T) {
	recorder := &lifecycleRecorder{}
	sink := &recordingSink{recorder: recorder}
	devices := []*device.Device{
		testDevice("hp-1", &recordingTransport{recorder: recorder}),
		testDevice("hp-2", &recordingTransport{recorder: recorder}),
	}

	// large batch so the last cycle's point is only delivered by the
	// final flush inside Stop
	cfg := &config.CollectorConfig{
		PollInterval:  20 * time.Millisecond,
		BatchSize:     100,
		BatchInterval: time.Hour,
		Measurement:   "heatpump_metrics",
	}
	w := writer.NewBatchWriter(sink, cfg.BatchSize, cfg.BatchInterval, zap.NewNop())
	c := New(cfg, devices, w, zap.NewNop())

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	assert.Eventually(t, func() bool {
		return w.BufferedPoints() >= 2
	}, time.Second, 5*time.Millisecond)

	c.Shutdown()
	require.NoError(t, <-done)

	// writer stop (flush then sink close) completes before any device
	// connection comes down
	flush := recorder.index("sink-flush")
	closeIdx := recorder.index("sink-close")
	disconnect := recorder.index("device-disconnect")
	require.GreaterOrEqual(t, flush, 0)
	require.GreaterOrEqual(t, closeIdx, 0)
	require.GreaterOrEqual(t, disconnect, 0)
	assert.Less(t, flush, closeIdx)
	assert.Less(t, closeIdx, disconnect)

	assert.Equal(t, 2, sink.pointCount())
}

func TestPollWritesValidatedFields(t *testing.T) {
	sink := &captureSink{}

	desc := model.DeviceDescriptor{
		ID:      "hp-1",
		Name:    "hp-1",
		Model:   "test-model",
		Enabled: true,
		Modbus:  model.ConnectionConfig{Retries: 0},
	}
	// stubTransport answers 42 for every first word
	regs := []model.RegisterDescriptor{
		{Name: "outdoor_temp", Address: 1, RegisterType: model.RegisterKindHolding, DataType: model.DataTypeInt16, Scale: 1},
		{Name: "operating_mode", Address: 2, RegisterType: model.RegisterKindInput, DataType: model.DataTypeUint16, Scale: 1, Unit: model.UnitEnum,
			EnumValues: map[int]string{42: "Heating"}},
		{Name: "status_flags", Address: 3, RegisterType: model.RegisterKindHolding, DataType: model.DataTypeUint16, Scale: 1, Unit: model.UnitBitmap,
			BitmapFields: map[int]string{1: "pump_running", 2: "defrost_active"}},
	}
	client := protocol.NewClient(&stubTransport{}, &desc.Modbus, zap.NewNop())
	logger := utils.NewDeviceLogger(zap.NewNop(), desc.ID, desc.Name, desc.Model)
	devices := []*device.Device{device.New(desc, regs, client, logger)}

	c := testCollector(devices, sink)
	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	assert.Eventually(t, func() bool {
		return sink.pointCount() >= 1
	}, time.Second, 5*time.Millisecond)

	c.Shutdown()
	require.NoError(t, <-done)

	sink.mu.Lock()
	point := sink.points[0]
	sink.mu.Unlock()

	fields := make(map[string]interface{})
	for _, f := range point.FieldList() {
		fields[f.Key] = f.Value
	}

	// 42 = 0b101010: bit 1 set, bit 2 clear; enum label resolves, and the
	// numeric and raw-bitmap fields come through typed
	assert.Equal(t, float64(42), fields["outdoor_temp"])
	assert.Equal(t, "Heating", fields["operating_mode"])
	assert.Equal(t, int64(42), fields["status_flags"])
	assert.Equal(t, true, fields["pump_running"])
	assert.Equal(t, false, fields["defrost_active"])
}

func TestRunKeepsPartiallyConnectedFleet(t *testing.T) {
	sink := &captureSink{}
	devices := []*device.Device{
		testDevice("hp-ok", &stubTransport{}),
		testDevice("hp-down", &stubTransport{connectErr: errors.New("refused")}),
	}
	c := testCollector(devices, sink)

	done := make(chan error, 1)
	go func() { done <- c.Run(context.Background()) }()

	assert.Eventually(t, func() bool {
		return sink.pointCount() >= 1
	}, time.Second, 5*time.Millisecond)

	c.Shutdown()
	require.NoError(t, <-done)
}
