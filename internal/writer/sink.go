// internal/writer/sink.go
package writer

import (
	"context"
	"fmt"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"heatpump-collector/internal/config"
)

// Sink is the time-series backend a BatchWriter flushes to
type Sink interface {
	Connect(ctx context.Context) error
	WriteBatch(ctx context.Context, points []*write.Point) error
	Close()
}

// InfluxSink writes point batches to InfluxDB 2.x using the blocking
// write API
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInfluxSink creates a sink from the InfluxDB configuration
func NewInfluxSink(cfg *config.InfluxConfig) *InfluxSink {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}
}

// Connect verifies the server is reachable
func (s *InfluxSink) Connect(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping influxdb: %w", err)
	}
	if !ok {
		return fmt.Errorf("influxdb is not ready")
	}
	return nil
}

// WriteBatch writes all points in one request
func (s *InfluxSink) WriteBatch(ctx context.Context, points []*write.Point) error {
	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write points: %w", err)
	}
	return nil
}

// Close releases the underlying HTTP client
func (s *InfluxSink) Close() {
	s.client.Close()
}
