// internal/service/status_service.go
package service

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"go.uber.org/zap"

	"heatpump-collector/internal/config"
	"heatpump-collector/internal/model"
)

// HeatpumpStatus represents one device with its most recent metrics
type HeatpumpStatus struct {
	model.DeviceDescriptor
	Online   bool                   `json:"online"`
	Metrics  map[string]interface{} `json:"metrics"`
	LastSeen *time.Time             `json:"last_seen,omitempty"`
}

// StatusService reads the latest collected metrics back out of InfluxDB
// for the dashboard
type StatusService struct {
	client      influxdb2.Client
	queryAPI    api.QueryAPI
	cfg         *config.Config
	configStore *ConfigService
	logger      *zap.Logger
}

// NewStatusService creates a status service sharing one InfluxDB client
func NewStatusService(cfg *config.Config, configStore *ConfigService, logger *zap.Logger) *StatusService {
	client := influxdb2.NewClient(cfg.InfluxDB.URL, cfg.InfluxDB.Token)
	return &StatusService{
		client:      client,
		queryAPI:    client.QueryAPI(cfg.InfluxDB.Org),
		cfg:         cfg,
		configStore: configStore,
		logger:      logger,
	}
}

// Close releases the InfluxDB client
func (s *StatusService) Close() {
	s.client.Close()
}

// Ping reports whether InfluxDB is reachable
func (s *StatusService) Ping(ctx context.Context) error {
	ok, err := s.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping influxdb: %w", err)
	}
	if !ok {
		return fmt.Errorf("influxdb is not ready")
	}
	return nil
}

// LatestMetrics returns the last recorded value of every field for one
// device, plus the timestamp of the newest record. A device with no data
// in the lookback window yields an empty map.
func (s *StatusService) LatestMetrics(ctx context.Context, deviceID string) (map[string]interface{}, *time.Time, error) {
	flux := fmt.Sprintf(`
		from(bucket: %q)
			|> range(start: -1h)
			|> filter(fn: (r) => r._measurement == %q)
			|> filter(fn: (r) => r.heat_pump_id == %q)
			|> last()`,
		s.cfg.InfluxDB.Bucket,
		s.cfg.Collector.Measurement,
		deviceID,
	)

	result, err := s.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, nil, fmt.Errorf("query latest metrics for %s: %w", deviceID, err)
	}
	defer result.Close()

	metrics := make(map[string]interface{})
	var lastSeen *time.Time
	for result.Next() {
		record := result.Record()
		metrics[record.Field()] = record.Value()
		t := record.Time()
		if lastSeen == nil || t.After(*lastSeen) {
			lastSeen = &t
		}
	}
	if result.Err() != nil {
		return nil, nil, fmt.Errorf("read query result for %s: %w", deviceID, result.Err())
	}
	return metrics, lastSeen, nil
}

// Overview returns every configured device with its latest metrics. A
// device counts as online when its newest record is fresher than two
// poll intervals.
func (s *StatusService) Overview(ctx context.Context) ([]HeatpumpStatus, error) {
	devices, err := s.configStore.List()
	if err != nil {
		return nil, err
	}

	staleAfter := 2 * s.cfg.Collector.PollInterval
	statuses := make([]HeatpumpStatus, 0, len(devices))
	for _, d := range devices {
		status := HeatpumpStatus{
			DeviceDescriptor: d,
			Metrics:          map[string]interface{}{},
		}

		metrics, lastSeen, err := s.LatestMetrics(ctx, d.ID)
		if err != nil {
			s.logger.Warn("Failed to query metrics",
				zap.String("heat_pump_id", d.ID),
				zap.Error(err),
			)
		} else {
			status.Metrics = metrics
			status.LastSeen = lastSeen
			status.Online = lastSeen != nil && time.Since(*lastSeen) < staleAfter
		}

		statuses = append(statuses, status)
	}
	return statuses, nil
}

// COP returns the coefficient of performance for a device. Computing it
// needs thermal output readings that no currently supported register map
// provides, so it always reports nil until such a metric exists.
func (s *StatusService) COP(ctx context.Context, deviceID string) (*float64, error) {
	if _, err := s.configStore.Get(deviceID); err != nil {
		return nil, err
	}
	return nil, nil
}
