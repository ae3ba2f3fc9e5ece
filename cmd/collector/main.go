// cmd/collector/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"heatpump-collector/internal/collector"
	"heatpump-collector/internal/config"
	"heatpump-collector/internal/device"
	"heatpump-collector/internal/protocol"
	"heatpump-collector/internal/utils"
	"heatpump-collector/internal/writer"
)

// Application represents the collector daemon
type Application struct {
	config *config.Config
	logger *zap.Logger

	devices   []*device.Device
	writer    *writer.BatchWriter
	collector *collector.Collector

	configDir string
}

func main() {
	configDir := flag.String("config", "configs", "configuration directory")
	flag.Parse()

	app, err := NewApplication(*configDir)
	if err != nil {
		fmt.Printf("Failed to initialize application: %v\n", err)
		os.Exit(1)
	}

	if err := app.Run(); err != nil {
		app.logger.Fatal("Collector failed", zap.Error(err))
	}
}

// NewApplication creates a new application instance
func NewApplication(configDir string) (*Application, error) {
	cfg, err := config.Load(configDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(&cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	serviceLogger := utils.NewServiceLogger(logger, "heatpump-collector")
	serviceLogger.LogServiceStart(cfg.App.Version)

	app := &Application{
		config:    cfg,
		logger:    logger,
		configDir: configDir,
	}

	if err := app.initializeDevices(); err != nil {
		return nil, fmt.Errorf("failed to initialize devices: %w", err)
	}

	app.initializeCollector()

	return app, nil
}

// initializeDevices builds one device per enabled heat pump in the
// configuration
func (app *Application) initializeDevices() error {
	maps, err := config.LoadRegisterMaps(app.configDir)
	if err != nil {
		return err
	}

	descriptors, err := config.LoadDevices(app.configDir, maps)
	if err != nil {
		return err
	}

	for _, desc := range descriptors {
		if !desc.Enabled {
			app.logger.Info("Skipping disabled heat pump",
				zap.String("heat_pump_id", desc.ID),
			)
			continue
		}

		transport, err := protocol.NewTransport(&desc.Modbus)
		if err != nil {
			return fmt.Errorf("heat pump %s: %w", desc.ID, err)
		}

		deviceLogger := utils.NewDeviceLogger(app.logger, desc.ID, desc.Name, desc.Model)
		client := protocol.NewClient(transport, &desc.Modbus, deviceLogger.Logger)

		app.devices = append(app.devices, device.New(desc, maps[desc.Model], client, deviceLogger))
	}

	if len(app.devices) == 0 {
		return fmt.Errorf("no enabled heat pumps configured")
	}

	app.logger.Info("Devices initialized successfully",
		zap.Int("count", len(app.devices)),
	)
	return nil
}

// initializeCollector wires the writer and the poll loop
func (app *Application) initializeCollector() {
	sink := writer.NewInfluxSink(&app.config.InfluxDB)
	app.writer = writer.NewBatchWriter(
		sink,
		app.config.Collector.BatchSize,
		app.config.Collector.BatchInterval,
		app.logger,
	)

	app.collector = collector.New(&app.config.Collector, app.devices, app.writer, app.logger)
}

// Run polls until a shutdown signal arrives
func (app *Application) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := app.collector.Run(ctx)

	serviceLogger := utils.NewServiceLogger(app.logger, "heatpump-collector")
	serviceLogger.LogServiceStop("collector finished")

	if cerr := utils.CloseLogger(app.logger); cerr != nil {
		fmt.Printf("Logger close error: %v\n", cerr)
	}
	return err
}
