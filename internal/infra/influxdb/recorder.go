package influxdb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"alexa-climate-bridge/config"
	"alexa-climate-bridge/internal/domain"
)

const (
	connectTimeout = 10 * time.Second

	measurementDirective  = "alexa_directive"
	measurementThermostat = "thermostat"
)

type pointWriter interface {
	WritePoint(p *write.Point)
}

// Recorder writes directive outcomes and thermostat snapshots as time series.
// Writes are batched and never block the caller.
type Recorder struct {
	client influxdb2.Client
	writer pointWriter
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	closed bool
}

func Connect(cfg config.InfluxDBConfig, logger *slog.Logger) (*Recorder, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 100
	}
	flushInterval := cfg.FlushInterval
	if flushInterval <= 0 {
		flushInterval = 10
	}

	client := influxdb2.NewClientWithOptions(
		cfg.URL,
		cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(uint(batchSize)).
			SetFlushInterval(uint(flushInterval)*1000),
	)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping failed: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	go func() {
		for err := range writeAPI.Errors() {
			logger.Warn("influxdb write failed", "error", err)
		}
	}()

	r := newRecorder(writeAPI, logger)
	r.client = client
	return r, nil
}

func newRecorder(w pointWriter, logger *slog.Logger) *Recorder {
	return &Recorder{writer: w, logger: logger, now: time.Now}
}

func (r *Recorder) ObserveDirective(namespace, name, outcome string, elapsed time.Duration) {
	r.write(directivePoint(namespace, name, outcome, elapsed, r.now()))
}

func (r *Recorder) ObserveThermostat(s *domain.EntityState) {
	r.write(thermostatPoint(s, r.now()))
}

func (r *Recorder) write(p *write.Point) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return
	}
	r.writer.WritePoint(p)
}

func directivePoint(namespace, name, outcome string, elapsed time.Duration, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementDirective,
		map[string]string{
			"namespace": namespace,
			"name":      name,
			"outcome":   outcome,
		},
		map[string]any{
			"duration_ms": float64(elapsed.Microseconds()) / 1000,
		},
		ts,
	)
}

func thermostatPoint(s *domain.EntityState, ts time.Time) *write.Point {
	return write.NewPoint(
		measurementThermostat,
		map[string]string{
			"entity_id": s.ID,
			"state":     s.State,
		},
		map[string]any{
			"setpoint":            s.Temperature,
			"current_temperature": s.CurrentTemperature,
			"off":                 s.Off,
		},
		ts,
	)
}

func (r *Recorder) HealthCheck(ctx context.Context) error {
	r.mu.RLock()
	closed := r.closed
	r.mu.RUnlock()
	if closed || r.client == nil {
		return ErrNotConnected
	}

	healthy, err := r.client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("influxdb health check: %w", err)
	}
	if !healthy {
		return fmt.Errorf("influxdb health check: server not healthy")
	}
	return nil
}

// Close flushes buffered points before closing the client.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true

	if r.client != nil {
		if f, ok := r.writer.(interface{ Flush() }); ok {
			f.Flush()
		}
		r.client.Close()
	}
	return nil
}
