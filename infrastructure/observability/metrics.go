package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"

	"wingo/config"
	"wingo/events"
)

// MetricsProvider manages OpenTelemetry metrics for the engine
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	roundsCreatedCounter      metric.Int64Counter
	roundsSettledCounter      metric.Int64Counter
	roundPayoutCounter        metric.Float64Counter
	roundStakeCounter         metric.Float64Counter
	settlementFailuresCounter metric.Int64Counter
	betsSettledCounter        metric.Int64Counter
	tickDurationHist          metric.Float64Histogram
	tickSkippedCounter        metric.Int64Counter
	tickErrorsCounter         metric.Int64Counter
	demoUsersGauge            metric.Int64Gauge
	eventsPublishedCounter    metric.Int64Counter
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(
			sdkmetric.NewPeriodicReader(
				exporter,
				sdkmetric.WithInterval(time.Duration(mp.config.OTelExportIntervalMillis)*time.Millisecond),
			),
		),
	)
	otel.SetMeterProvider(mp.meterProvider)

	if err := mp.createInstruments(mp.meterProvider.Meter("wingo-engine")); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.enabled = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// initializeWithMeter creates instruments on an existing meter
func (mp *MetricsProvider) initializeWithMeter(meter metric.Meter) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if err := mp.createInstruments(meter); err != nil {
		return err
	}
	mp.initialized = true
	mp.enabled = true
	return nil
}

func (mp *MetricsProvider) createInstruments(meter metric.Meter) error {
	var err error
	mp.meter = meter

	mp.roundsCreatedCounter, err = meter.Int64Counter(
		RoundsCreatedTotal,
		metric.WithDescription("Total number of rounds opened"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rounds created counter: %w", err)
	}

	mp.roundsSettledCounter, err = meter.Int64Counter(
		RoundsSettledTotal,
		metric.WithDescription("Total number of rounds settled"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create rounds settled counter: %w", err)
	}

	mp.roundPayoutCounter, err = meter.Float64Counter(
		RoundPayoutTotal,
		metric.WithDescription("Total amount paid out to winning bets"),
	)
	if err != nil {
		return fmt.Errorf("failed to create payout counter: %w", err)
	}

	mp.roundStakeCounter, err = meter.Float64Counter(
		RoundStakeTotal,
		metric.WithDescription("Total amount staked on settled rounds"),
	)
	if err != nil {
		return fmt.Errorf("failed to create stake counter: %w", err)
	}

	mp.settlementFailuresCounter, err = meter.Int64Counter(
		SettlementFailuresTotal,
		metric.WithDescription("Total number of rounds whose settlement failed"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create settlement failures counter: %w", err)
	}

	mp.betsSettledCounter, err = meter.Int64Counter(
		BetsSettledTotal,
		metric.WithDescription("Total number of bets settled"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create bets settled counter: %w", err)
	}

	mp.tickDurationHist, err = meter.Float64Histogram(
		TickDuration,
		metric.WithDescription("Duration of scheduler ticks in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create tick duration histogram: %w", err)
	}

	mp.tickSkippedCounter, err = meter.Int64Counter(
		TickSkippedTotal,
		metric.WithDescription("Ticks skipped because the previous run was still in flight"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create tick skipped counter: %w", err)
	}

	mp.tickErrorsCounter, err = meter.Int64Counter(
		TickErrorsTotal,
		metric.WithDescription("Ticks that returned an error or panicked"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create tick errors counter: %w", err)
	}

	mp.demoUsersGauge, err = meter.Int64Gauge(
		DemoUsersCached,
		metric.WithDescription("Number of demo users in the cache"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create demo users gauge: %w", err)
	}

	mp.eventsPublishedCounter, err = meter.Int64Counter(
		EventsPublishedTotal,
		metric.WithDescription("Total number of events published to NATS"),
		metric.WithUnit("1"),
	)
	if err != nil {
		return fmt.Errorf("failed to create events published counter: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordRoundCreated records a newly opened round
func (mp *MetricsProvider) RecordRoundCreated(interval string) {
	if !mp.isEnabled() {
		return
	}

	mp.roundsCreatedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelInterval, interval)),
	)
}

// RecordRoundSettled records a settled round with its totals
func (mp *MetricsProvider) RecordRoundSettled(event events.RoundResultEvent) {
	if !mp.isEnabled() {
		return
	}

	ctx := context.Background()
	attrs := metric.WithAttributes(attribute.String(LabelInterval, event.Interval))

	mp.roundsSettledCounter.Add(ctx, 1, attrs)
	mp.betsSettledCounter.Add(ctx, int64(event.BetCount), attrs)
	mp.roundStakeCounter.Add(ctx, event.TotalStake.InexactFloat64(), attrs)
	mp.roundPayoutCounter.Add(ctx, event.TotalPayout.InexactFloat64(), attrs)
}

// RecordSettlementFailures records rounds that failed to settle in a batch
func (mp *MetricsProvider) RecordSettlementFailures(count int) {
	if !mp.isEnabled() || count == 0 {
		return
	}

	mp.settlementFailuresCounter.Add(context.Background(), int64(count))
}

// RecordTick records one scheduler tick
func (mp *MetricsProvider) RecordTick(operation string, duration time.Duration, err error) {
	if !mp.isEnabled() {
		return
	}

	ctx := context.Background()
	status := StatusSuccess
	if err != nil {
		status = StatusFailure
		mp.tickErrorsCounter.Add(ctx, 1,
			metric.WithAttributes(attribute.String(LabelOperation, operation)),
		)
	}

	mp.tickDurationHist.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String(LabelOperation, operation),
			attribute.String(LabelStatus, status),
		),
	)
}

// RecordTickSkipped records a tick skipped by the guard
func (mp *MetricsProvider) RecordTickSkipped(operation string) {
	if !mp.isEnabled() {
		return
	}

	mp.tickSkippedCounter.Add(context.Background(), 1,
		metric.WithAttributes(attribute.String(LabelOperation, operation)),
	)
}

// RecordDemoUsers records the demo user cache size
func (mp *MetricsProvider) RecordDemoUsers(count int) {
	if !mp.isEnabled() {
		return
	}

	mp.demoUsersGauge.Record(context.Background(), int64(count))
}

// RecordEventPublished records an event published to NATS
func (mp *MetricsProvider) RecordEventPublished(eventType string, success bool) {
	if !mp.isEnabled() {
		return
	}

	status := StatusSuccess
	if !success {
		status = StatusFailure
	}
	mp.eventsPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelEventType, eventType),
			attribute.String(LabelStatus, status),
		),
	)
}

// SubscribeToEvents records round metrics from events delivered on bus
func (mp *MetricsProvider) SubscribeToEvents(bus *events.Bus) {
	bus.Subscribe(events.EventTypeRoundCreated, func(ctx context.Context, event events.Event) {
		if created, ok := event.(events.RoundCreatedEvent); ok {
			mp.RecordRoundCreated(created.Interval)
		}
	})
	bus.Subscribe(events.EventTypeRoundResult, func(ctx context.Context, event events.Event) {
		if result, ok := event.(events.RoundResultEvent); ok {
			mp.RecordRoundSettled(result)
		}
	})
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.enabled
}

// Global metrics provider instance
var (
	globalMetrics *MetricsProvider
	metricsOnce   sync.Once
)

// InitializeGlobalMetrics initializes the global metrics provider
func InitializeGlobalMetrics(ctx context.Context, cfg *config.Config) error {
	var err error
	metricsOnce.Do(func() {
		globalMetrics = NewMetricsProvider(cfg)
		err = globalMetrics.Initialize(ctx)
	})
	return err
}

// GetMetrics returns the global metrics provider, nil before initialization.
// All Record methods are safe to call on a nil provider.
func GetMetrics() *MetricsProvider {
	return globalMetrics
}

// ShutdownGlobalMetrics shuts down the global metrics provider
func ShutdownGlobalMetrics(ctx context.Context) error {
	if globalMetrics != nil {
		return globalMetrics.Shutdown(ctx)
	}
	return nil
}
