package observability

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/netguard/component"
	"github.com/kbukum/netguard/logger"
)

// Provider owns the OTLP exporters and implements component.Component. It
// installs the global tracer and meter providers on Start and drains them on
// Stop.
type Provider struct {
	cfg Config
	log *logger.Logger
	tp  *sdktrace.TracerProvider
	mp  *sdkmetric.MeterProvider
}

var _ component.Component = (*Provider)(nil)

// NewProvider creates a provider for the given configuration.
func NewProvider(cfg Config) *Provider {
	cfg.ApplyDefaults()
	return &Provider{
		cfg: cfg,
		log: logger.WithComponent("observability"),
	}
}

// Name returns the component name.
func (p *Provider) Name() string { return "observability" }

// Start initializes the tracer and meter providers. Disabled telemetry is a
// no-op and the global providers stay no-op.
func (p *Provider) Start(ctx context.Context) error {
	if !p.cfg.Enabled {
		p.log.Info("telemetry export disabled")
		return nil
	}

	res, err := newResource(p.cfg)
	if err != nil {
		return fmt.Errorf("observability: resource: %w", err)
	}

	tp, err := p.initTracer(ctx, res)
	if err != nil {
		return err
	}
	p.tp = tp

	mp, err := p.initMeter(ctx, res)
	if err != nil {
		_ = tp.Shutdown(ctx)
		p.tp = nil
		return err
	}
	p.mp = mp

	p.log.Info("telemetry initialized", logger.Fields(
		"endpoint", p.cfg.Endpoint,
		"sample_rate", p.cfg.SampleRate,
		"interval", p.cfg.Interval.String(),
	))
	return nil
}

// Stop flushes and shuts down both providers. Safe to call more than once.
func (p *Provider) Stop(ctx context.Context) error {
	var firstErr error
	if p.tp != nil {
		if err := p.tp.Shutdown(ctx); err != nil {
			firstErr = err
		}
		p.tp = nil
	}
	if p.mp != nil {
		if err := p.mp.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		p.mp = nil
	}
	return firstErr
}

// Health reports healthy when running or deliberately disabled.
func (p *Provider) Health(ctx context.Context) component.Health {
	if !p.cfg.Enabled {
		return component.Health{
			Name:    p.Name(),
			Status:  component.StatusHealthy,
			Message: "disabled",
		}
	}
	if p.tp == nil || p.mp == nil {
		return component.Health{
			Name:    p.Name(),
			Status:  component.StatusUnhealthy,
			Message: "not started",
		}
	}
	return component.Health{Name: p.Name(), Status: component.StatusHealthy}
}

func (p *Provider) initTracer(ctx context.Context, res *resource.Resource) (*sdktrace.TracerProvider, error) {
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(p.cfg.Endpoint)}
	if p.cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}

	exporter, err := otlptracehttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("observability: trace exporter: %w", err)
	}

	var sampler sdktrace.Sampler
	switch {
	case p.cfg.SampleRate >= 1.0:
		sampler = sdktrace.AlwaysSample()
	case p.cfg.SampleRate <= 0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(p.cfg.SampleRate)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}

func (p *Provider) initMeter(ctx context.Context, res *resource.Resource) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(p.cfg.Endpoint)}
	if p.cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("observability: metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter,
			sdkmetric.WithInterval(p.cfg.Interval))),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// newResource builds the OpenTelemetry resource with service metadata.
func newResource(cfg Config) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(cfg.ServiceName),
			semconv.ServiceVersion(cfg.ServiceVersion),
			attribute.String("environment", cfg.Environment),
		),
	)
}

// Meter returns a named meter from the global provider.
func Meter(name string) metric.Meter {
	return otel.Meter(name)
}

// Tracer returns a named tracer from the global provider.
func Tracer(name string) trace.Tracer {
	return otel.Tracer(name)
}
