package observability

import (
	"context"
	"time"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/kbukum/backstop/component"
)

// Settings selects which OTLP exporters the component brings up.
type Settings struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Insecure       bool
	Interval       time.Duration
	MetricsEnabled bool
	TracingEnabled bool
}

// Component manages the OpenTelemetry provider lifecycle. With both
// exporters disabled it is inert and instruments fall back to the global
// no-op providers.
type Component struct {
	settings Settings

	meterProvider *sdkmetric.MeterProvider
	traceProvider *sdktrace.TracerProvider
}

// NewComponent creates the observability component. Nothing is exported
// until Start.
func NewComponent(settings Settings) *Component {
	return &Component{settings: settings}
}

func (c *Component) Name() string { return "observability" }

func (c *Component) Start(ctx context.Context) error {
	if c.settings.MetricsEnabled {
		cfg := DefaultMeterConfig(c.settings.ServiceName)
		cfg.ServiceVersion = c.settings.ServiceVersion
		cfg.Endpoint = c.settings.Endpoint
		cfg.Insecure = c.settings.Insecure
		if c.settings.Interval > 0 {
			cfg.Interval = c.settings.Interval
		}

		mp, err := InitMeter(ctx, cfg)
		if err != nil {
			return err
		}
		c.meterProvider = mp
	}

	if c.settings.TracingEnabled {
		cfg := DefaultTracerConfig(c.settings.ServiceName)
		cfg.ServiceVersion = c.settings.ServiceVersion
		cfg.Endpoint = c.settings.Endpoint
		cfg.Insecure = c.settings.Insecure

		tp, err := InitTracer(ctx, cfg)
		if err != nil {
			return err
		}
		c.traceProvider = tp
	}

	return nil
}

func (c *Component) Stop(ctx context.Context) error {
	var firstErr error
	if c.traceProvider != nil {
		if err := c.traceProvider.Shutdown(ctx); err != nil {
			firstErr = err
		}
		c.traceProvider = nil
	}
	if c.meterProvider != nil {
		if err := c.meterProvider.Shutdown(ctx); err != nil && firstErr == nil {
			firstErr = err
		}
		c.meterProvider = nil
	}
	return firstErr
}

func (c *Component) Health(_ context.Context) component.Health {
	h := component.Health{Name: c.Name(), Status: component.StatusHealthy}
	if !c.settings.MetricsEnabled && !c.settings.TracingEnabled {
		h.Message = "exporters disabled"
	}
	return h
}
