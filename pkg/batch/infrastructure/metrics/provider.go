package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/fx"

	config "github.com/tigerroll/paytest/pkg/batch/core/config"
	"github.com/tigerroll/paytest/pkg/batch/support/util/exception"
	logger "github.com/tigerroll/paytest/pkg/batch/support/util/logger"
)

// NewTracerProvider builds the OpenTelemetry tracer provider.
// Without tracing.otlp_endpoint it returns a no-op provider; otherwise spans are batched
// to an OTLP collector over tracing.protocol and the provider is flushed when the application stops.
func NewTracerProvider(lc fx.Lifecycle, cfg *config.TracingConfig) (trace.TracerProvider, error) {
	if cfg.OTLPEndpoint == "" {
		logger.Debugf("Tracing: no OTLP endpoint configured, spans are not exported.")
		return tracenoop.NewTracerProvider(), nil
	}

	exporter, err := newSpanExporter(context.Background(), cfg)
	if err != nil {
		return nil, exception.NewBatchError("metrics", exception.KindConfig, "failed to create OTLP trace exporter", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(newResource(cfg.ServiceName)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	logger.Infof("Tracing: exporting spans to %s over %s.", cfg.OTLPEndpoint, cfg.Protocol)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return tp.Shutdown(ctx)
		},
	})
	return tp, nil
}

func newSpanExporter(ctx context.Context, cfg *config.TracingConfig) (sdktrace.SpanExporter, error) {
	if cfg.Protocol == config.ExportProtocolGRPC {
		opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.Insecure {
			opts = append(opts, otlptracegrpc.WithInsecure())
		}
		return otlptracegrpc.New(ctx, opts...)
	}
	opts := []otlptracehttp.Option{otlptracehttp.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracehttp.WithInsecure())
	}
	return otlptracehttp.New(ctx, opts...)
}

// NewMeterProvider builds the OpenTelemetry meter provider.
// Without metrics.otlp_endpoint it returns a no-op provider; otherwise a periodic reader
// pushes to the collector every metrics.export_interval and is flushed when the application stops.
func NewMeterProvider(lc fx.Lifecycle, cfg *config.MetricsConfig, tracing *config.TracingConfig) (metric.MeterProvider, error) {
	if cfg.OTLPEndpoint == "" {
		logger.Debugf("Metrics: no OTLP endpoint configured, only Prometheus is recorded.")
		return metricnoop.NewMeterProvider(), nil
	}

	exporter, err := newMetricExporter(context.Background(), cfg)
	if err != nil {
		return nil, exception.NewBatchError("metrics", exception.KindConfig, "failed to create OTLP metric exporter", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(cfg.ExportInterval))),
		sdkmetric.WithResource(newResource(tracing.ServiceName)),
	)
	otel.SetMeterProvider(mp)
	logger.Infof("Metrics: exporting to %s over %s every %s.", cfg.OTLPEndpoint, cfg.Protocol, cfg.ExportInterval)

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return mp.Shutdown(ctx)
		},
	})
	return mp, nil
}

func newMetricExporter(ctx context.Context, cfg *config.MetricsConfig) (sdkmetric.Exporter, error) {
	if cfg.Protocol == config.ExportProtocolGRPC {
		opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.OTLPEndpoint)}
		if cfg.Insecure {
			opts = append(opts, otlpmetricgrpc.WithInsecure())
		}
		return otlpmetricgrpc.New(ctx, opts...)
	}
	opts := []otlpmetrichttp.Option{otlpmetrichttp.WithEndpoint(cfg.OTLPEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}
	return otlpmetrichttp.New(ctx, opts...)
}

func newResource(serviceName string) *resource.Resource {
	return resource.NewSchemaless(attribute.String("service.name", serviceName))
}

// RegisterMetricsEndpoint serves the Prometheus registry on metrics.listen_addr while the application runs.
func RegisterMetricsEndpoint(lc fx.Lifecycle, cfg *config.MetricsConfig, recorder *PrometheusRecorder) {
	if cfg.ListenAddr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(recorder.GetRegistry(), promhttp.HandlerOpts{}))
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", srv.Addr)
			if err != nil {
				return exception.NewBatchErrorf("metrics", exception.KindConfig, "failed to listen on %s", srv.Addr, err)
			}
			logger.Infof("Metrics: serving /metrics on %s.", ln.Addr())
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					logger.Errorf("Metrics: endpoint stopped: %v", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
