// Package telemetry initializes OpenTelemetry tracing and metrics for courtside.
//
// New installs global tracer and meter providers exporting over OTLP (gRPC or
// HTTP). Components obtain instruments through otel.Tracer and otel.Meter, so
// a disabled or degraded Telemetry leaves them on no-op providers.
//
//	tel, err := telemetry.New(ctx, telemetry.FromSettings(cfg.Telemetry))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
// Tests use NewTestTelemetry, which records spans and metrics in memory.
package telemetry
