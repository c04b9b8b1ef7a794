// Package telemetry wires OpenTelemetry tracing and metrics for a single
// vectorctl invocation.
//
// Telemetry is off unless OTEL_ENABLED is set. When on, spans and metrics are
// exported over OTLP (grpc or http/protobuf) to the configured collector:
//
//	tel, err := telemetry.New(ctx, telemetry.FromAppConfig(cfg.OTEL, version))
//	if err != nil {
//	    return err
//	}
//	defer tel.Shutdown(context.Background())
//
//	ctx, span := tel.Tracer("vectorctl/pipeline").Start(ctx, "pipeline.Ingest")
//	defer span.End()
//
// Exporter construction failures leave the instance degraded rather than
// failing the command. Tests use NewTestTelemetry, which records spans and
// metrics in memory.
package telemetry
