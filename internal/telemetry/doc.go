// Package telemetry exports choosethere traces and metrics over OTLP.
//
// Services create spans with otel.Tracer and the HTTP layer records request
// metrics with otel.Meter. Both hit no-op providers until New installs real
// ones, so telemetry stays opt-in:
//
//	telemetry:
//	  enabled: true
//	  endpoint: "localhost:4317"
//	  protocol: grpc          # or http/protobuf
//	  sampling:
//	    rate: 0.5
//	  metrics:
//	    enabled: true
//	    export_interval: 15s
//
// Prometheus counters registered with promauto are served separately on
// /metrics and do not depend on this package.
//
// Tests use NewTestTelemetry and hand its TracerProvider to the code under
// test, then assert on recorded spans with AssertSpanExists.
package telemetry
