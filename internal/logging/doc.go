// Package logging provides structured logging for vectorctl.
//
// Logger wraps Zap with:
//   - a custom Trace level (-2, below Debug)
//   - stderr output plus an optional OpenTelemetry log bridge
//   - trace_id/span_id injection from the active span
//   - secret redaction by field name and value pattern
//
// Usage:
//
//	cfg, err := logging.FromAppConfig(appCfg.Log, false)
//	logger, err := logging.NewLogger(cfg, nil)
//	defer logger.Sync()
//	logger.Info(ctx, "index created", zap.String("index", name))
package logging
