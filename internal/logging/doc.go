// Package logging provides structured, context-aware logging for courtside.
//
// Logger wraps zap and appends correlation fields taken from the context:
// the active OpenTelemetry trace and span ids, the HTTP request id and the
// ingestion operation id. Output goes to stdout as JSON or console text and,
// when a LoggerProvider is supplied, to OpenTelemetry through otelzap.
//
//	cfg, err := logging.FromSettings(appCfg.Logging)
//	logger, err := logging.NewLogger(cfg, nil)
//	defer logger.Sync()
//
//	logger.Info(ctx, "knowledge base ready", zap.Int("records", n))
//
// Tokens that reach a log line are redacted by field name and by value
// pattern (HuggingFace and OpenAI key formats).
package logging
