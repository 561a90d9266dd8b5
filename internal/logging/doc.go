// Package logging provides structured logging for choosethere.
//
// # Overview
//
// The package wraps Zap with:
//   - A custom Trace level (-2, below Debug)
//   - Automatic context field injection (trace_id, draw session, request id)
//   - Redaction of credentials and user coordinates
//   - Level-aware sampling (errors never sampled)
//
// # Usage
//
//	cfg := logging.NewDefaultConfig()
//	logger, err := logging.NewLogger(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer logger.Sync()
//
//	ctx = logging.WithSessionID(ctx, sessionID)
//	logger.Info(ctx, "draw picked", zap.String("restaurant_id", id))
//
// # Redaction
//
// Field names listed in RedactionConfig.Fields (credentials plus "lat",
// "lng" and "user_location") are replaced with [REDACTED]; string values
// matching RedactionConfig.Patterns are replaced with [REDACTED:pattern].
//
// # Testing
//
//	tl := logging.NewTestLogger()
//	svc := roulette.NewService(..., roulette.WithLogger(tl.Logger))
//	tl.AssertLogged(t, zapcore.WarnLevel, "recent history unavailable")
package logging
