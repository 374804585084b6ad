// Package logger builds *slog.Logger instances for the portal gate.
//
// New applies functional options (format, level, static attributes,
// per-environment defaults) and wraps the chosen handler with
// LogHandlerDecorator, which pulls request-scoped values such as the request
// id or the session id out of context.Context on every record.
//
//	log := logger.New(
//	    logger.WithEnvironment(cfg.Env, "portalgate"),
//	    logger.WithContextExtractors(gate.LoggerExtractor()),
//	)
//	log.InfoContext(ctx, "session created", logger.UserID(rec.UserID))
//
// Attribute helpers (Error, UserID, SessionID, Role, Permission, Path ...)
// keep key names consistent across packages. Helpers that receive an empty
// value return an empty slog.Attr, which slog drops.
//
// Discard returns a logger that writes nothing; library packages use it
// when no logger is supplied.
package logger
