// Package logger builds the structured *slog.Logger shared by every authsession
// component and provides attribute helpers so the same keys are used
// everywhere (endpoint, status, attempt, generation, phase, ...).
//
// New accepts functional options selecting the output format (text or json),
// level, destination, static attributes and ContextExtractor callbacks. The
// resulting handler is wrapped by LogHandlerDecorator which runs the extractors
// on every record, so values like the outbound request id travel with the
// context instead of being threaded through call sites.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithDevelopment("authsession"),
//	    logger.WithContextExtractors(requestid.LoggerExtractor()),
//	)
//
//	log.WarnContext(ctx, "identity resolution failed",
//	    logger.Endpoint("/auth/me"),
//	    logger.Status(502),
//	)
//
// Components that accept a logger default to Discard() so the library is silent
// unless the embedding application opts in.
//
// Credentials and cookie values must never be passed to these helpers.
package logger
