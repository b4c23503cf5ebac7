// Package logging provides structured logging for homedash on top of log/slog.
//
// Every entry carries the service name and build version. Output is JSON by
// default and plain text when logging.format is "text":
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Components that accept a logger take a small interface (Info/Warn/Error,
// sometimes Debug) so *Logger can be passed directly and tests can pass nothing.
//
// Never log secrets: JWT secrets, agent tokens, Redis or MQTT passwords.
package logging
