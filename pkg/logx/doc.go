// Package logx configures giftomatic's structured logging.
//
// It is a thin wrapper (logx.Logger) on top of zerolog that keeps:
//   - Console output readable (short timestamp, key=value fields)
//   - File output JSON-structured
//   - Level/sink changes applied at runtime without replacing loggers
package logx
