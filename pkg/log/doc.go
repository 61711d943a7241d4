// Package log provides the structured audit trail for codec streams and
// validation runs.
//
// It is separate from operational logging (slog): the audit trail is a
// machine-readable record of every frame that crossed a stream and every
// accept, default or reject decision a validation pass made.
//
// # Basic Usage
//
//	// For development: print events through slog
//	rules.Logger = log.NewSlogAdapter(slog.Default())
//
//	// For later analysis: append to a CBOR file
//	fl, _ := log.NewFileLogger("/var/log/hashcfg/validate.hlog")
//	rules.Logger = log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl)
//
// # Event Types
//
// Events are captured at three layers:
//   - Codec: frames written or read by a wire stream (FrameEvent)
//   - Schema: schema loading and overwrites (ErrorEventData on failure)
//   - Validation: run boundaries (RunEvent) and per-path decisions
//     (DecisionEvent)
//
// Every event of one validation pass or one stream carries the same RunID.
//
// # File Format
//
// Log files are a plain sequence of CBOR-encoded events. Reader iterates them
// with an optional Filter.
package log
