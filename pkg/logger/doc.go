// Package logger provides a thin factory around log/slog plus attribute
// helpers shared across the backend.
//
// Components never construct handlers themselves; they accept an optional
// *slog.Logger and default to slog.Default(). The factory exists so that
// main() wires one logger for the whole process:
//
//	log := logger.New(
//	    logger.WithService("notifications"),
//	    logger.WithLevel(slog.LevelDebug),
//	)
//	logger.SetAsDefault(log)
//
// The attribute helpers (logger.UserID, logger.Error, ...) keep log keys
// consistent between packages so records can be correlated downstream.
package logger
