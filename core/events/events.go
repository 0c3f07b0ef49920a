// Package events defines the lifecycle signals the generator emits and bridges them
// to the structured log.
package events

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"github.com/zoobzio/capitan"
)

// Generation signals.
var (
	// RunStarted is emitted when a generation run begins.
	RunStarted = capitan.NewSignal(
		"ctrlgen.run.started",
		"Generation run started",
	)

	// RunCompleted is emitted when every input of a run was processed.
	RunCompleted = capitan.NewSignal(
		"ctrlgen.run.completed",
		"Generation run completed",
	)

	// GenerateStarted is emitted before an input file is generated.
	GenerateStarted = capitan.NewSignal(
		"ctrlgen.generate.started",
		"Input generation started",
	)

	// GenerateSucceeded is emitted after an input file was generated.
	GenerateSucceeded = capitan.NewSignal(
		"ctrlgen.generate.succeeded",
		"Input generated",
	)

	// GenerateFailed is emitted when an input file could not be generated.
	GenerateFailed = capitan.NewSignal(
		"ctrlgen.generate.failed",
		"Input generation failed",
	)
)

// Watch signals.
var (
	// WatchTriggered is emitted when watched files changed and regeneration starts.
	WatchTriggered = capitan.NewSignal(
		"ctrlgen.watch.triggered",
		"Watched files changed",
	)

	// ConfigReloaded is emitted when the configuration file was reloaded.
	ConfigReloaded = capitan.NewSignal(
		"ctrlgen.config.reloaded",
		"Configuration reloaded",
	)
)

// Field keys for generator events.
var (
	// KeyRunID identifies the generation run.
	KeyRunID = capitan.NewStringKey("run_id")

	// KeyFile is the input file.
	KeyFile = capitan.NewStringKey("file")

	// KeyOutput is the generated file.
	KeyOutput = capitan.NewStringKey("output")

	// KeyController is the controller type name.
	KeyController = capitan.NewStringKey("controller")

	// KeyError is the error message when generation fails.
	KeyError = capitan.NewStringKey("error")

	// KeyFiles is the number of files a run or a watch trigger covers.
	KeyFiles = capitan.NewIntKey("files")

	// KeyFailed is the number of files that failed in a run.
	KeyFailed = capitan.NewIntKey("failed")

	// KeyDuration is how long a run took.
	KeyDuration = capitan.NewDurationKey("duration")
)

var logOnce sync.Once

// LogTo logs every generator signal to logger. Failures log at error level, the
// per-file progress at debug level and everything else at info level. Only the first
// call has an effect.
func LogTo(logger zerolog.Logger) {
	logOnce.Do(func() {
		hook(RunStarted, func(e *capitan.Event) *zerolog.Event { return logger.Info() }, "generation started")
		hook(RunCompleted, func(e *capitan.Event) *zerolog.Event {
			if n, _ := KeyFailed.From(e); n > 0 {
				return logger.Warn()
			}
			return logger.Info()
		}, "generation completed")
		hook(GenerateStarted, func(*capitan.Event) *zerolog.Event { return logger.Debug() }, "generating")
		hook(GenerateSucceeded, func(*capitan.Event) *zerolog.Event { return logger.Info() }, "generated")
		hook(GenerateFailed, func(*capitan.Event) *zerolog.Event { return logger.Error() }, "generation failed")
		hook(WatchTriggered, func(*capitan.Event) *zerolog.Event { return logger.Info() }, "files changed")
		hook(ConfigReloaded, func(*capitan.Event) *zerolog.Event { return logger.Info() }, "configuration reloaded")
	})
}

func hook(signal capitan.Signal, level func(*capitan.Event) *zerolog.Event, msg string) {
	capitan.Hook(signal, func(_ context.Context, e *capitan.Event) {
		ev := level(e)
		if v, ok := KeyRunID.From(e); ok {
			ev = ev.Str("run_id", v)
		}
		if v, ok := KeyFile.From(e); ok {
			ev = ev.Str("file", v)
		}
		if v, ok := KeyOutput.From(e); ok {
			ev = ev.Str("output", v)
		}
		if v, ok := KeyController.From(e); ok {
			ev = ev.Str("controller", v)
		}
		if v, ok := KeyFiles.From(e); ok {
			ev = ev.Int("files", v)
		}
		if v, ok := KeyFailed.From(e); ok {
			ev = ev.Int("failed", v)
		}
		if v, ok := KeyDuration.From(e); ok {
			ev = ev.Dur("duration", v)
		}
		if v, ok := KeyError.From(e); ok {
			ev = ev.Str("error", v)
		}
		ev.Msg(msg)
	})
}
