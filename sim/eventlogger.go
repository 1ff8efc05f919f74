package sim

import (
	"log/slog"
)

// CycleLogger is a hook that writes cycles, faults, and state changes into a
// logger. Cycles are logged at debug level.
type CycleLogger struct {
	logger *slog.Logger
}

// NewCycleLogger returns a new CycleLogger which will write into the logger.
func NewCycleLogger(logger *slog.Logger) *CycleLogger {
	if logger == nil {
		logger = slog.Default()
	}

	return &CycleLogger{logger: logger}
}

// Func writes the hook information into the logger.
func (h *CycleLogger) Func(ctx HookCtx) {
	switch ctx.Pos {
	case HookPosAfterCycle:
		info, ok := ctx.Item.(CycleInfo)
		if !ok {
			return
		}

		h.logger.Debug("cycle completed",
			"cycle", info.Cycle,
			"actors", info.ActorCount,
			"duration", info.Duration)
	case HookPosActorFault:
		if f, ok := ctx.Item.(*Fault); ok {
			h.logger.Warn("actor fault", "cycle", f.Cycle, "error", f.Error())
		}
	case HookPosStateChange:
		h.logger.Info("simulation state changed", "state", ctx.Item)
	}
}
