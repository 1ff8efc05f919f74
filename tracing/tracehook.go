package tracing

import (
	"fmt"
	"reflect"

	"github.com/sarchlab/greenstep/sim"
)

// CollectTrace lets the tracer collect traces from a scheduler or any other
// hookable domain. It must be called before the scheduler starts.
func CollectTrace(domain sim.Hookable, tracer Tracer) {
	hooks := domain.Hooks()
	for _, hook := range hooks {
		hook, ok := hook.(*traceHook)
		if ok && hook.t == tracer {
			panic(fmt.Sprintf(
				"domain already has tracer %s", reflect.TypeOf(tracer)))
		}
	}

	h := traceHook{t: tracer}
	domain.AcceptHook(&h)
}

// A traceHook forwards scheduler hooks to a tracer.
type traceHook struct {
	t Tracer
}

// Func calls the tracer interfaces when the hook is triggered
func (h *traceHook) Func(ctx sim.HookCtx) {
	switch ctx.Pos {
	case sim.HookPosBeforeCycle:
		h.t.StartCycle(ctx.Item.(sim.CycleInfo))
	case sim.HookPosAfterCycle:
		h.t.EndCycle(ctx.Item.(sim.CycleInfo))
	case sim.HookPosActorFault:
		h.t.Fault(ctx.Item.(*sim.Fault))
	case sim.HookPosStateChange:
		h.t.StateChanged(ctx.Item.(sim.State))
	}
}
