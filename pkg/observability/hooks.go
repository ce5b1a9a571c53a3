package observability

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/aretw0/storyline/pkg/domain"
)

func itoa(i int) string { return strconv.Itoa(i) }

// LoggingHooks logs every lifecycle event at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_enter", "node_id", e.NodeID, "kind", e.NodeKind)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node_leave", "node_id", e.NodeID)
		},
		OnLine: func(ctx context.Context, e *domain.LineEvent) {
			logger.DebugContext(ctx, "line", "node_id", e.NodeID, "index", e.Index, "speaker", e.Line.Speaker)
		},
		OnChoice: func(ctx context.Context, e *domain.ChoiceEvent) {
			logger.DebugContext(ctx, "choice", "node_id", e.NodeID, "index", e.Index, "text", e.Text)
		},
		OnRewind: func(ctx context.Context, e *domain.ChoiceEvent) {
			logger.DebugContext(ctx, "rewind", "node_id", e.NodeID, "mark", e.Index)
		},
	}
}

// ChainHooks combines hook sets; each event is delivered to every set in order.
func ChainHooks(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnNodeEnter = chain(out.OnNodeEnter, h.OnNodeEnter)
		out.OnNodeLeave = chain(out.OnNodeLeave, h.OnNodeLeave)
		out.OnLine = chain(out.OnLine, h.OnLine)
		out.OnChoice = chain(out.OnChoice, h.OnChoice)
		out.OnRewind = chain(out.OnRewind, h.OnRewind)
		out.OnDiagnostic = chain(out.OnDiagnostic, h.OnDiagnostic)
	}
	return out
}

func chain[E any](a, b func(context.Context, *E)) func(context.Context, *E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e *E) {
		a(ctx, e)
		b(ctx, e)
	}
}
