package probe

import (
	"context"
	"log/slog"

	"github.com/specialistvlad/posgridgo/internal/node"
	"github.com/zclconf/go-cty/cty"
)

// Logger writes one structured record per event.
type Logger struct {
	logger *slog.Logger
	level  slog.Level
}

// NewLogger creates a logging observer emitting at level.
func NewLogger(logger *slog.Logger, level slog.Level) *Logger {
	return &Logger{logger: logger, level: level}
}

// For builds the logging probe of n.
func (l *Logger) For(n *node.Base) node.Probe {
	s := siteOf(n)
	log := l.logger.With("section", s.section.String(), "tags", s.tags.String())
	return funcProbe{
		onEnter: func(f *node.Frame) {
			log.Log(context.Background(), l.level, "Node entered.", "frame", f.ID.String())
		},
		onReturn: func(f *node.Frame, v cty.Value) {
			log.Log(context.Background(), l.level, "Node returned.", "frame", f.ID.String(), "result", FormatValue(v))
		},
		onError: func(f *node.Frame, err error) {
			log.Log(context.Background(), l.level, "Node failed.", "frame", f.ID.String(), "error", err)
		},
	}
}
