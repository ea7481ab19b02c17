package render

import (
	"log/slog"

	"github.com/rotisserie/eris"

	"github.com/cybre/beat-puppet/internal/pose"
)

// Renderer applies a pose.
type Renderer interface {
	Render(p pose.Pose) error
}

// Multi fans a pose out to several renderers.
type Multi []Renderer

// Render renders to every renderer and reports the first failure.
func (m Multi) Render(p pose.Pose) error {
	var (
		first  error
		failed int
	)
	for _, r := range m {
		if err := r.Render(p); err != nil {
			failed++
			if first == nil {
				first = err
			}
		}
	}
	if first != nil {
		return eris.Wrapf(first, "%d of %d renderers failed", failed, len(m))
	}
	return nil
}

// LogRenderer writes every Nth pose to a logger at debug level.
type LogRenderer struct {
	logger *slog.Logger
	every  int
	count  int
}

// NewLogRenderer logs one pose out of every `every`.
func NewLogRenderer(logger *slog.Logger, every int) *LogRenderer {
	return &LogRenderer{logger: logger, every: max(every, 1)}
}

// Render implements Renderer.
func (l *LogRenderer) Render(p pose.Pose) error {
	l.count++
	if l.count%l.every != 0 {
		return nil
	}

	attrs := make([]any, 0, len(p.Parts)+3)
	attrs = append(attrs,
		slog.Float64("t", p.Time),
		slog.Float64("pulse", p.Pulse),
		slog.String("expression", p.Expression.String()),
	)
	for _, part := range p.Parts {
		attrs = append(attrs, slog.Group(part.Name,
			slog.Float64("x", part.Position.X),
			slog.Float64("y", part.Position.Y),
			slog.Float64("angle", part.Angle),
		))
	}
	l.logger.Debug("pose", attrs...)
	return nil
}
