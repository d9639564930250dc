package rlog

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
)

// consoleHandler renders each record as a header line followed by one
// indented detail line per attribute, whatever the level. Grounded on
// five82-spindle/internal/logging's prettyHandler, trimmed to the essentials.
type consoleHandler struct {
	mu       *sync.Mutex
	writer   interface{ Write([]byte) (int, error) }
	level    *slog.LevelVar
	attrs    []slog.Attr
	groups   []string
	colorize bool
}

func newConsoleHandler(w interface{ Write([]byte) (int, error) }, level *slog.LevelVar, colorize bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, writer: w, level: level, colorize: colorize}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	var component string
	attrs := make([]slog.Attr, 0, len(h.attrs)+record.NumAttrs())
	attrs = append(attrs, h.attrs...)
	record.Attrs(func(a slog.Attr) bool {
		attrs = append(attrs, a)
		return true
	})

	filtered := attrs[:0:0]
	for _, a := range attrs {
		if a.Key == "component" && component == "" {
			component = formatAttrValue(a.Value)
			continue
		}
		filtered = append(filtered, a)
	}

	var buf bytes.Buffer
	buf.WriteString(record.Time.UTC().Format("2006-01-02T15:04:05Z"))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	if component != "" {
		buf.WriteString(" [")
		buf.WriteString(component)
		buf.WriteByte(']')
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}
	buf.WriteString(" - ")
	buf.WriteString(msg)
	buf.WriteByte('\n')

	for _, a := range filtered {
		if a.Key == "" {
			continue
		}
		buf.WriteString("    ")
		buf.WriteString(a.Key)
		buf.WriteString(": ")
		buf.WriteString(formatAttrValue(a.Value))
		buf.WriteByte('\n')
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.writer.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := h.clone()
	clone.attrs = append(clone.attrs, attrs...)
	return clone
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	clone := h.clone()
	clone.groups = append(clone.groups, name)
	return clone
}

func (h *consoleHandler) clone() *consoleHandler {
	clone := &consoleHandler{mu: h.mu, writer: h.writer, level: h.level, colorize: h.colorize}
	clone.attrs = append(clone.attrs, h.attrs...)
	clone.groups = append(clone.groups, h.groups...)
	return clone
}
