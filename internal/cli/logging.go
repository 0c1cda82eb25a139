package cli

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// LoggerKey names the attribute that sets the logger name shown in each
// record, e.g. logger.With(cli.LoggerKey, "merak.build").
const LoggerKey = "logger"

const timeLayout = "2006-01-02 15:04:05.000"

// LevelFor maps a -v count to a level: WARN, INFO, then DEBUG.
func LevelFor(verbose int) slog.Level {
	switch {
	case verbose <= 0:
		return slog.LevelWarn
	case verbose == 1:
		return slog.LevelInfo
	default:
		return slog.LevelDebug
	}
}

// Handler writes records as `time (LEVEL) logger : msg key=val ...`.
type Handler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  slog.Leveler
	name   string
	attrs  string
	group  string
	styles map[slog.Level]lipgloss.Style
	now    func() time.Time
}

// NewHandler returns a Handler writing to w. With color, level names are
// styled for w's terminal profile.
func NewHandler(w io.Writer, level slog.Leveler, color bool) *Handler {
	h := &Handler{mu: &sync.Mutex{}, w: w, level: level, name: "merak", now: time.Now}
	if color {
		r := lipgloss.NewRenderer(w)
		h.styles = map[slog.Level]lipgloss.Style{
			slog.LevelDebug: r.NewStyle().Foreground(lipgloss.Color("6")),
			slog.LevelInfo:  r.NewStyle().Foreground(lipgloss.Color("2")),
			slog.LevelWarn:  r.NewStyle().Foreground(lipgloss.Color("3")),
			slog.LevelError: r.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
		}
	}
	return h
}

// NewLogger builds the CLI logger.
func NewLogger(w io.Writer, verbose int, color bool) *slog.Logger {
	return slog.New(NewHandler(w, LevelFor(verbose), color))
}

func (h *Handler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *Handler) Handle(_ context.Context, r slog.Record) error {
	t := r.Time
	if t.IsZero() {
		t = h.now()
	}

	var buf bytes.Buffer
	buf.WriteString(t.Format(timeLayout))
	buf.WriteString(" (")
	buf.WriteString(h.levelText(r.Level))
	buf.WriteString(") ")
	buf.WriteString(h.name)
	buf.WriteString(" : ")
	buf.WriteString(r.Message)
	buf.WriteString(h.attrs)
	r.Attrs(func(a slog.Attr) bool {
		writeAttr(&buf, h.group, a)
		return true
	})
	buf.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	nh := *h
	var buf bytes.Buffer
	buf.WriteString(h.attrs)
	for _, a := range attrs {
		if a.Key == LoggerKey && h.group == "" {
			nh.name = a.Value.String()
			continue
		}
		writeAttr(&buf, h.group, a)
	}
	nh.attrs = buf.String()
	return &nh
}

func (h *Handler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	nh := *h
	if nh.group != "" {
		nh.group += "."
	}
	nh.group += name
	return &nh
}

func (h *Handler) levelText(level slog.Level) string {
	text := level.String()
	if style, ok := h.styles[level]; ok {
		return style.Render(text)
	}
	return text
}

func writeAttr(buf *bytes.Buffer, group string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	key := a.Key
	if group != "" {
		key = group + "." + key
	}
	if a.Value.Kind() == slog.KindGroup {
		for _, ga := range a.Value.Group() {
			writeAttr(buf, key, ga)
		}
		return
	}
	fmt.Fprintf(buf, " %s=%s", key, quoteIfNeeded(a.Value.String()))
}

func quoteIfNeeded(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}
