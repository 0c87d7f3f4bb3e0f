// Package notify delivers user-visible notices. Notices never block and
// never fail from the caller's point of view.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// Notifier receives user-visible notices.
type Notifier interface {
	Info(msg string)
	Error(msg string)
}

// LogNotifier writes notices to a logger.
type LogNotifier struct {
	Logger *slog.Logger
}

// Info implements Notifier.
func (n LogNotifier) Info(msg string) {
	n.Logger.Info("notice", "message", msg)
}

// Error implements Notifier.
func (n LogNotifier) Error(msg string) {
	n.Logger.Error("notice", "message", msg)
}

// Multi fans a notice out to several notifiers.
type Multi []Notifier

// Info implements Notifier.
func (m Multi) Info(msg string) {
	for _, n := range m {
		n.Info(msg)
	}
}

// Error implements Notifier.
func (m Multi) Error(msg string) {
	for _, n := range m {
		n.Error(msg)
	}
}

// Console prints notices for a human, colored when w is a terminal.
type Console struct {
	mu       sync.Mutex
	w        io.Writer
	info     lipgloss.Style
	errStyle lipgloss.Style
}

// NewConsole creates a Console writing to w.
func NewConsole(w io.Writer) *Console {
	r := lipgloss.NewRenderer(w)
	return &Console{
		w:        w,
		info:     r.NewStyle().Foreground(lipgloss.Color("42")),
		errStyle: r.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
	}
}

// Info implements Notifier.
func (c *Console) Info(msg string) {
	c.print(c.info, "✓", msg)
}

// Error implements Notifier.
func (c *Console) Error(msg string) {
	c.print(c.errStyle, "✗", msg)
}

func (c *Console) print(style lipgloss.Style, mark, msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, style.Render(mark)+" "+msg)
}
