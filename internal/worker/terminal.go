package worker

import (
	"context"
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D75FD7"))
	actionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#585858"))
)

// TerminalDisplay prints notifications to a terminal. Unless silent, it
// rings the bell first.
type TerminalDisplay struct {
	W io.Writer
}

func (d TerminalDisplay) Show(_ context.Context, opts Options) error {
	var b strings.Builder
	if !opts.Silent {
		b.WriteString("\a")
	}
	b.WriteString(titleStyle.Render(opts.Title))
	if opts.Body != "" {
		b.WriteString("\n  ")
		b.WriteString(opts.Body)
	}
	if len(opts.Actions) > 0 {
		titles := make([]string, len(opts.Actions))
		for i, a := range opts.Actions {
			titles[i] = "[" + a.Title + "]"
		}
		b.WriteString("\n  ")
		b.WriteString(actionStyle.Render(strings.Join(titles, " ")))
	}
	if opts.URL != DefaultURL {
		b.WriteString("\n  ")
		b.WriteString(actionStyle.Render(opts.URL))
	}
	b.WriteString("\n")

	_, err := io.WriteString(d.W, b.String())
	return err
}

// BrowserWindows opens notification targets in the system browser. The
// browser does not expose its tabs, so every click opens a new one.
type BrowserWindows struct {
	// BaseURL is prefixed to relative notification URLs.
	BaseURL string
	// Command overrides the platform opener.
	Command string
}

func (BrowserWindows) List(context.Context) ([]Window, error) {
	return nil, nil
}

func (w BrowserWindows) Open(ctx context.Context, url string) error {
	if strings.HasPrefix(url, "/") && w.BaseURL != "" {
		url = strings.TrimRight(w.BaseURL, "/") + url
	}
	opener := w.Command
	if opener == "" {
		switch runtime.GOOS {
		case "darwin":
			opener = "open"
		default:
			opener = "xdg-open"
		}
	}
	if err := exec.CommandContext(ctx, opener, url).Start(); err != nil {
		return fmt.Errorf("open %s: %w", url, err)
	}
	return nil
}
