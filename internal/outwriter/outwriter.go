// Package outwriter renders pipeline results as a terminal table, JSON or
// markdown, to stdout or to a file.
package outwriter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/KaramelBytes/insightloom/internal/pipeline"
	"github.com/KaramelBytes/insightloom/internal/utils"
)

// Format selects a renderer.
type Format string

const (
	TableOut    Format = "table"
	JSONOut     Format = "json"
	MarkdownOut Format = "markdown"
)

// ParseFormat accepts table, json, markdown (or md). Empty means table.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "table":
		return TableOut, nil
	case "json":
		return JSONOut, nil
	case "markdown", "md":
		return MarkdownOut, nil
	}
	return "", fmt.Errorf("unknown output format %q (use table, json or markdown)", s)
}

// Options controls rendering.
type Options struct {
	Format Format
	// Color enables ANSI colors in table output.
	Color bool
	// Width overrides the detected terminal width; 0 detects.
	Width int
}

// ResolveColor maps auto|always|never to a decision for w.
func ResolveColor(mode string, w io.Writer) bool {
	switch strings.ToLower(mode) {
	case "always":
		return true
	case "never":
		return false
	}
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Write renders res to w.
func Write(w io.Writer, res *pipeline.Result, opt Options) error {
	switch opt.Format {
	case JSONOut:
		return writeJSON(w, res)
	case MarkdownOut:
		return writeMarkdown(w, res)
	default:
		return writeTable(w, res, opt)
	}
}

// WriteFile renders res into path atomically. Colors are never written to files.
func WriteFile(path string, res *pipeline.Result, opt Options) error {
	opt.Color = false
	var buf bytes.Buffer
	if err := Write(&buf, res, opt); err != nil {
		return err
	}
	if err := utils.SafeWriteFile(path, buf.Bytes()); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "💾 Wrote %s to %s\n", opt.Format, path)
	return nil
}

// writeJSON is a generic JSON encoder that handles indentation consistently.
func writeJSON(w io.Writer, data any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("failed to encode JSON: %w", err)
	}
	return nil
}

// palette holds the colors for one render.
type palette struct {
	ok, warn, bad, info, dim *color.Color
}

func newPalette(on bool) palette {
	mk := func(attrs ...color.Attribute) *color.Color {
		c := color.New(attrs...)
		if on {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
		return c
	}
	return palette{
		ok:   mk(color.FgGreen, color.Bold),
		warn: mk(color.FgYellow),
		bad:  mk(color.FgRed, color.Bold),
		info: mk(color.FgCyan),
		dim:  mk(color.Faint),
	}
}

func (p palette) status(s pipeline.Status) string {
	switch s {
	case pipeline.StatusCompleted:
		return p.ok.Sprint(string(s))
	case pipeline.StatusError:
		return p.bad.Sprint(string(s))
	}
	return p.warn.Sprint(string(s))
}

func (p palette) severity(s string) string {
	switch s {
	case "high":
		return p.bad.Sprint(s)
	case "medium":
		return p.warn.Sprint(s)
	}
	return p.info.Sprint(s)
}

// termWidth returns the override, the detected stdout width, or 80.
func termWidth(override int) int {
	if override > 0 {
		return override
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

// messageWidth is the room left for a free-text column next to fixed ones.
func messageWidth(total, fixed int) int {
	avail := total - fixed
	switch {
	case avail < 20:
		return 20
	case avail > 100:
		return 100
	}
	return avail
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 3 || len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
