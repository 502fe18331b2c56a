// Package output форматирует вывод CLI: цветные сообщения, поля и таблицы.
package output

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/magabrotheeeer/mirzo-ai/internal/models"
)

// ColorMode — режим раскраски вывода.
type ColorMode int

const (
	ColorAuto ColorMode = iota
	ColorAlways
	ColorNever
)

// ParseColorMode разбирает значение флага --color.
func ParseColorMode(s string) (ColorMode, error) {
	switch s {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("invalid color mode %q: must be auto, always, or never", s)
	}
}

// ResolveColors решает, раскрашивать ли вывод. В режиме auto учитываются
// NO_COLOR, TERM=dumb и то, что stdout — терминал.
func ResolveColors(mode ColorMode) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		if _, ok := os.LookupEnv("NO_COLOR"); ok {
			return false
		}
		if os.Getenv("TERM") == "dumb" {
			return false
		}
		return !color.NoColor
	}
}

// Printer пишет сообщения в out, а предупреждения и ошибки в err.
type Printer struct {
	out       io.Writer
	err       io.Writer
	useColors bool
	quiet     bool
}

// PrinterOptions настраивает Printer.
type PrinterOptions struct {
	Out       io.Writer
	Err       io.Writer
	ColorMode ColorMode
	Quiet     bool
}

// NewPrinter создаёт Printer. Пустые Out и Err означают stdout и stderr.
func NewPrinter(opts PrinterOptions) *Printer {
	p := &Printer{
		out:       opts.Out,
		err:       opts.Err,
		useColors: ResolveColors(opts.ColorMode),
		quiet:     opts.Quiet,
	}
	if p.out == nil {
		p.out = os.Stdout
	}
	if p.err == nil {
		p.err = os.Stderr
	}
	return p
}

// Out возвращает writer для основного вывода.
func (p *Printer) Out() io.Writer {
	return p.out
}

func (p *Printer) IsQuiet() bool {
	return p.quiet
}

// Info печатает информационное сообщение.
func (p *Printer) Info(format string, args ...any) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgCyan).Fprintf(p.out, format+"\n", args...)
	} else {
		fmt.Fprintf(p.out, format+"\n", args...)
	}
}

// Success печатает сообщение об успехе.
func (p *Printer) Success(format string, args ...any) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgGreen).Fprintf(p.out, "✓ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.out, "[OK] "+format+"\n", args...)
	}
}

// Warning печатает предупреждение в поток ошибок.
func (p *Printer) Warning(format string, args ...any) {
	if p.quiet {
		return
	}
	if p.useColors {
		color.New(color.FgYellow).Fprintf(p.err, "⚠ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, "[WARN] "+format+"\n", args...)
	}
}

// Error печатает ошибку. Ошибки не подавляются флагом quiet.
func (p *Printer) Error(format string, args ...any) {
	if p.useColors {
		color.New(color.FgRed).Fprintf(p.err, "✗ "+format+"\n", args...)
	} else {
		fmt.Fprintf(p.err, "[ERROR] "+format+"\n", args...)
	}
}

// Print печатает строку без оформления.
func (p *Printer) Print(format string, args ...any) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, format+"\n", args...)
}

// Raw пишет текст как есть. Используется для HTML и ответов ассистента,
// поэтому не зависит от quiet.
func (p *Printer) Raw(text string) {
	fmt.Fprint(p.out, text)
	if !strings.HasSuffix(text, "\n") {
		fmt.Fprintln(p.out)
	}
}

// Header печатает заголовок раздела.
func (p *Printer) Header(title string) {
	if p.quiet {
		return
	}
	width := len([]rune(title))
	if p.useColors {
		color.New(color.FgWhite, color.Bold).Fprintf(p.out, "\n%s\n", title)
		color.New(color.FgWhite).Fprintf(p.out, "%s\n", strings.Repeat("─", width))
	} else {
		fmt.Fprintf(p.out, "\n%s\n%s\n", title, strings.Repeat("-", width))
	}
}

// Field печатает пару "метка: значение".
func (p *Printer) Field(label, value string) {
	if p.quiet {
		return
	}
	fmt.Fprintf(p.out, "%-14s %s\n", label+":", value)
}

// StatusBadge возвращает статус подписки с цветовой меткой.
func (p *Printer) StatusBadge(status models.SubscriptionStatus) string {
	if !p.useColors {
		return fmt.Sprintf("[%s]", status)
	}
	switch status {
	case models.StatusActive:
		return color.GreenString("● %s", status)
	case models.StatusPending:
		return color.YellowString("● %s", status)
	case models.StatusNone:
		return color.RedString("○ %s", status)
	default:
		return color.WhiteString("○ %s", status)
	}
}

func (p *Printer) Bold(text string) string {
	if p.useColors {
		return color.New(color.Bold).Sprint(text)
	}
	return text
}

func (p *Printer) Dim(text string) string {
	if p.useColors {
		return color.New(color.Faint).Sprint(text)
	}
	return text
}
