package output

import (
	"fmt"

	"github.com/fatih/color"
)

// Коды выхода CLI.
const (
	ExitSuccess      = 0
	ExitGeneral      = 1
	ExitUsageError   = 2
	ExitUnauthorized = 3
	ExitConfigError  = 4
	ExitLocked       = 5
)

// CLIError — ошибка с текстом для пользователя и подсказкой.
type CLIError struct {
	Summary    string
	Detail     []string
	Suggestion string
	ExitCode   int
	Err        error
}

func (e *CLIError) Error() string {
	return e.Summary
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// FormatError печатает ошибку в поток ошибок.
func (p *Printer) FormatError(e *CLIError) {
	if p.useColors {
		color.New(color.FgRed, color.Bold).Fprintf(p.err, "Error: %s\n", e.Summary)
		for _, d := range e.Detail {
			fmt.Fprintf(p.err, "  - %s\n", d)
		}
		if e.Suggestion != "" {
			color.New(color.FgCyan).Fprintf(p.err, "  Suggestion: %s\n", e.Suggestion)
		}
		return
	}
	fmt.Fprintf(p.err, "[ERROR] %s\n", e.Summary)
	for _, d := range e.Detail {
		fmt.Fprintf(p.err, "  - %s\n", d)
	}
	if e.Suggestion != "" {
		fmt.Fprintf(p.err, "  Suggestion: %s\n", e.Suggestion)
	}
}
