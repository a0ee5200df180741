// Package report prints the scan's feedback lines. All output goes
// through one Reporter so tests can capture or silence it.
package report

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
)

var (
	infoMark = color.New(color.FgCyan).Sprint("[*]")
	warnMark = color.New(color.FgRed).Sprint("[-]")
)

type Reporter struct {
	Out     io.Writer
	Verbose bool
}

func New(verbose bool) *Reporter {
	return &Reporter{Out: os.Stdout, Verbose: verbose}
}

// Plain prints an unadorned line, used for banners and raw result text.
func (r *Reporter) Plain(format string, a ...any) {
	fmt.Fprintf(r.Out, format+"\n", a...)
}

// Section prints the per-target banner.
func (r *Reporter) Section(format string, a ...any) {
	fmt.Fprintf(r.Out, "\n# ____________________ "+format+" ____________________ #\n", a...)
}

// Heading starts a phase group, e.g. "# DNS lookups".
func (r *Reporter) Heading(format string, a ...any) {
	fmt.Fprintf(r.Out, "\n# "+format+"\n", a...)
}

// Info prints a positive result line.
func (r *Reporter) Info(format string, a ...any) {
	fmt.Fprintf(r.Out, infoMark+" "+format+"\n", a...)
}

// Warn prints a negative but non-fatal status line.
func (r *Reporter) Warn(format string, a ...any) {
	fmt.Fprintf(r.Out, warnMark+" "+format+"\n", a...)
}

// Fail reports a failed lookup phase. The error detail only appears in
// verbose mode; the status line itself always appears so "not found"
// stays distinguishable from "lookup broke".
func (r *Reporter) Fail(phase string, err error) {
	if r.Verbose && err != nil {
		fmt.Fprintf(r.Out, warnMark+" %s failed: %v\n", phase, err)
		return
	}
	fmt.Fprintf(r.Out, warnMark+" %s failed\n", phase)
}
