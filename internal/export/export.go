// Package export flattens scan results into CSV rows and writes them
// with retry-until-success semantics.
package export

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"gorecon/internal/target"
)

// Rows produces the CSV block for one target. Row shapes vary by kind;
// the output is free-form text fields, not a fixed schema. Each call
// rebuilds the block from the target's current state.
func Rows(t target.Target) [][]string {
	switch t := t.(type) {
	case *target.Host:
		return hostRows(t)
	case *target.Network:
		return networkRows(t)
	}
	return nil
}

func hostRows(h *target.Host) [][]string {
	rows := [][]string{{"Target:", h.String()}}

	for _, ip := range h.IPs {
		row := []string{"IP", ip.Addr.String(), ip.Name}
		if ip.Whois != "" {
			row = append(row, flatten(ip.Whois))
		}
		for _, svc := range ip.Services {
			row = append(row, svc.String())
		}
		rows = append(rows, row)
	}
	for _, r := range h.NS {
		rows = append(rows, recordRow("NS", r))
	}
	for _, r := range h.MX {
		rows = append(rows, recordRow("MX", r))
	}
	if h.WhoisDomain != "" {
		rows = append(rows, []string{"Whois domain", flatten(h.WhoisDomain)})
	}
	for _, c := range h.CIDRs {
		rows = append(rows, []string{"Related CIDR", c.String()})
	}
	if h.LinkedIn != "" {
		rows = append(rows, []string{"LinkedIn page", h.LinkedIn})
	}
	for _, sub := range h.Subdomains {
		rows = append(rows, []string{"Subdomain", sub})
	}
	return rows
}

func networkRows(n *target.Network) [][]string {
	rows := [][]string{{"Network:", n.String()}}
	for _, e := range n.Sweep {
		rows = append(rows, []string{e.Addr.String(), e.Name})
	}
	return rows
}

func recordRow(kind string, r target.Record) []string {
	if r.Addr.IsValid() {
		return []string{kind, r.Name, r.Addr.String()}
	}
	return []string{kind, r.Name}
}

// Serialize drains every target's row block in order, separating blocks
// with a blank row.
func Serialize(targets []target.Target) [][]string {
	var out [][]string
	for _, t := range targets {
		out = append(out, Rows(t)...)
		out = append(out, []string{""})
	}
	return out
}

// flatten folds multi-line result text into one CSV field.
func flatten(s string) string {
	return strings.Join(strings.Split(s, "\n"), " | ")
}

// ErrAborted means the user confirmed abandoning the export after an
// interrupt inside the retry loop.
var ErrAborted = errors.New("export aborted by user")

// Writer writes the serialized rows to a file, prompting for retry on
// any I/O failure and looping until the write succeeds or the user
// interrupts and confirms. A failed attempt removes its partial file so
// no truncated output survives.
type Writer struct {
	In  io.Reader        // prompt input, normally os.Stdin
	Sig <-chan os.Signal // interrupt delivery during the retry loop
	Out io.Writer        // prompt output

	// create is swapped by tests to simulate write failures.
	create func(string) (io.WriteCloser, error)
}

func NewWriter(in io.Reader, sig <-chan os.Signal) *Writer {
	return &Writer{In: in, Sig: sig, Out: os.Stdout}
}

// Write stores rows at path. It returns nil once a complete file is on
// disk, ErrAborted when the user gave up, and never returns a partial
// write as success.
func (w *Writer) Write(path string, rows [][]string) error {
	lines := w.readLines()
	for {
		err := w.writeOnce(path, rows)
		if err == nil {
			return nil
		}
		fmt.Fprintf(w.Out, "[-] Something went wrong, can't open output file. Press enter to try again.\nError: %v\n", err)

		select {
		case _, ok := <-lines:
			if !ok {
				// input closed: nothing left to drive retries
				return ErrAborted
			}
		case <-w.Sig:
			if w.confirmAbort(lines) {
				return ErrAborted
			}
		}
	}
}

func (w *Writer) writeOnce(path string, rows [][]string) error {
	create := w.create
	if create == nil {
		create = func(p string) (io.WriteCloser, error) { return os.Create(p) }
	}
	f, err := create(path)
	if err != nil {
		return err
	}
	cw := csv.NewWriter(f)
	for _, row := range rows {
		if err := cw.Write(row); err != nil {
			f.Close()
			os.Remove(path)
			return err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return err
	}
	return nil
}

// readLines feeds prompt responses through a channel so the retry loop
// can select between user input and an interrupt.
func (w *Writer) readLines() <-chan string {
	ch := make(chan string)
	go func() {
		defer close(ch)
		sc := bufio.NewScanner(w.In)
		for sc.Scan() {
			ch <- sc.Text()
		}
	}()
	return ch
}

func (w *Writer) confirmAbort(lines <-chan string) bool {
	fmt.Fprint(w.Out, "[-] Sure you want to exit without saving your file (Y/n)? ")
	answer, ok := <-lines
	if !ok {
		return true
	}
	answer = strings.TrimSpace(answer)
	return answer == "" || strings.EqualFold(answer, "y")
}
