// Package report contains Reporter implementations for run output.
package report

import (
	"fmt"
	"io"
	"sync"
)

// Console writes one line per call to a shared writer. A mutex serializes
// writes so concurrent workers and monitors never tear a line.
type Console struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

// NewConsole builds a Console over w. Verbose lines are dropped unless
// verbose is set.
func NewConsole(w io.Writer, verbose bool) *Console {
	return &Console{w: w, verbose: verbose}
}

// Output writes a status line.
func (c *Console) Output(line string) {
	c.write(line)
}

// Warn writes a warning line.
func (c *Console) Warn(line string) {
	c.write("WARNING: " + line)
}

// Error writes an error line.
func (c *Console) Error(line string) {
	c.write("ERROR: " + line)
}

// Verbose writes a line only when verbosity is enabled.
func (c *Console) Verbose(line string) {
	if !c.verbose {
		return
	}
	c.write(line)
}

func (c *Console) write(line string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.w, line)
}

// Nop discards every line. Useful in tests.
type Nop struct{}

// Output implements batch.Reporter.
func (Nop) Output(string) {}

// Warn implements batch.Reporter.
func (Nop) Warn(string) {}

// Error implements batch.Reporter.
func (Nop) Error(string) {}

// Verbose implements batch.Reporter.
func (Nop) Verbose(string) {}
