// Package console serializes terminal output with a spin-wait flag and
// renders the document view.
package console

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
)

const (
	Reset   = "\033[0m"
	Blue    = "\033[1;34m"
	Cyan    = "\033[1;36m"
	Green   = "\033[1;32m"
	Magenta = "\033[1;35m"
	Yellow  = "\033[1;33m"

	clearScreen = "\033[2J\033[H"
)

// Printer serializes writes to the terminal. Contending goroutines spin
// on an atomic flag, yielding between attempts; the flag is only ever
// held around the terminal write itself, never across a call that can
// block indefinitely.
type Printer struct {
	busy atomic.Bool
}

func NewPrinter() *Printer {
	return &Printer{}
}

func (p *Printer) Print(msg string) {
	for !p.busy.CompareAndSwap(false, true) {
		runtime.Gosched()
	}
	fmt.Println(msg)
	p.busy.Store(false)
}

// RenderDocument repaints the full document view: header, numbered
// lines, recent notifications and the monitoring footer. The frame is
// assembled first and emitted as one serialized write.
func (p *Printer) RenderDocument(filename string, lines []string, lastUpdate string, notifications []string) {
	var b strings.Builder
	b.WriteString(clearScreen)
	fmt.Fprintf(&b, "Document: %s\n", filename)
	fmt.Fprintf(&b, "Last updated: %s\n", lastUpdate)
	b.WriteString("----------------------------------------\n")
	for i, line := range lines {
		fmt.Fprintf(&b, "Line %d: %s\n", i, line)
	}
	b.WriteString("----------------------------------------\n")

	if len(notifications) > 0 {
		b.WriteString("\n--- Recent Notifications ---\n")
		for _, msg := range notifications {
			b.WriteString(Yellow + msg + Reset + "\n")
		}
		b.WriteString("-----------------------------\n")
	}

	b.WriteString("Monitoring for changes...")
	p.Print(b.String())
}
