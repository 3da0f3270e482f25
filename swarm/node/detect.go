package node

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"synctext/console"
	"synctext/diff"
)

// detectChanges diffs the current document content against the
// baseline from the previous poll. Every resulting update goes into the
// pending buffer; once the buffer reaches the merge threshold the whole
// batch is broadcast per update and merged with the batch passed
// explicitly, otherwise a merge attempt runs on the buffers' combined
// size alone.
func (n *Node) detectChanges(current []string) {
	updates := diff.Lines(n.baseline, current, n.UserID, time.Now())

	for _, upd := range updates {
		n.printer.Print(fmt.Sprintf("%s[Local Change Detected]%s Line %d, %q -> %q",
			console.Blue, console.Reset, upd.Line, upd.OldText, upd.NewText))

		n.pending.Append(upd)

		if n.pending.Len() >= n.threshold {
			batch := n.pending.Drain()
			n.printer.Print(console.Cyan + "[Broadcasting updates...]" + console.Reset)
			for i := range batch {
				n.broadcast(&batch[i])
			}
			if err := n.Engine.TryMerge(batch...); err != nil {
				log.Errorf("Merge failed: %v", err)
			}
		} else if err := n.Engine.TryMerge(); err != nil {
			log.Errorf("Merge failed: %v", err)
		}
	}

	n.baseline = current
}
