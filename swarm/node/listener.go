package node

import (
	"context"
	"fmt"
	"io"
	"time"

	log "github.com/sirupsen/logrus"

	"synctext/console"
	"synctext/datamodel/update"
)

// runListener drains this process's inbound channel for the process
// lifetime: every decoded record lands in the received buffer and the
// notification log, followed by a merge attempt. An empty channel is
// polled with a short sleep.
func (n *Node) runListener(ctx context.Context) error {
	r, err := n.Channel.OpenReader()
	if err != nil {
		return fmt.Errorf("listener: %w", err)
	}
	defer r.Close()

	log.Infof("Listening on %s", n.Channel.Path())

	buf := make([]byte, update.RecordSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if _, err := io.ReadFull(r, buf); err != nil {
			if err == io.EOF {
				// No data and no writer attached right now.
				time.Sleep(n.idleWait)
				continue
			}
			// A torn record; drop it and resync on the next write.
			log.Warnf("Listener read failed: %v", err)
			time.Sleep(n.idleWait)
			continue
		}

		var upd update.Update
		if err := upd.UnmarshalBinary(buf); err != nil {
			log.Errorf("Listener: bad record: %v", err)
			continue
		}
		n.received.Append(upd)

		msg := fmt.Sprintf("[Received update from %s] Line %d, cols %d-%d, %q -> %q @ %s",
			upd.UserID, upd.Line, upd.StartCol, upd.EndCol, upd.OldText, upd.NewText, upd.Timestamp)
		n.notes.Append(msg)
		n.printer.Print(console.Green + msg + console.Reset)

		if err := n.Engine.TryMerge(); err != nil {
			log.Errorf("Merge failed: %v", err)
		}
	}
}
