// Package node wires one collaborative editor process together: the
// shared registry, the inbound channel, the document store, the change
// detector and the merge engine.
package node

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	log "github.com/sirupsen/logrus"

	"synctext/config"
	"synctext/console"
	"synctext/datamodel/document"
	"synctext/datamodel/update"
	"synctext/datastore/docfile"
	"synctext/datastore/state"
	"synctext/helper/snapshot"
	"synctext/helper/timer"
	"synctext/merge"
	"synctext/net/fifo"
	"synctext/swarm/registry"
)

type Node struct {
	UserID string

	// Shared resources
	Registry *registry.Registry
	Channel  *fifo.Channel

	// Storage
	Docs   *docfile.Store
	Status *state.Store

	// Sync engine
	Engine   *merge.Engine
	pending  *snapshot.Buffer[update.Update]
	received *snapshot.Buffer[update.Update]
	notes    *snapshot.Log[string]
	printer  *console.Printer

	threshold    int
	pollInterval time.Duration
	idleWait     time.Duration

	// Owned by the poll loop.
	baseline []string
	lastMod  time.Time
}

// New opens every shared resource the process needs. Resource failures
// here are unrecoverable, callers terminate on error.
func New(cfg *config.Config, userID string) (*Node, error) {
	userID = update.Truncate(userID, update.MaxUserIDLen)

	reg, err := registry.Open(cfg.Paths.RegistryPath, cfg.Paths.PipeDir)
	if err != nil {
		return nil, err
	}
	if err := reg.Register(userID); err != nil {
		reg.Close()
		return nil, err
	}

	ch, err := fifo.Create(cfg.Paths.PipeDir, userID)
	if err != nil {
		reg.Close()
		return nil, err
	}

	docs, err := docfile.New(cfg.Paths.DocumentDir)
	if err != nil {
		reg.Close()
		return nil, err
	}

	status, err := state.New(cfg.Paths.DocumentDir)
	if err != nil {
		reg.Close()
		return nil, err
	}

	n := &Node{
		UserID:       userID,
		Registry:     reg,
		Channel:      ch,
		Docs:         docs,
		Status:       status,
		pending:      snapshot.NewBuffer[update.Update](),
		received:     snapshot.NewBuffer[update.Update](),
		notes:        snapshot.NewLog[string](cfg.Sync.MaxNotifications),
		printer:      console.NewPrinter(),
		threshold:    cfg.Sync.MergeThreshold,
		pollInterval: time.Duration(cfg.Sync.PollIntervalMs) * time.Millisecond,
		idleWait:     time.Duration(cfg.Sync.ListenerIdleWaitMs) * time.Millisecond,
	}

	n.Engine = merge.NewEngine(userID, docs, n.pending, n.received, n.notes, n.threshold)
	n.Engine.OnApplied(n.handleApplied)

	n.printer.Print(console.Cyan + "Registered user: " + console.Reset + userID)
	n.printer.Print("Active users: " + joinUsers(reg.Users()))

	return n, nil
}

func joinUsers(users []string) string {
	out := ""
	for i, u := range users {
		if i > 0 {
			out += ", "
		}
		out += u
	}
	return out
}

// Run starts the background listener and the document poll loop and
// blocks until the context is cancelled. Cancellation is external, in
// normal operation the process simply terminates.
func (n *Node) Run(ctx context.Context) error {
	doc, err := n.Docs.Load(n.UserID)
	if err != nil {
		return err
	}
	n.baseline = doc.Lines
	if mt, err := n.Docs.ModTime(n.UserID); err == nil {
		n.lastMod = mt
	}
	n.refreshDisplay(doc.Lines)

	wg, cctx := errgroup.WithContext(ctx)

	wg.Go(func() error {
		return n.runListener(cctx)
	})

	wg.Go(func() error {
		interval := &timer.Interval{Duration: n.pollInterval}
		return timer.RunWithTicker(cctx, "pollDocument", interval, n.pollDocument)
	})

	return wg.Wait()
}

// Close releases the shared resources: the inbound pipe is unlinked and
// the registry mapping dropped.
func (n *Node) Close() error {
	if err := n.Channel.Remove(); err != nil {
		log.Warnf("Failed to remove pipe: %v", err)
	}
	return n.Registry.Close()
}

// pollDocument checks the document's modification time and feeds any
// new content through the change detector. Stat and read failures are
// logged and retried on the next tick.
func (n *Node) pollDocument(ctx context.Context) error {
	mt, err := n.Docs.ModTime(n.UserID)
	if err != nil {
		log.Warnf("Failed to stat document: %v", err)
		return nil
	}
	if mt.Equal(n.lastMod) {
		return nil
	}
	n.lastMod = mt

	doc, err := n.Docs.Load(n.UserID)
	if err != nil {
		log.Errorf("Failed to read document: %v", err)
		return nil
	}

	n.refreshDisplay(doc.Lines)
	n.detectChanges(doc.Lines)
	return nil
}

func (n *Node) handleApplied(doc *document.Document, latestTS int64) {
	n.printer.Print(console.Magenta + "[Merging complete]" + console.Reset + " Applied updates.")
	n.refreshDisplay(doc.Lines)

	st := &state.Status{
		UserID:        n.UserID,
		LineCount:     len(doc.Lines),
		LastMerge:     time.Now(),
		LastAppliedTS: latestTS,
		Notifications: n.notes.Snapshot(),
	}
	if err := n.Status.Save(st); err != nil {
		log.Warnf("Failed to save session status: %v", err)
	}
}

func (n *Node) refreshDisplay(lines []string) {
	n.printer.RenderDocument(n.Docs.Path(n.UserID), lines, time.Now().Format(time.ANSIC), n.notes.Snapshot())
}
