// Package merge reconciles pending and received updates into the
// authoritative document using last-writer-wins conflict resolution.
package merge

import (
	"fmt"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"

	log "github.com/sirupsen/logrus"

	"synctext/datamodel/document"
	"synctext/datamodel/update"
	"synctext/datastore/docfile"
	"synctext/helper/snapshot"
)

// DefaultThreshold is the combined buffer size at which a merge runs.
const DefaultThreshold = 5

// Engine combines the pending and received buffers, resolves conflicts
// by last-writer-wins and rewrites the document. The document has a
// single writer per process at a time: every apply runs under the
// engine mutex. The snapshot buffers themselves stay lock-free.
type Engine struct {
	userID    string
	docs      *docfile.Store
	pending   *snapshot.Buffer[update.Update]
	received  *snapshot.Buffer[update.Update]
	notes     *snapshot.Log[string]
	threshold int

	mu sync.Mutex
	sg singleflight.Group

	// onApplied is invoked after a successful merge with the rewritten
	// document and the newest applied timestamp, for display and status
	// refresh.
	onApplied func(doc *document.Document, latestTS int64)
}

func NewEngine(userID string, docs *docfile.Store, pending, received *snapshot.Buffer[update.Update], notes *snapshot.Log[string], threshold int) *Engine {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Engine{
		userID:    userID,
		docs:      docs,
		pending:   pending,
		received:  received,
		notes:     notes,
		threshold: threshold,
	}
}

func (e *Engine) OnApplied(fn func(doc *document.Document, latestTS int64)) {
	e.onApplied = fn
}

// TryMerge runs a merge if the combined size of the pending and
// received buffers plus the explicitly supplied in-flight batch reaches
// the threshold. The batch, when present, has already been drained from
// the pending buffer by the broadcast path and is folded in directly.
// Threshold checks with and without a batch deliberately mix "this
// batch" and "buffers plus batch" sizing; the behavior is kept as is.
func (e *Engine) TryMerge(batch ...update.Update) error {
	total := e.received.Len() + e.pending.Len() + len(batch)
	if total < e.threshold {
		return nil
	}

	if len(batch) == 0 {
		// Concurrent threshold triggers collapse into one merge; the
		// winner drains both buffers, so piggybacking is safe here.
		_, err, _ := e.sg.Do("merge", func() (interface{}, error) {
			return nil, e.apply(e.pending.Drain())
		})
		return err
	}

	local := make([]update.Update, 0, len(batch))
	local = append(local, batch...)
	local = append(local, e.pending.Drain()...)
	return e.apply(local)
}

// apply folds local plus everything received into the document and
// persists it. On a document IO failure the cycle aborts and every
// drained update is put back for retry on the next trigger.
func (e *Engine) apply(local []update.Update) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	doc, err := e.docs.Load(e.userID)
	if err != nil {
		e.requeuePending(local)
		return fmt.Errorf("merge aborted for %s: %w", e.userID, err)
	}

	received := e.received.Drain()
	all := make([]update.Update, 0, len(local)+len(received))
	all = append(all, local...)
	all = append(all, received...)
	if len(all) == 0 {
		return nil
	}

	maxLine := int32(-1)
	for i := range all {
		if all[i].Line > maxLine {
			maxLine = all[i].Line
		}
	}
	doc.ExtendThrough(maxLine)

	survivors := Resolve(all)
	byLine := make(map[int32][]update.Update)
	for _, u := range survivors {
		byLine[u.Line] = append(byLine[u.Line], u)
	}

	latest := int64(0)
	for line, ops := range byLine {
		applyLine(doc, line, ops)
		for i := range ops {
			if ops[i].TS > latest {
				latest = ops[i].TS
			}
		}
	}

	if err := e.docs.Store(e.userID, doc); err != nil {
		e.requeuePending(local)
		for i := range received {
			e.received.Append(received[i])
		}
		return fmt.Errorf("merge aborted for %s: %w", e.userID, err)
	}

	log.Debugf("Merge for %s applied %d of %d update(s), latest ts %d", e.userID, len(survivors), len(all), latest)
	e.notes.Append(fmt.Sprintf("[Merging complete] Applied %d update(s)", len(survivors)))

	if e.onApplied != nil {
		e.onApplied(doc, latest)
	}
	return nil
}

func (e *Engine) requeuePending(local []update.Update) {
	for i := range local {
		e.pending.Append(local[i])
	}
}

// Resolve eliminates the loser of every conflicting pair under the
// strict (TS, UserID) total order and returns the survivors. The set is
// visited strongest-first, so an update eliminated by a stronger one
// never gets to eliminate anything itself and the surviving set does
// not depend on the input order.
func Resolve(updates []update.Update) []update.Update {
	all := make([]update.Update, len(updates))
	copy(all, updates)
	sort.SliceStable(all, func(i, j int) bool {
		if all[i].TS != all[j].TS {
			return all[i].TS > all[j].TS
		}
		return all[i].UserID < all[j].UserID
	})

	keep := make([]bool, len(all))
	for i := range keep {
		keep[i] = true
	}

	for i := range all {
		if !keep[i] {
			continue
		}
		for j := i + 1; j < len(all); j++ {
			if !keep[j] {
				continue
			}
			if !all[i].ConflictsWith(&all[j]) {
				continue
			}
			if all[i].Supersedes(&all[j]) {
				keep[j] = false
			} else {
				keep[i] = false
				break
			}
		}
	}

	survivors := make([]update.Update, 0, len(all))
	for i := range all {
		if keep[i] {
			survivors = append(survivors, all[i])
		}
	}
	return survivors
}

// applyLine rewrites one line, applying its surviving updates right to
// left so earlier substitutions don't shift the column offsets of later
// ones.
func applyLine(doc *document.Document, line int32, ops []update.Update) {
	sort.Slice(ops, func(i, j int) bool {
		if ops[i].StartCol != ops[j].StartCol {
			return ops[i].StartCol > ops[j].StartCol
		}
		// Equal start columns cannot conflict here (the ranges would
		// overlap unless empty), order them by the total order key so
		// the result stays deterministic.
		return ops[i].Supersedes(&ops[j])
	})

	for i := range ops {
		doc.ReplaceRange(line, ops[i].StartCol, ops[i].EndCol, ops[i].NewText)
	}
}
