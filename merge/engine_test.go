package merge

import (
	"math/rand"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"synctext/datamodel/document"
	"synctext/datamodel/update"
	"synctext/datastore/docfile"
	"synctext/helper/snapshot"
)

type fixture struct {
	engine   *Engine
	docs     *docfile.Store
	pending  *snapshot.Buffer[update.Update]
	received *snapshot.Buffer[update.Update]
	notes    *snapshot.Log[string]
}

func newFixture(t *testing.T, threshold int, lines []string) *fixture {
	t.Helper()

	docs, err := docfile.New(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, docs.Store("me", document.New(lines)))

	f := &fixture{
		docs:     docs,
		pending:  snapshot.NewBuffer[update.Update](),
		received: snapshot.NewBuffer[update.Update](),
		notes:    snapshot.NewLog[string](5),
	}
	f.engine = NewEngine("me", docs, f.pending, f.received, f.notes, threshold)
	return f
}

func (f *fixture) lines(t *testing.T) []string {
	t.Helper()
	doc, err := f.docs.Load("me")
	require.NoError(t, err)
	return doc.Lines
}

func replaceAt(line, start, end int32, oldText, newText, user string, ts int64) update.Update {
	return update.NewReplace(line, start, end, oldText, newText, user, time.Unix(ts, 0))
}

func TestMergeWithEmptyBuffersIsIdempotent(t *testing.T) {
	f := newFixture(t, 1, []string{"untouched"})

	require.NoError(t, f.engine.TryMerge())
	assert.Equal(t, []string{"untouched"}, f.lines(t))
	assert.Zero(t, f.notes.Len())
}

func TestBelowThresholdDoesNothing(t *testing.T) {
	f := newFixture(t, 5, []string{"hello"})

	f.pending.Append(replaceAt(0, 0, 5, "hello", "howdy", "me", 100))
	require.NoError(t, f.engine.TryMerge())

	assert.Equal(t, []string{"hello"}, f.lines(t))
	assert.Equal(t, 1, f.pending.Len())
}

func TestLastWriterWins(t *testing.T) {
	f := newFixture(t, 1, []string{"base line"})

	f.received.Append(replaceAt(0, 0, 4, "base", "AAAA", "a", 100))
	f.received.Append(replaceAt(0, 0, 4, "base", "BBBB", "b", 200))
	require.NoError(t, f.engine.TryMerge())

	assert.Equal(t, []string{"BBBB line"}, f.lines(t))
	assert.Zero(t, f.received.Len(), "received buffer must be cleared")
}

func TestTieBreakPrefersSmallerUserID(t *testing.T) {
	f := newFixture(t, 1, []string{"base line"})

	f.received.Append(replaceAt(0, 0, 4, "base", "BOBS", "bob", 100))
	f.received.Append(replaceAt(0, 0, 4, "base", "ALIC", "alice", 100))
	require.NoError(t, f.engine.TryMerge())

	assert.Equal(t, []string{"ALIC line"}, f.lines(t))
}

func TestNonOverlappingUpdatesBothApply(t *testing.T) {
	a := replaceAt(0, 0, 3, "one", "ONE", "a", 100)
	b := replaceAt(0, 4, 7, "two", "TWO", "b", 200)

	for _, ordered := range [][]update.Update{{a, b}, {b, a}} {
		f := newFixture(t, 1, []string{"one two"})
		for _, u := range ordered {
			f.received.Append(u)
		}
		require.NoError(t, f.engine.TryMerge())
		assert.Equal(t, []string{"ONE TWO"}, f.lines(t))
	}
}

func TestMergeIsOrderIndependent(t *testing.T) {
	updates := []update.Update{
		replaceAt(0, 0, 2, "he", "HE", "a", 300),
		replaceAt(0, 1, 4, "ell", "xyz", "b", 200),
		replaceAt(0, 3, 5, "lo", "!!", "c", 100),
		replaceAt(1, 0, 5, "world", "earth", "d", 250),
		replaceAt(1, 0, 5, "world", "pluto", "e", 250),
	}

	var want []string
	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		shuffled := make([]update.Update, len(updates))
		copy(shuffled, updates)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		f := newFixture(t, 1, []string{"hello", "world"})
		for _, u := range shuffled {
			f.received.Append(u)
		}
		require.NoError(t, f.engine.TryMerge())

		got := f.lines(t)
		if trial == 0 {
			want = got
			continue
		}
		require.Equal(t, want, got, "merge result depends on insertion order")
	}
}

func TestDocumentExtendedToHighestLine(t *testing.T) {
	f := newFixture(t, 1, []string{"only"})

	f.received.Append(replaceAt(4, 0, 0, "", "far away", "a", 100))
	require.NoError(t, f.engine.TryMerge())

	assert.Equal(t, []string{"only", "", "", "", "far away"}, f.lines(t))
}

func TestExplicitBatchMergesWithReceived(t *testing.T) {
	f := newFixture(t, 5, []string{"aaaa bbbb"})

	f.received.Append(replaceAt(0, 5, 9, "bbbb", "RECV", "peer", 100))

	batch := []update.Update{
		replaceAt(0, 0, 4, "aaaa", "MINE", "me", 200),
		replaceAt(1, 0, 0, "", "one", "me", 200),
		replaceAt(2, 0, 0, "", "two", "me", 200),
		replaceAt(3, 0, 0, "", "three", "me", 200),
	}
	require.NoError(t, f.engine.TryMerge(batch...))

	assert.Equal(t, []string{"MINE RECV", "one", "two", "three"}, f.lines(t))
	assert.Zero(t, f.received.Len())
	assert.Equal(t, 1, f.notes.Len())
}

func TestDocumentIOFailurePreservesUpdates(t *testing.T) {
	f := newFixture(t, 1, []string{"hello"})

	// Force the document load to fail by making the path a directory
	// containing something.
	require.NoError(t, newBadDocPath(f.docs.Path("me")))

	u := replaceAt(0, 0, 5, "hello", "howdy", "me", 100)
	err := f.engine.TryMerge(u)
	require.Error(t, err)

	// The explicit batch is requeued for the next trigger.
	assert.Equal(t, 1, f.pending.Len())
}

// newBadDocPath replaces the document file with a directory so reads
// fail with something other than "not exist".
func newBadDocPath(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return os.Mkdir(path, 0755)
}
