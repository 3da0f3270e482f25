package fifo

import (
	"bytes"
	"io"
	"testing"
	"time"
)

func TestWriteRecordReachesReader(t *testing.T) {
	ch, err := Create(t.TempDir(), "alice")
	if err != nil {
		t.Fatal(err)
	}

	r, err := ch.OpenReader()
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	want := bytes.Repeat([]byte{0xAB}, 64)
	if err := ch.WriteRecord(want); err != nil {
		t.Fatal(err)
	}

	got := make([]byte, len(want))
	if _, err := io.ReadFull(r, got); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Fatal("record corrupted in transit")
	}
}

func TestWriteRecordWithoutReaderFailsFast(t *testing.T) {
	ch, err := Create(t.TempDir(), "bob")
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		done <- ch.WriteRecord([]byte("dropped"))
	}()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected an error with no reader attached")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("write blocked with no reader attached")
	}
}

func TestCreateToleratesExistingPipe(t *testing.T) {
	dir := t.TempDir()
	if _, err := Create(dir, "carol"); err != nil {
		t.Fatal(err)
	}
	if _, err := Create(dir, "carol"); err != nil {
		t.Fatal(err)
	}
}

func TestPathIsDeterministic(t *testing.T) {
	if Path("/tmp", "alice") != Path("/tmp", "alice") {
		t.Fatal("path derivation is not deterministic")
	}
	if Path("/tmp", "alice") == Path("/tmp", "bob") {
		t.Fatal("distinct users share a channel address")
	}
}
