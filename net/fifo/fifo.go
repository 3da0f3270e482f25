// Package fifo implements the local inter-process channel: one named
// pipe per user, addressed by a name derived from the user id.
// Senders open the write end non-blocking and drop the record if no
// reader is present or the pipe is full; the owning process holds the
// read end open for its lifetime.
package fifo

import (
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	log "github.com/sirupsen/logrus"
)

// Path derives the channel address for a user id.
func Path(dir, userID string) string {
	return filepath.Join(dir, "synctext_pipe_"+userID)
}

// Channel is a handle on a single named pipe.
type Channel struct {
	path string
}

// AtPath wraps an already resolved channel address.
func AtPath(path string) *Channel {
	return &Channel{path: path}
}

// Create makes the user's inbound pipe, tolerating one that already
// exists from a previous run.
func Create(dir, userID string) (*Channel, error) {
	p := Path(dir, userID)
	if err := unix.Mkfifo(p, 0666); err != nil && err != unix.EEXIST {
		return nil, fmt.Errorf("mkfifo %s: %w", p, err)
	}
	log.Infof("Pipe created: %s", p)
	return &Channel{path: p}, nil
}

func (c *Channel) Path() string {
	return c.path
}

// OpenReader opens the read end. The descriptor is opened non-blocking
// so the open never waits for a writer; the runtime poller then parks
// reads until data arrives, and a read against a writerless pipe
// reports io.EOF, which callers treat as "no data yet".
func (c *Channel) OpenReader() (*os.File, error) {
	f, err := os.OpenFile(c.path, os.O_RDONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", c.path, err)
	}
	return f, nil
}

// WriteRecord delivers one wire record with a non-blocking open and
// write. Any failure (no reader on the pipe, pipe full, pipe missing)
// is returned to the caller; the record is not retried.
func (c *Channel) WriteRecord(rec []byte) error {
	fd, err := unix.Open(c.path, unix.O_WRONLY|unix.O_NONBLOCK, 0)
	if err != nil {
		return fmt.Errorf("open %s: %w", c.path, err)
	}
	defer unix.Close(fd)

	n, err := unix.Write(fd, rec)
	if err != nil {
		return fmt.Errorf("write %s: %w", c.path, err)
	}
	if n != len(rec) {
		return fmt.Errorf("write %s: short write (%d of %d bytes)", c.path, n, len(rec))
	}
	return nil
}

// Remove unlinks the pipe.
func (c *Channel) Remove() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
