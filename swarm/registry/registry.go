// Package registry implements the process-shared user registry: a
// fixed-size table {count, user id slots} memory-mapped from a
// well-known file so every participating process on the machine sees
// the same view. No cross-process lock is taken; the table is tiny and
// registration is idempotent.
package registry

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	log "github.com/sirupsen/logrus"

	"synctext/net/fifo"
)

const (
	// MaxUsers is the fixed capacity of the registry table.
	MaxUsers = 5

	userIDSize = 32
	headerSize = 4
	regionSize = headerSize + MaxUsers*userIDSize
)

var ErrRegistryFull = fmt.Errorf("registry: all %d user slots taken", MaxUsers)

// Peer is one registered user together with its resolved channel
// address.
type Peer struct {
	UserID  string
	Address string
}

// Registry is an explicit handle on the shared table. Open it once at
// startup and Close it at teardown; it is not an ambient global.
type Registry struct {
	f       *os.File
	mem     []byte
	pipeDir string
}

// Open maps the shared registry file at path, creating and sizing it if
// needed. pipeDir is the directory channel addresses resolve into.
func Open(path, pipeDir string) (*Registry, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, 0666)
	if err != nil {
		return nil, fmt.Errorf("open registry %s: %w", path, err)
	}
	if err := f.Truncate(regionSize); err != nil {
		f.Close()
		return nil, fmt.Errorf("size registry %s: %w", path, err)
	}

	mem, err := unix.Mmap(int(f.Fd()), 0, regionSize, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("mmap registry %s: %w", path, err)
	}

	log.Infof("Opened shared registry at %s", path)

	return &Registry{f: f, mem: mem, pipeDir: pipeDir}, nil
}

func (r *Registry) Close() error {
	if err := unix.Munmap(r.mem); err != nil {
		r.f.Close()
		return err
	}
	return r.f.Close()
}

// count reads the user count, healing a corrupted value by resetting
// the table to empty.
func (r *Registry) count() int32 {
	c := int32(binary.LittleEndian.Uint32(r.mem[:headerSize]))
	if c < 0 || c > MaxUsers {
		log.Warnf("Registry count %d out of bounds, resetting to empty", c)
		r.setCount(0)
		return 0
	}
	return c
}

func (r *Registry) setCount(c int32) {
	binary.LittleEndian.PutUint32(r.mem[:headerSize], uint32(c))
}

func (r *Registry) slot(i int32) []byte {
	off := headerSize + i*userIDSize
	return r.mem[off : off+userIDSize]
}

func (r *Registry) slotID(i int32) string {
	b := r.slot(i)
	if n := bytes.IndexByte(b, 0); n >= 0 {
		b = b[:n]
	}
	return string(b)
}

// Register adds userID to the table if not already present. The id is
// silently truncated to the slot size.
func (r *Registry) Register(userID string) error {
	if len(userID) > userIDSize {
		userID = userID[:userIDSize]
	}

	c := r.count()
	for i := int32(0); i < c; i++ {
		if r.slotID(i) == userID {
			log.Debugf("User %s already registered", userID)
			return nil
		}
	}
	if c >= MaxUsers {
		return ErrRegistryFull
	}

	s := r.slot(c)
	for i := range s {
		s[i] = 0
	}
	copy(s, userID)
	r.setCount(c + 1)

	log.Infof("Registered user %s (%d of %d slots used)", userID, c+1, MaxUsers)
	return nil
}

// Users enumerates all registered user ids.
func (r *Registry) Users() []string {
	c := r.count()
	users := make([]string, 0, c)
	for i := int32(0); i < c; i++ {
		users = append(users, r.slotID(i))
	}
	return users
}

// Peers enumerates every registered user except selfID, with each id
// resolved to its channel address.
func (r *Registry) Peers(selfID string) []Peer {
	var peers []Peer
	for _, id := range r.Users() {
		if id == selfID {
			continue
		}
		peers = append(peers, Peer{UserID: id, Address: fifo.Path(r.pipeDir, id)})
	}
	return peers
}
