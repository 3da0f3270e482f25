// Package state persists the current session status of a user as a
// single CBOR record. The record is overwritten on every refresh, it is
// a point-in-time status and never an edit history.
package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fxamacker/cbor/v2"
)

type Status struct {
	UserID        string    `cbor:"1,keyasint,omitempty"` // Session owner
	LineCount     int       `cbor:"2,keyasint,omitempty"` // Lines in the authoritative document
	LastMerge     time.Time `cbor:"3,keyasint,omitempty"` // Completion time of the most recent merge
	LastAppliedTS int64     `cbor:"4,keyasint,omitempty"` // Epoch seconds of the newest applied update
	Notifications []string  `cbor:"5,keyasint,omitempty"` // Recent notification lines, oldest first
}

type Store struct {
	basePath string
}

func New(basePath string) (*Store, error) {
	basePath = filepath.Clean(basePath)
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, err
	}
	return &Store{basePath: basePath}, nil
}

func (s *Store) path(userID string) string {
	return filepath.Join(s.basePath, userID+".status")
}

// Save overwrites the user's status record.
func (s *Store) Save(st *Status) error {
	data, err := cbor.Marshal(st)
	if err != nil {
		return fmt.Errorf("encode status: %w", err)
	}

	path := s.path(st.UserID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write status: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write status: %w", err)
	}
	return nil
}

// Load reads the user's status record.
func (s *Store) Load(userID string) (*Status, error) {
	data, err := os.ReadFile(s.path(userID))
	if err != nil {
		return nil, err
	}

	st := &Status{}
	if err := cbor.Unmarshal(data, st); err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return st, nil
}
