// Package docfile persists per-user documents as plain text files,
// one newline-terminated line per document line.
package docfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"synctext/datamodel/document"
)

// seedLines is the document written for a user that has none yet.
var seedLines = []string{
	"Hello World",
	"This is a collaborative editor",
	"Welcome to SyncText",
	"Edit this document and see real-time updates",
}

type Store struct {
	basePath string
}

func New(basePath string) (*Store, error) {
	basePath = filepath.Clean(basePath)

	if err := ensureDir(basePath); err != nil {
		return nil, err
	}

	log.Infof("Opened document store at %s", basePath)

	return &Store{basePath: basePath}, nil
}

// ensureDir checks if a directory exists at the given path, and if not, creates it.
func ensureDir(path string) error {
	stat, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return os.MkdirAll(path, 0755)
		}
		return err
	}
	if !stat.IsDir() {
		return &os.PathError{Op: "ensureDir", Path: path, Err: os.ErrExist}
	}
	return nil
}

// Path returns the document file path for a user.
func (s *Store) Path(userID string) string {
	return filepath.Join(s.basePath, userID+"_doc.txt")
}

// Load reads the user's document. A missing file yields an empty
// document, any other failure is an IO error the caller must treat as
// fatal for the current merge cycle.
func (s *Store) Load(userID string) (*document.Document, error) {
	data, err := os.ReadFile(s.Path(userID))
	if err != nil {
		if os.IsNotExist(err) {
			return document.New(nil), nil
		}
		return nil, fmt.Errorf("read document: %w", err)
	}

	var lines []string
	if len(data) > 0 {
		lines = strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	}
	return document.New(lines), nil
}

// Store fully rewrites the user's document. The new content is written
// to a temporary file and renamed into place so readers never observe a
// partially written document.
func (s *Store) Store(userID string, doc *document.Document) error {
	var b strings.Builder
	for _, line := range doc.Lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	path := s.Path(userID)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("write document: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("write document: %w", err)
	}
	return nil
}

// ModTime returns the document file's modification time.
func (s *Store) ModTime(userID string) (time.Time, error) {
	stat, err := os.Stat(s.Path(userID))
	if err != nil {
		return time.Time{}, err
	}
	return stat.ModTime(), nil
}

// Seed writes the initial welcome document if the user has none.
func (s *Store) Seed(userID string) error {
	if _, err := os.Stat(s.Path(userID)); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return err
	}

	log.Infof("Seeding initial document for %s", userID)
	return s.Store(userID, document.New(seedLines))
}
