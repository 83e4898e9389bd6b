// Package storage keeps the public artifacts of each election in a prefixed
// key-value store. Artifacts are CBOR encoded with core deterministic
// options. The following prefixes are used:
//   - 'p/' for threshold parameters (public key, trustees, threshold)
//   - 't/' for tally snapshots
//   - 'd/' for trustee partial decryptions
//   - 'r/' for decrypted results
//
// Keys are the 16 bytes of the election id, followed by the 2-byte trustee
// index for partial decryptions. Private keys and trustee shares are never
// stored.
package storage

import (
	"errors"
	"sync"

	"github.com/vocdoni/paillier-tally/log"
	"go.vocdoni.io/dvote/db"
)

var (
	// ErrNotFound is returned when the requested artifact does not exist.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when writing an artifact that must only
	// be written once.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidPartials is returned when a trustee submission does not
	// match the election it is pushed to.
	ErrInvalidPartials = errors.New("invalid partial decryptions")

	paramsPrefix  = []byte("p/")
	tallyPrefix   = []byte("t/")
	partialPrefix = []byte("d/")
	resultPrefix  = []byte("r/")
)

// Storage wraps the database with typed accessors for election artifacts.
type Storage struct {
	db db.Database
	// globalLock serializes check-then-write sequences.
	globalLock sync.Mutex
}

// New creates a new Storage instance.
func New(db db.Database) *Storage {
	return &Storage{db: db}
}

// Close closes the storage.
func (s *Storage) Close() {
	if err := s.db.Close(); err != nil {
		log.Warnw("error closing storage", "error", err.Error())
	}
}
