package storage

import (
	"errors"
	"fmt"

	"github.com/vocdoni/paillier-tally/tally"
	"github.com/vocdoni/paillier-tally/types"
)

// SetTally stores the latest snapshot of an election tally. Once a closed
// snapshot is stored it cannot be replaced.
func (s *Storage) SetTally(id types.ElectionID, snap *tally.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("nil tally snapshot")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	prev := &tally.Snapshot{}
	err := s.getArtifact(tallyPrefix, id.Bytes(), prev)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if err == nil && prev.Closed {
		return fmt.Errorf("closed tally of election %s: %w", id, ErrAlreadyExists)
	}
	return s.setArtifact(tallyPrefix, id.Bytes(), snap)
}

// Tally returns the stored tally snapshot of an election, or ErrNotFound.
func (s *Storage) Tally(id types.ElectionID) (*tally.Snapshot, error) {
	snap := &tally.Snapshot{}
	if err := s.getArtifact(tallyPrefix, id.Bytes(), snap); err != nil {
		return nil, err
	}
	return snap, nil
}
