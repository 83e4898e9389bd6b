package storage

import (
	"fmt"

	"github.com/vocdoni/paillier-tally/tally"
	"github.com/vocdoni/paillier-tally/types"
)

// SetResult stores the decrypted result of an election. It can only be
// written once.
func (s *Storage) SetResult(id types.ElectionID, res *tally.Result) error {
	if res == nil {
		return fmt.Errorf("nil result")
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	exists, err := s.hasArtifact(resultPrefix, id.Bytes())
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("result of election %s: %w", id, ErrAlreadyExists)
	}
	return s.setArtifact(resultPrefix, id.Bytes(), res)
}

// Result returns the decrypted result of an election, or ErrNotFound.
func (s *Storage) Result(id types.ElectionID) (*tally.Result, error) {
	res := &tally.Result{}
	if err := s.getArtifact(resultPrefix, id.Bytes(), res); err != nil {
		return nil, err
	}
	return res, nil
}
