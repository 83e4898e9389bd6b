package storage

import (
	"fmt"

	"github.com/vocdoni/paillier-tally/crypto/paillier/threshold"
	"github.com/vocdoni/paillier-tally/types"
)

// SetParams stores the public threshold parameters of an election. They
// can only be written once.
func (s *Storage) SetParams(id types.ElectionID, params *threshold.Params) error {
	if err := params.Validate(); err != nil {
		return err
	}
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	exists, err := s.hasArtifact(paramsPrefix, id.Bytes())
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("params of election %s: %w", id, ErrAlreadyExists)
	}
	return s.setArtifact(paramsPrefix, id.Bytes(), params)
}

// Params returns the threshold parameters of an election, or ErrNotFound.
func (s *Storage) Params(id types.ElectionID) (*threshold.Params, error) {
	p := &threshold.Params{}
	if err := s.getArtifact(paramsPrefix, id.Bytes(), p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListElections returns the ids of every election with stored parameters.
func (s *Storage) ListElections() ([]types.ElectionID, error) {
	keys, err := s.listArtifacts(paramsPrefix)
	if err != nil {
		return nil, err
	}
	ids := make([]types.ElectionID, 0, len(keys))
	for _, k := range keys {
		var id types.ElectionID
		if err := id.SetBytes(k); err != nil {
			return nil, fmt.Errorf("invalid election key %x: %w", k, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
