package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/vocdoni/paillier-tally/crypto/paillier/threshold"
	"github.com/vocdoni/paillier-tally/log"
	"github.com/vocdoni/paillier-tally/tally"
	"github.com/vocdoni/paillier-tally/types"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

func partialKey(id types.ElectionID, trustee int) []byte {
	key := id.Bytes()
	return binary.BigEndian.AppendUint16(key, uint16(trustee))
}

// PushPartialDecryption stores one trustee's partial decryptions of the
// final tally. The election must have its parameters and a closed tally
// stored: the trustee index must be one of the election trustees and there
// must be exactly one partial per candidate, made against the stored final
// ciphertext. A trustee can only submit once per election.
func (s *Storage) PushPartialDecryption(id types.ElectionID, trustee int, partials tally.TrusteePartials) error {
	s.globalLock.Lock()
	defer s.globalLock.Unlock()
	params := &threshold.Params{}
	if err := s.getArtifact(paramsPrefix, id.Bytes(), params); err != nil {
		return fmt.Errorf("params of election %s: %w", id, err)
	}
	if trustee < 1 || trustee > params.Trustees {
		return fmt.Errorf("%w: unknown trustee %d of %d", ErrInvalidPartials, trustee, params.Trustees)
	}
	snap := &tally.Snapshot{}
	if err := s.getArtifact(tallyPrefix, id.Bytes(), snap); err != nil {
		return fmt.Errorf("tally of election %s: %w", id, err)
	}
	if !snap.Closed {
		return fmt.Errorf("%w: tally of election %s is open", ErrInvalidPartials, id)
	}
	if err := checkPartials(snap, trustee, partials); err != nil {
		return err
	}
	key := partialKey(id, trustee)
	exists, err := s.hasArtifact(partialPrefix, key)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("partials of trustee %d: %w", trustee, ErrAlreadyExists)
	}
	if err := s.setArtifact(partialPrefix, key, partials); err != nil {
		return err
	}
	log.Debugw("partial decryptions stored", "election", id.String(), "trustee", trustee)
	return nil
}

// checkPartials matches a trustee submission against the closed snapshot.
func checkPartials(snap *tally.Snapshot, trustee int, partials tally.TrusteePartials) error {
	if len(partials) != len(snap.Candidates) || len(snap.Candidates) != len(snap.Ciphertexts) {
		return fmt.Errorf("%w: got %d partials for %d candidates",
			ErrInvalidPartials, len(partials), len(snap.Candidates))
	}
	for i, cid := range snap.Candidates {
		pd, ok := partials[cid]
		if !ok || pd == nil || pd.Value == nil {
			return fmt.Errorf("%w: missing partial for candidate %d", ErrInvalidPartials, cid)
		}
		if pd.TrusteeIndex != trustee {
			return fmt.Errorf("%w: partial for candidate %d does not belong to trustee %d",
				ErrInvalidPartials, cid, trustee)
		}
		if snap.Ciphertexts[i] == nil || !bytes.Equal(pd.Digest, snap.Ciphertexts[i].Digest()) {
			return fmt.Errorf("%w: partial for candidate %d made on another ciphertext",
				ErrInvalidPartials, cid)
		}
	}
	return nil
}

// PartialDecryptions returns every trustee submission for an election,
// ordered by trustee index. It returns ErrNotFound if there is none.
func (s *Storage) PartialDecryptions(id types.ElectionID) ([]tally.TrusteePartials, error) {
	rd := prefixeddb.NewPrefixedReader(s.db, partialPrefix)
	var (
		res    []tally.TrusteePartials
		decErr error
	)
	if err := rd.Iterate(id.Bytes(), func(k, v []byte) bool {
		tp := tally.TrusteePartials{}
		if err := decodeArtifact(v, &tp); err != nil {
			decErr = fmt.Errorf("decode partials %x: %w", k, err)
			return false
		}
		res = append(res, tp)
		return true
	}); err != nil {
		return nil, fmt.Errorf("iterate partials: %w", err)
	}
	if decErr != nil {
		return nil, decErr
	}
	if len(res) == 0 {
		return nil, ErrNotFound
	}
	return res, nil
}
