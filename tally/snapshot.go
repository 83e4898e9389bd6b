package tally

import (
	"fmt"

	"github.com/vocdoni/paillier-tally/crypto/paillier"
)

// Snapshot is the serializable state of a tally, used to persist a running
// tally and resume it later.
type Snapshot struct {
	Candidates  []CandidateID          `json:"candidates" cbor:"1,keyasint"`
	Ciphertexts []*paillier.Ciphertext `json:"ciphertexts" cbor:"2,keyasint"`
	Ballots     uint64                 `json:"ballots" cbor:"3,keyasint"`
	Closed      bool                   `json:"closed" cbor:"4,keyasint"`
}

// Snapshot returns a consistent copy of the tally state.
func (t *Tally) Snapshot() *Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := &Snapshot{
		Candidates:  t.Candidates(),
		Ciphertexts: make([]*paillier.Ciphertext, len(t.candidates)),
		Ballots:     t.ballots.Load(),
		Closed:      t.closed,
	}
	for i, id := range t.candidates {
		s.Ciphertexts[i] = t.entries[id].ct.Clone()
	}
	return s
}

// Snapshot returns the serializable form of the final tally.
func (f *Final) Snapshot() *Snapshot {
	s := &Snapshot{
		Candidates:  f.Candidates(),
		Ciphertexts: make([]*paillier.Ciphertext, len(f.candidates)),
		Ballots:     f.ballots,
		Closed:      true,
	}
	for i, id := range f.candidates {
		s.Ciphertexts[i] = f.ciphertexts[id].Clone()
	}
	return s
}

// Restore rebuilds a tally from a snapshot. Every ciphertext is validated
// against pk. A closed snapshot yields a finalized tally.
func Restore(pk *paillier.PublicKey, s *Snapshot) (*Tally, error) {
	if pk == nil || pk.N == nil {
		return nil, paillier.ErrInvalidPublicKey
	}
	if s == nil || len(s.Candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if len(s.Candidates) != len(s.Ciphertexts) {
		return nil, fmt.Errorf("snapshot has %d candidates and %d ciphertexts",
			len(s.Candidates), len(s.Ciphertexts))
	}
	t := &Tally{
		pk:         pk,
		candidates: make([]CandidateID, 0, len(s.Candidates)),
		entries:    make(map[CandidateID]*entry, len(s.Candidates)),
	}
	for i, id := range s.Candidates {
		if _, ok := t.entries[id]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateCandidate, id)
		}
		if err := pk.ValidateCiphertext(s.Ciphertexts[i]); err != nil {
			return nil, fmt.Errorf("candidate %d: %w", id, err)
		}
		t.candidates = append(t.candidates, id)
		t.entries[id] = &entry{ct: s.Ciphertexts[i].Clone()}
	}
	t.ballots.Store(s.Ballots)
	if s.Closed {
		t.Finalize()
	}
	return t, nil
}

// FinalFromSnapshot rebuilds the final tally of a closed snapshot.
func FinalFromSnapshot(pk *paillier.PublicKey, s *Snapshot) (*Final, error) {
	if s != nil && !s.Closed {
		return nil, fmt.Errorf("snapshot of an open tally")
	}
	t, err := Restore(pk, s)
	if err != nil {
		return nil, err
	}
	return t.Finalize(), nil
}
