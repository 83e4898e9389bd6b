package state

import (
	"bytes"
	"fmt"

	"github.com/vocdoni/arbo"
	"github.com/vocdoni/paillier-tally/crypto/paillier"
	"github.com/vocdoni/paillier-tally/tally"
	"github.com/vocdoni/paillier-tally/types"
)

// Proof is an inclusion proof of a leaf in the result tree.
type Proof struct {
	Root     types.HexBytes `json:"root"`
	Key      types.HexBytes `json:"key"`
	Value    types.HexBytes `json:"value"`
	Siblings types.HexBytes `json:"siblings"`
}

func (s *State) genProof(key []byte) (*Proof, error) {
	committed, err := s.Committed()
	if err != nil {
		return nil, err
	}
	if !committed {
		return nil, ErrNotCommitted
	}
	root, err := s.tree.Root()
	if err != nil {
		return nil, err
	}
	leafK, leafV, siblings, existence, err := s.tree.GenProof(key)
	if err != nil {
		return nil, err
	}
	if !existence {
		return nil, fmt.Errorf("%w: key %x not in tree", ErrInvalidProof, key)
	}
	return &Proof{Root: root, Key: leafK, Value: leafV, Siblings: siblings}, nil
}

// GenProof returns the inclusion proof of a candidate's ciphertext digest.
func (s *State) GenProof(id tally.CandidateID) (*Proof, error) {
	return s.genProof(CandidateKey(id))
}

// GenBallotsProof returns the inclusion proof of the ballot count.
func (s *State) GenBallotsProof() (*Proof, error) {
	return s.genProof(BallotsKey())
}

// VerifyProof checks the proof against its own root.
func VerifyProof(p *Proof) error {
	if p == nil {
		return ErrInvalidProof
	}
	ok, err := arbo.CheckProof(hashFunc, p.Key, p.Value, p.Root, p.Siblings)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidProof, err)
	}
	if !ok {
		return ErrInvalidProof
	}
	return nil
}

// VerifyCiphertext checks that ct is the committed final ciphertext of
// the candidate under root.
func VerifyCiphertext(root []byte, id tally.CandidateID, ct *paillier.Ciphertext, p *Proof) error {
	if p == nil || !bytes.Equal(p.Root, root) {
		return fmt.Errorf("%w: root mismatch", ErrInvalidProof)
	}
	if !bytes.Equal(p.Key, CandidateKey(id)) {
		return fmt.Errorf("%w: proof is for another leaf", ErrInvalidProof)
	}
	if !bytes.Equal(p.Value, ct.Digest()) {
		return fmt.Errorf("%w: ciphertext digest mismatch", ErrInvalidProof)
	}
	return VerifyProof(p)
}

// VerifyBallots checks that ballots is the committed ballot count under
// root.
func VerifyBallots(root []byte, ballots uint64, p *Proof) error {
	if p == nil || !bytes.Equal(p.Root, root) {
		return fmt.Errorf("%w: root mismatch", ErrInvalidProof)
	}
	if !bytes.Equal(p.Key, BallotsKey()) || !bytes.Equal(p.Value, ballotsValue(ballots)) {
		return fmt.Errorf("%w: ballot count mismatch", ErrInvalidProof)
	}
	return VerifyProof(p)
}
