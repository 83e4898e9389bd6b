// Package state commits the final tally of an election into an arbo Merkle
// tree, so that anyone holding the root can check that the ciphertexts
// handed to the trustees are the published ones.
//
// Leaves map each candidate to the Keccak-256 digest of its final
// ciphertext; one extra leaf holds the number of recorded ballots.
package state

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/vocdoni/arbo"
	"github.com/vocdoni/paillier-tally/log"
	"github.com/vocdoni/paillier-tally/tally"
	"github.com/vocdoni/paillier-tally/types"
	"go.vocdoni.io/dvote/db"
	"go.vocdoni.io/dvote/db/prefixeddb"
)

const (
	leafBallots   byte = 0x00
	leafCandidate byte = 0x01
)

var (
	// ErrAlreadyCommitted is returned when committing a second final tally.
	ErrAlreadyCommitted = errors.New("state: tally already committed")
	// ErrNotCommitted is returned when asking for proofs before Commit.
	ErrNotCommitted = errors.New("state: tally not committed")
	// ErrInvalidProof is returned when a proof does not verify.
	ErrInvalidProof = errors.New("state: invalid proof")

	statePrefix = []byte("st/")

	// hashFunc is the hash function used in the result tree.
	hashFunc = arbo.HashFunctionSha256
)

// State is the result commitment tree of one election.
type State struct {
	electionID types.ElectionID
	db         db.Database
	tree       *arbo.Tree
}

// New creates or opens the commitment tree of an election.
func New(database db.Database, id types.ElectionID) (*State, error) {
	prefix := append(bytes.Clone(statePrefix), id.Bytes()...)
	pdb := prefixeddb.NewPrefixedDatabase(database, prefix)
	tree, err := arbo.NewTree(arbo.Config{
		Database:     pdb,
		MaxLevels:    types.ResultTreeMaxLevels,
		HashFunction: hashFunc,
	})
	if err != nil {
		return nil, fmt.Errorf("open result tree: %w", err)
	}
	return &State{electionID: id, db: pdb, tree: tree}, nil
}

// CandidateKey returns the tree key of a candidate leaf.
func CandidateKey(id tally.CandidateID) []byte {
	key := make([]byte, types.ResultTreeKeyLen)
	key[0] = leafCandidate
	binary.BigEndian.PutUint64(key[1:], uint64(id))
	return key
}

// BallotsKey returns the tree key of the ballot count leaf.
func BallotsKey() []byte {
	key := make([]byte, types.ResultTreeKeyLen)
	key[0] = leafBallots
	return key
}

func ballotsValue(n uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, n)
}

// Committed reports whether a final tally was committed.
func (s *State) Committed() (bool, error) {
	_, _, err := s.tree.Get(BallotsKey())
	if errors.Is(err, arbo.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Commit adds the final tally to the tree and returns the new root. All
// leaves are written in a single transaction, so a failed commit leaves the
// tree empty and can be retried. A tree only ever holds one final tally.
func (s *State) Commit(final *tally.Final) ([]byte, error) {
	committed, err := s.Committed()
	if err != nil {
		return nil, err
	}
	if committed {
		return nil, ErrAlreadyCommitted
	}
	candidates := final.Candidates()
	keys := make([][]byte, 0, len(candidates)+1)
	values := make([][]byte, 0, len(candidates)+1)
	for _, id := range candidates {
		ct, _ := final.Ciphertext(id)
		keys = append(keys, CandidateKey(id))
		values = append(values, ct.Digest())
	}
	keys = append(keys, BallotsKey())
	values = append(values, ballotsValue(final.Ballots()))

	wTx := s.db.WriteTx()
	defer wTx.Discard()
	invalid, err := s.tree.AddBatchWithTx(wTx, keys, values)
	if err != nil {
		return nil, fmt.Errorf("add final tally: %w", err)
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("add leaf %x: %w", keys[invalid[0].Index], invalid[0].Error)
	}
	if err := wTx.Commit(); err != nil {
		return nil, fmt.Errorf("commit final tally: %w", err)
	}
	root, err := s.tree.Root()
	if err != nil {
		return nil, err
	}
	log.Infow("final tally committed",
		"election", s.electionID.String(),
		"root", types.HexBytes(root).String(),
		"ballots", final.Ballots())
	return root, nil
}

// Verify checks that final is the committed tally: every candidate
// ciphertext and the ballot count must match their leaves under the
// current root. It returns ErrNotCommitted on an empty tree and
// ErrInvalidProof on any mismatch.
func (s *State) Verify(final *tally.Final) error {
	committed, err := s.Committed()
	if err != nil {
		return err
	}
	if !committed {
		return ErrNotCommitted
	}
	root, err := s.Root()
	if err != nil {
		return err
	}
	for _, cid := range final.Candidates() {
		proof, err := s.GenProof(cid)
		if err != nil {
			return fmt.Errorf("proof for candidate %d: %w", cid, err)
		}
		ct, _ := final.Ciphertext(cid)
		if err := VerifyCiphertext(root, cid, ct, proof); err != nil {
			return fmt.Errorf("candidate %d: %w", cid, err)
		}
	}
	proof, err := s.GenBallotsProof()
	if err != nil {
		return err
	}
	return VerifyBallots(root, final.Ballots(), proof)
}

// Root returns the current root of the tree.
func (s *State) Root() ([]byte, error) {
	return s.tree.Root()
}
