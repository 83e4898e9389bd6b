// Package tally aggregates votes into per-candidate Paillier ciphertexts
// and decrypts the final counts with a threshold of trustees.
//
// The running tally never holds a plaintext count: each vote multiplies the
// candidate's ciphertext by g, i.e. adds an encrypted one.
package tally

import (
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/vocdoni/paillier-tally/crypto/paillier"
	"github.com/vocdoni/paillier-tally/log"
)

var (
	// ErrTallyClosed is returned when recording a vote after Finalize.
	ErrTallyClosed = errors.New("tally: closed")
	// ErrUnknownCandidate is returned for candidates not in the ballot.
	ErrUnknownCandidate = errors.New("tally: unknown candidate")
	// ErrDuplicateCandidate is returned when a candidate is listed twice.
	ErrDuplicateCandidate = errors.New("tally: duplicate candidate")
	// ErrNoCandidates is returned when creating a tally without candidates.
	ErrNoCandidates = errors.New("tally: no candidates")

	voteIncrement = big.NewInt(1)
)

// CandidateID identifies a candidate within an election.
type CandidateID uint64

type entry struct {
	mu sync.Mutex
	ct *paillier.Ciphertext
}

// Tally is the running encrypted tally of an election. It is safe for
// concurrent use: votes for different candidates proceed in parallel and
// Finalize waits for in-flight votes.
type Tally struct {
	pk         *paillier.PublicKey
	candidates []CandidateID

	// mu is held for reading by RecordVote and for writing by Finalize.
	mu      sync.RWMutex
	closed  bool
	final   *Final
	entries map[CandidateID]*entry
	ballots atomic.Uint64
}

// New creates an open tally with an encryption of zero per candidate.
func New(pk *paillier.PublicKey, candidates []CandidateID) (*Tally, error) {
	if pk == nil || pk.N == nil {
		return nil, paillier.ErrInvalidPublicKey
	}
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	t := &Tally{
		pk:         pk,
		candidates: slices.Clone(candidates),
		entries:    make(map[CandidateID]*entry, len(candidates)),
	}
	for _, id := range candidates {
		if _, ok := t.entries[id]; ok {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateCandidate, id)
		}
		zero, err := pk.Encrypt(new(big.Int))
		if err != nil {
			return nil, fmt.Errorf("encrypt initial count: %w", err)
		}
		t.entries[id] = &entry{ct: zero}
	}
	log.Debugw("tally created", "candidates", len(candidates))
	return t, nil
}

// RecordVote adds one encrypted vote to the candidate. Abstentions are
// simply not recorded.
func (t *Tally) RecordVote(id CandidateID) error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		return ErrTallyClosed
	}
	e, ok := t.entries[id]
	if !ok {
		return fmt.Errorf("%w: %d", ErrUnknownCandidate, id)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := t.pk.AddPlain(e.ct, voteIncrement)
	if err != nil {
		return fmt.Errorf("add vote for candidate %d: %w", id, err)
	}
	e.ct = next
	t.ballots.Add(1)
	return nil
}

// Finalize closes the tally and returns its final ciphertexts. Calling it
// again returns the same result.
func (t *Tally) Finalize() *Final {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.final != nil {
		return t.final
	}
	t.closed = true
	cts := make(map[CandidateID]*paillier.Ciphertext, len(t.entries))
	for id, e := range t.entries {
		cts[id] = e.ct.Clone()
	}
	t.final = &Final{
		candidates:  slices.Clone(t.candidates),
		ciphertexts: cts,
		ballots:     t.ballots.Load(),
	}
	log.Infow("tally finalized", "candidates", len(t.candidates), "ballots", t.final.ballots)
	return t.final
}

// IsClosed reports whether Finalize was called.
func (t *Tally) IsClosed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.closed
}

// Votes returns the number of votes recorded so far.
func (t *Tally) Votes() uint64 {
	return t.ballots.Load()
}

// Candidates returns the candidates in ballot order.
func (t *Tally) Candidates() []CandidateID {
	return slices.Clone(t.candidates)
}

// PublicKey returns the key the tally encrypts under.
func (t *Tally) PublicKey() *paillier.PublicKey {
	return t.pk
}

// Final is the immutable result of closing a tally: one ciphertext per
// candidate plus the number of recorded votes.
type Final struct {
	candidates  []CandidateID
	ciphertexts map[CandidateID]*paillier.Ciphertext
	ballots     uint64
}

// Candidates returns the candidates in ballot order.
func (f *Final) Candidates() []CandidateID {
	return slices.Clone(f.candidates)
}

// Ciphertext returns a copy of the candidate's final ciphertext.
func (f *Final) Ciphertext(id CandidateID) (*paillier.Ciphertext, bool) {
	ct, ok := f.ciphertexts[id]
	if !ok {
		return nil, false
	}
	return ct.Clone(), true
}

// Ballots returns the number of votes the tally recorded.
func (f *Final) Ballots() uint64 {
	return f.ballots
}
