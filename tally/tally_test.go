package tally

import (
	"context"
	"math/big"
	"sync"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/paillier-tally/crypto/paillier"
	"github.com/vocdoni/paillier-tally/crypto/paillier/threshold"
	"github.com/vocdoni/paillier-tally/util"
)

const (
	candidateA CandidateID = 1
	candidateB CandidateID = 2
	candidateC CandidateID = 3
)

func testKeyPair(c *qt.C) (*paillier.PublicKey, *paillier.PrivateKey) {
	cfg := paillier.DefaultKeyGenConfig(512)
	cfg.MinBits = 512
	cfg.PrimalityRounds = 20
	pk, sk, err := paillier.GenerateKeyWithConfig(cfg)
	c.Assert(err, qt.IsNil)
	return pk, sk
}

func decryptCount(c *qt.C, pk *paillier.PublicKey, sk *paillier.PrivateKey, f *Final, id CandidateID) int64 {
	ct, ok := f.Ciphertext(id)
	c.Assert(ok, qt.IsTrue)
	m, err := sk.Decrypt(pk, ct)
	c.Assert(err, qt.IsNil)
	return m.Int64()
}

func TestNewErrors(t *testing.T) {
	c := qt.New(t)
	pk, _ := testKeyPair(c)
	_, err := New(pk, nil)
	c.Assert(err, qt.ErrorIs, ErrNoCandidates)
	_, err = New(pk, []CandidateID{candidateA, candidateB, candidateA})
	c.Assert(err, qt.ErrorIs, ErrDuplicateCandidate)
	_, err = New(nil, []CandidateID{candidateA})
	c.Assert(err, qt.ErrorIs, paillier.ErrInvalidPublicKey)
	_, err = New(&paillier.PublicKey{}, []CandidateID{candidateA})
	c.Assert(err, qt.ErrorIs, paillier.ErrInvalidPublicKey)
}

func TestRecordVoteAndFinalize(t *testing.T) {
	c := qt.New(t)
	pk, sk := testKeyPair(c)
	tl, err := New(pk, []CandidateID{candidateA, candidateB, candidateC})
	c.Assert(err, qt.IsNil)
	c.Assert(tl.Candidates(), qt.DeepEquals, []CandidateID{candidateA, candidateB, candidateC})

	for _, id := range []CandidateID{candidateA, candidateA, candidateB, candidateA} {
		c.Assert(tl.RecordVote(id), qt.IsNil)
	}
	c.Assert(tl.RecordVote(99), qt.ErrorIs, ErrUnknownCandidate)
	c.Assert(tl.Votes(), qt.Equals, uint64(4))
	c.Assert(tl.IsClosed(), qt.IsFalse)

	final := tl.Finalize()
	c.Assert(tl.IsClosed(), qt.IsTrue)
	c.Assert(tl.Finalize(), qt.Equals, final)
	c.Assert(tl.RecordVote(candidateA), qt.ErrorIs, ErrTallyClosed)
	c.Assert(final.Ballots(), qt.Equals, uint64(4))

	c.Assert(decryptCount(c, pk, sk, final, candidateA), qt.Equals, int64(3))
	c.Assert(decryptCount(c, pk, sk, final, candidateB), qt.Equals, int64(1))
	c.Assert(decryptCount(c, pk, sk, final, candidateC), qt.Equals, int64(0))

	_, ok := final.Ciphertext(99)
	c.Assert(ok, qt.IsFalse)
}

func TestConcurrentVotes(t *testing.T) {
	c := qt.New(t)
	pk, sk := testKeyPair(c)
	tl, err := New(pk, []CandidateID{candidateA, candidateB})
	c.Assert(err, qt.IsNil)

	const votes = 1000
	var wg sync.WaitGroup
	sem := make(chan struct{}, 32)
	for i := 0; i < votes; i++ {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }()
			id := candidateA
			if i%4 == 0 {
				id = candidateB
			}
			if err := tl.RecordVote(id); err != nil {
				t.Errorf("vote %d: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	final := tl.Finalize()
	c.Assert(final.Ballots(), qt.Equals, uint64(votes))
	a := decryptCount(c, pk, sk, final, candidateA)
	b := decryptCount(c, pk, sk, final, candidateB)
	c.Assert(a, qt.Equals, int64(750))
	c.Assert(b, qt.Equals, int64(250))
	c.Assert(a+b, qt.Equals, int64(votes))
}

func TestFinalizeWhileVoting(t *testing.T) {
	c := qt.New(t)
	pk, sk := testKeyPair(c)
	tl, err := New(pk, []CandidateID{candidateA})
	c.Assert(err, qt.IsNil)

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		accepted int64
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := tl.RecordVote(candidateA); err == nil {
				mu.Lock()
				accepted++
				mu.Unlock()
			}
		}()
	}
	final := tl.Finalize()
	wg.Wait()

	// every vote accepted before closing is in the final tally, and no
	// vote is accepted after
	count := decryptCount(c, pk, sk, final, candidateA)
	c.Assert(count, qt.Equals, accepted)
	c.Assert(final.Ballots(), qt.Equals, uint64(accepted))
}

func TestSnapshotRestore(t *testing.T) {
	c := qt.New(t)
	pk, sk := testKeyPair(c)
	tl, err := New(pk, []CandidateID{candidateA, candidateB})
	c.Assert(err, qt.IsNil)
	c.Assert(tl.RecordVote(candidateB), qt.IsNil)

	snap := tl.Snapshot()
	c.Assert(snap.Closed, qt.IsFalse)
	resumed, err := Restore(pk, snap)
	c.Assert(err, qt.IsNil)
	c.Assert(resumed.RecordVote(candidateB), qt.IsNil)
	c.Assert(resumed.RecordVote(candidateA), qt.IsNil)

	final := resumed.Finalize()
	c.Assert(final.Ballots(), qt.Equals, uint64(3))
	c.Assert(decryptCount(c, pk, sk, final, candidateB), qt.Equals, int64(2))

	// closed snapshots restore as finalized tallies
	closed, err := Restore(pk, final.Snapshot())
	c.Assert(err, qt.IsNil)
	c.Assert(closed.IsClosed(), qt.IsTrue)
	_, err = FinalFromSnapshot(pk, snap)
	c.Assert(err, qt.Not(qt.IsNil))

	bad := tl.Snapshot()
	bad.Ciphertexts[0] = &paillier.Ciphertext{C: pk.NSquared()}
	_, err = Restore(pk, bad)
	c.Assert(err, qt.ErrorIs, paillier.ErrInvalidCiphertext)

	_, err = Restore(nil, snap)
	c.Assert(err, qt.ErrorIs, paillier.ErrInvalidPublicKey)
	_, err = FinalFromSnapshot(nil, final.Snapshot())
	c.Assert(err, qt.ErrorIs, paillier.ErrInvalidPublicKey)
}

func TestEndToEndThreshold(t *testing.T) {
	c := qt.New(t)
	pk, sk := testKeyPair(c)
	params, shares, err := threshold.DistributePrivateKey(pk, sk, 5, 3)
	c.Assert(err, qt.IsNil)

	tl, err := New(pk, []CandidateID{candidateA, candidateB})
	c.Assert(err, qt.IsNil)
	for _, id := range []CandidateID{candidateA, candidateA, candidateB, candidateA} {
		c.Assert(tl.RecordVote(id), qt.IsNil)
	}
	final := tl.Finalize()

	// any three trustees decrypt
	var partials []TrusteePartials
	for _, idx := range util.RandomSubset(5, 3) {
		tp, err := PartialDecryptFinal(shares[idx-1], params, final)
		c.Assert(err, qt.IsNil)
		c.Assert(tp, qt.HasLen, 2)
		partials = append(partials, tp)
	}
	res, err := DecryptFinal(context.Background(), params, final, partials)
	c.Assert(err, qt.IsNil)
	c.Assert(res.Counts, qt.DeepEquals, map[CandidateID]uint64{candidateA: 3, candidateB: 1})
	c.Assert(res.Total(), qt.Equals, uint64(4))
	c.Assert(res.Winners(), qt.DeepEquals, []CandidateID{candidateA})

	_, err = DecryptFinal(context.Background(), params, final, partials[:2])
	c.Assert(err, qt.ErrorIs, threshold.ErrThresholdNotMet)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = DecryptFinal(ctx, params, final, partials)
	c.Assert(err, qt.ErrorIs, context.Canceled)
}

func TestWinners(t *testing.T) {
	c := qt.New(t)
	res := &Result{
		Candidates: []CandidateID{candidateA, candidateB, candidateC},
		Counts:     map[CandidateID]uint64{candidateA: 2, candidateB: 5, candidateC: 5},
	}
	c.Assert(res.Winners(), qt.DeepEquals, []CandidateID{candidateB, candidateC})
	c.Assert(res.Total(), qt.Equals, uint64(12))

	none := &Result{}
	c.Assert(none.Winners(), qt.IsNil)
}

func TestRecordVoteOnlyAddsOne(t *testing.T) {
	c := qt.New(t)
	pk, sk := testKeyPair(c)
	tl, err := New(pk, []CandidateID{candidateA})
	c.Assert(err, qt.IsNil)
	before := tl.Snapshot().Ciphertexts[0]
	c.Assert(tl.RecordVote(candidateA), qt.IsNil)
	after := tl.Snapshot().Ciphertexts[0]

	diff, err := pk.Sub(after, before)
	c.Assert(err, qt.IsNil)
	m, err := sk.Decrypt(pk, diff)
	c.Assert(err, qt.IsNil)
	c.Assert(m.Cmp(big.NewInt(1)), qt.Equals, 0)
}
