package state

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/vocdoni/paillier-tally/crypto/paillier"
	"github.com/vocdoni/paillier-tally/tally"
	"github.com/vocdoni/paillier-tally/types"
	"go.vocdoni.io/dvote/db/metadb"
)

func testFinal(c *qt.C, votes ...tally.CandidateID) (*paillier.PublicKey, *tally.Final) {
	cfg := paillier.DefaultKeyGenConfig(512)
	cfg.MinBits = 512
	cfg.PrimalityRounds = 20
	pk, _, err := paillier.GenerateKeyWithConfig(cfg)
	c.Assert(err, qt.IsNil)
	tl, err := tally.New(pk, []tally.CandidateID{1, 2, 3})
	c.Assert(err, qt.IsNil)
	for _, v := range votes {
		c.Assert(tl.RecordVote(v), qt.IsNil)
	}
	return pk, tl.Finalize()
}

func TestCommitAndProve(t *testing.T) {
	c := qt.New(t)
	database := metadb.NewTest(t)
	id := types.NewElectionID()
	st, err := New(database, id)
	c.Assert(err, qt.IsNil)

	_, err = st.GenProof(1)
	c.Assert(err, qt.ErrorIs, ErrNotCommitted)

	_, final := testFinal(c, 1, 2, 2)
	root, err := st.Commit(final)
	c.Assert(err, qt.IsNil)
	c.Assert(root, qt.HasLen, 32)
	_, err = st.Commit(final)
	c.Assert(err, qt.ErrorIs, ErrAlreadyCommitted)

	current, err := st.Root()
	c.Assert(err, qt.IsNil)
	c.Assert(current, qt.DeepEquals, root)

	for _, cid := range final.Candidates() {
		proof, err := st.GenProof(cid)
		c.Assert(err, qt.IsNil)
		ct, _ := final.Ciphertext(cid)
		c.Assert(VerifyCiphertext(root, cid, ct, proof), qt.IsNil)

		// proofs do not transfer to other candidates
		other := tally.CandidateID(1 + cid%3)
		c.Assert(VerifyCiphertext(root, other, ct, proof), qt.ErrorIs, ErrInvalidProof)
	}

	bp, err := st.GenBallotsProof()
	c.Assert(err, qt.IsNil)
	c.Assert(VerifyBallots(root, 3, bp), qt.IsNil)
	c.Assert(VerifyBallots(root, 4, bp), qt.ErrorIs, ErrInvalidProof)

	_, err = st.GenProof(42)
	c.Assert(err, qt.Not(qt.IsNil))

	// reopening the same election keeps the commitment
	reopened, err := New(database, id)
	c.Assert(err, qt.IsNil)
	committed, err := reopened.Committed()
	c.Assert(err, qt.IsNil)
	c.Assert(committed, qt.IsTrue)
	reRoot, err := reopened.Root()
	c.Assert(err, qt.IsNil)
	c.Assert(reRoot, qt.DeepEquals, root)
}

func TestVerifyRejectsTamperedCiphertext(t *testing.T) {
	c := qt.New(t)
	st, err := New(metadb.NewTest(t), types.NewElectionID())
	c.Assert(err, qt.IsNil)
	pk, final := testFinal(c, 1)
	root, err := st.Commit(final)
	c.Assert(err, qt.IsNil)

	proof, err := st.GenProof(1)
	c.Assert(err, qt.IsNil)
	ct, _ := final.Ciphertext(1)
	swapped, err := pk.Rerandomize(ct)
	c.Assert(err, qt.IsNil)
	c.Assert(VerifyCiphertext(root, 1, swapped, proof), qt.ErrorIs, ErrInvalidProof)

	tampered := *proof
	tampered.Value = swapped.Digest()
	c.Assert(VerifyProof(&tampered), qt.ErrorIs, ErrInvalidProof)

	c.Assert(VerifyCiphertext([]byte{1, 2, 3}, 1, ct, proof), qt.ErrorIs, ErrInvalidProof)
}

func TestSeparateElections(t *testing.T) {
	c := qt.New(t)
	database := metadb.NewTest(t)
	a, err := New(database, types.NewElectionID())
	c.Assert(err, qt.IsNil)
	b, err := New(database, types.NewElectionID())
	c.Assert(err, qt.IsNil)

	_, final := testFinal(c, 2)
	_, err = a.Commit(final)
	c.Assert(err, qt.IsNil)
	committed, err := b.Committed()
	c.Assert(err, qt.IsNil)
	c.Assert(committed, qt.IsFalse)
}

func TestVerifyFinal(t *testing.T) {
	c := qt.New(t)
	st, err := New(metadb.NewTest(t), types.NewElectionID())
	c.Assert(err, qt.IsNil)
	pk, final := testFinal(c, 1, 1, 2)
	c.Assert(st.Verify(final), qt.ErrorIs, ErrNotCommitted)

	root, err := st.Commit(final)
	c.Assert(err, qt.IsNil)
	c.Assert(st.Verify(final), qt.IsNil)
	_, err = st.Commit(final)
	c.Assert(err, qt.ErrorIs, ErrAlreadyCommitted)

	// every leaf landed with the ballot count
	for _, id := range final.Candidates() {
		p, err := st.GenProof(id)
		c.Assert(err, qt.IsNil)
		c.Assert([]byte(p.Root), qt.DeepEquals, root)
	}

	other, err := tally.New(pk, []tally.CandidateID{1, 2, 3})
	c.Assert(err, qt.IsNil)
	for _, v := range []tally.CandidateID{1, 1, 2} {
		c.Assert(other.RecordVote(v), qt.IsNil)
	}
	c.Assert(st.Verify(other.Finalize()), qt.ErrorIs, ErrInvalidProof)
}
