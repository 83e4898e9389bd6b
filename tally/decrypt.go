package tally

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/vocdoni/paillier-tally/crypto/paillier/threshold"
	"github.com/vocdoni/paillier-tally/log"
)

// ErrResultMismatch is returned when the decrypted counts do not add up to
// the number of recorded votes.
var ErrResultMismatch = errors.New("tally: decrypted counts do not match ballots")

// TrusteePartials are one trustee's partial decryptions of a final tally,
// keyed by candidate.
type TrusteePartials map[CandidateID]*threshold.PartialDecryption

// PartialDecryptFinal computes the trustee's partial decryption of every
// candidate ciphertext in parallel.
func PartialDecryptFinal(share *threshold.TrusteeKeyShare, params *threshold.Params, final *Final) (TrusteePartials, error) {
	var (
		mu  sync.Mutex
		res = make(TrusteePartials, len(final.candidates))
		g   errgroup.Group
	)
	for _, id := range final.candidates {
		ct := final.ciphertexts[id]
		g.Go(func() error {
			pd, err := share.PartialDecrypt(params, ct)
			if err != nil {
				return fmt.Errorf("candidate %d: %w", id, err)
			}
			mu.Lock()
			res[id] = pd
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	log.Debugw("trustee partials computed", "trustee", share.Index, "candidates", len(res))
	return res, nil
}

// DecryptFinal combines the trustees' partials into plaintext counts. Each
// candidate needs partials from at least Threshold distinct trustees.
func DecryptFinal(ctx context.Context, params *threshold.Params, final *Final, partials []TrusteePartials) (*Result, error) {
	var (
		mu     sync.Mutex
		counts = make(map[CandidateID]uint64, len(final.candidates))
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range final.candidates {
		ct := final.ciphertexts[id]
		var pds []*threshold.PartialDecryption
		for _, tp := range partials {
			if pd, ok := tp[id]; ok {
				pds = append(pds, pd)
			}
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := params.Combine(ct, pds)
			if err != nil {
				return fmt.Errorf("candidate %d: %w", id, err)
			}
			if !m.IsUint64() || m.Uint64() > final.ballots {
				return fmt.Errorf("%w: candidate %d decrypted to %s with %d ballots",
					ErrResultMismatch, id, m, final.ballots)
			}
			mu.Lock()
			counts[id] = m.Uint64()
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	res := &Result{Candidates: slices.Clone(final.candidates), Counts: counts}
	if res.Total() != final.ballots {
		return nil, fmt.Errorf("%w: %d counted, %d recorded", ErrResultMismatch, res.Total(), final.ballots)
	}
	log.Infow("tally decrypted", "candidates", len(counts), "ballots", final.ballots)
	return res, nil
}
